// Package session implements the ephemeral edit session: a throwaway
// scratch file opened in the user's editor, watched for saves, and committed
// to the remote service once the user confirms.
package session

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tklein/scriptpad/internal/script"
)

// Mode selects the confirmation wording and the downstream remote call.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

// State is the session lifecycle state.
type State int

const (
	StateInit State = iota
	StateEditing
	StateCommitting
	StateClosed
)

// Event is a document lifecycle event delivered to the session.
type Event int

const (
	// EventSaved fires when the session's document is written to disk.
	EventSaved Event = iota
	// EventClosed fires when the document's editor window goes away.
	EventClosed
)

// EventSource delivers save/close events for one document. Close must be
// idempotent; implementations close the Events channel when they stop.
type EventSource interface {
	Events() <-chan Event
	Close() error
}

// Host is the editor/UI capability a session runs against.
type Host interface {
	// OpenDocument opens the file at path in the user's editor.
	OpenDocument(path string) error
	// ConfirmSave asks the user to confirm the commit. It blocks only the
	// current event handler; the editor itself stays live.
	ConfirmSave(prompt string) bool
	// NotifyError surfaces an error to the user.
	NotifyError(msg string)
	// CloseActiveEditor closes the editor window on the session's document.
	CloseActiveEditor()
	// Refresh tells dependent views to reload after a session ends.
	Refresh()
}

// CommitFunc performs the remote create or update with the final text.
type CommitFunc func(ctx context.Context, body string) error

// Options configures a session. Workspace and NewEvents default to the real
// filesystem and an fsnotify watcher when nil.
type Options struct {
	Name        string
	Language    script.Language
	Mode        Mode
	InitialText string
	Host        Host
	OnCommit    CommitFunc
	Workspace   Workspace
	NewEvents   func(path string) (EventSource, error)
}

// Session owns one scratch directory and one listener pair. Sessions are
// independent; nothing here is shared across instances.
type Session struct {
	name     string
	mode     Mode
	dir      string
	file     string
	state    State
	ws       Workspace
	host     Host
	events   EventSource
	onCommit CommitFunc
	disposed bool
}

// newToken returns a random hex token long enough that scratch directory
// collisions are negligible.
func newToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Open creates the scratch directory, seeds the document with the initial
// text followed by a blank line, opens it in the editor, and arms the
// save/close listeners. On any failure the scratch directory is removed and
// no listeners are left armed.
func Open(opts Options) (*Session, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("script name must not be empty")
	}
	// The name becomes the scratch filename and, in the edit flow, comes
	// from the remote service; a separator in it would place the document
	// outside the scratch directory and beyond cleanup's reach.
	if filepath.Base(opts.Name) != opts.Name {
		return nil, fmt.Errorf("script name %q must not contain path separators", opts.Name)
	}
	if !opts.Language.Valid() {
		return nil, fmt.Errorf("unknown script language %q", opts.Language)
	}
	if opts.Host == nil || opts.OnCommit == nil {
		return nil, fmt.Errorf("session requires a host and a commit callback")
	}

	ws := opts.Workspace
	if ws == nil {
		ws = OSWorkspace{}
	}
	newEvents := opts.NewEvents
	if newEvents == nil {
		newEvents = func(path string) (EventSource, error) {
			return NewDocumentWatcher(path)
		}
	}

	dir, err := ws.CreateScratchDir(newToken())
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	file := ws.Join(dir, opts.Name+opts.Language.Ext())

	if err := ws.WriteFile(file, opts.InitialText+"\n\n"); err != nil {
		opts.Host.NotifyError(fmt.Sprintf("could not prepare the script file: %v", err))
		removeScratch(ws, dir)
		return nil, err
	}

	events, err := newEvents(file)
	if err != nil {
		opts.Host.NotifyError(fmt.Sprintf("could not watch the script file: %v", err))
		removeScratch(ws, dir)
		return nil, err
	}

	if err := opts.Host.OpenDocument(file); err != nil {
		opts.Host.NotifyError(fmt.Sprintf("could not open the script file: %v", err))
		_ = events.Close()
		removeScratch(ws, dir)
		return nil, err
	}

	return &Session{
		name:     opts.Name,
		mode:     opts.Mode,
		dir:      dir,
		file:     file,
		state:    StateEditing,
		ws:       ws,
		host:     opts.Host,
		events:   events,
		onCommit: opts.OnCommit,
	}, nil
}

// Dir returns the session's scratch directory.
func (s *Session) Dir() string { return s.dir }

// File returns the path of the document being edited.
func (s *Session) File() string { return s.file }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Run consumes document events until the session reaches CLOSED. A save
// event asks for confirmation; declining is a no-op and the session stays in
// EDITING. A confirmed save commits; commit failure is surfaced and the
// listeners stay armed so the user can retry by saving again. Closing the
// document without a confirmed save is the cancellation path.
func (s *Session) Run(ctx context.Context) error {
	defer s.dispose()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.events.Events():
			if !ok {
				return nil
			}
			switch ev {
			case EventSaved:
				if s.handleSave(ctx) {
					return nil
				}
			case EventClosed:
				return nil
			}
		}
	}
}

// handleSave runs one save event to completion and reports whether the
// session committed. The confirmation and the remote call are strictly
// sequential; cleanup never starts before the remote call settles.
func (s *Session) handleSave(ctx context.Context) bool {
	if !s.host.ConfirmSave(s.confirmPrompt()) {
		return false
	}

	s.state = StateCommitting

	text, err := s.ws.ReadFile(s.file)
	if err != nil {
		s.host.NotifyError(fmt.Sprintf("could not read the script file: %v", err))
		s.state = StateEditing
		return false
	}

	// The service rejects bodies with trailing whitespace.
	body := strings.TrimRight(text, " \t\r\n")

	if err := s.onCommit(ctx, body); err != nil {
		s.host.NotifyError(err.Error())
		s.state = StateEditing
		return false
	}

	return true
}

func (s *Session) confirmPrompt() string {
	if s.mode == ModeUpdate {
		return fmt.Sprintf("Save and update script %q on the server?", s.name)
	}
	return fmt.Sprintf("Save and create script %q on the server?", s.name)
}

// dispose is the idempotent terminal action: release both listeners, remove
// the scratch directory, and signal a refresh. Safe to reach from every exit
// path; a second call is a no-op.
func (s *Session) dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.state = StateClosed

	if err := s.events.Close(); err != nil {
		log.Printf("⚠️  failed to release document listeners: %v", err)
	}
	removeScratch(s.ws, s.dir)
	s.host.Refresh()
}

// removeScratch removes a scratch directory best-effort; a failure here is
// logged, never escalated.
func removeScratch(ws Workspace, dir string) {
	if err := ws.Remove(dir); err != nil {
		log.Printf("⚠️  failed to remove scratch directory %s: %v", dir, err)
	}
}
