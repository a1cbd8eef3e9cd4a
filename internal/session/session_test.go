package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tklein/scriptpad/internal/script"
)

// fakeEvents feeds events to a session under test.
type fakeEvents struct {
	ch     chan Event
	closes int
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{ch: make(chan Event, 8)}
}

func (f *fakeEvents) Events() <-chan Event { return f.ch }

func (f *fakeEvents) Close() error {
	f.closes++
	return nil
}

// fakeHost records session side effects. Confirm answers are consumed in
// order; an empty queue declines.
type fakeHost struct {
	confirms  []bool
	opened    []string
	errors    []string
	refreshes int
	closes    int
	openErr   error
}

func (h *fakeHost) OpenDocument(path string) error {
	h.opened = append(h.opened, path)
	return h.openErr
}

func (h *fakeHost) ConfirmSave(prompt string) bool {
	if len(h.confirms) == 0 {
		return false
	}
	answer := h.confirms[0]
	h.confirms = h.confirms[1:]
	return answer
}

func (h *fakeHost) NotifyError(msg string) { h.errors = append(h.errors, msg) }
func (h *fakeHost) CloseActiveEditor()     { h.closes++ }
func (h *fakeHost) Refresh()               { h.refreshes++ }

// countingWorkspace wraps the real filesystem workspace and counts scratch
// directory creations.
type countingWorkspace struct {
	OSWorkspace
	creates int
	dirs    []string
}

func (w *countingWorkspace) CreateScratchDir(token string) (string, error) {
	w.creates++
	dir, err := w.OSWorkspace.CreateScratchDir(token)
	w.dirs = append(w.dirs, dir)
	return dir, err
}

type sessionFixture struct {
	ws     *countingWorkspace
	host   *fakeHost
	events *fakeEvents
	sess   *Session
	// commits records the bodies passed to OnCommit
	commits []string
	// commitErrs are consumed in order; an empty queue commits cleanly
	commitErrs []error
}

func openSession(t *testing.T, opts Options) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		ws:     &countingWorkspace{OSWorkspace: OSWorkspace{Root: t.TempDir()}},
		host:   &fakeHost{},
		events: newFakeEvents(),
	}
	if opts.Name == "" {
		opts.Name = "myScript"
	}
	if opts.Language == "" {
		opts.Language = script.LangFlux
	}
	opts.Host = f.host
	opts.Workspace = f.ws
	opts.NewEvents = func(string) (EventSource, error) { return f.events, nil }
	opts.OnCommit = func(ctx context.Context, body string) error {
		f.commits = append(f.commits, body)
		if len(f.commitErrs) > 0 {
			err := f.commitErrs[0]
			f.commitErrs = f.commitErrs[1:]
			return err
		}
		return nil
	}

	sess, err := Open(opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	f.sess = sess
	return f
}

func runSession(t *testing.T, sess *Session) chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()
	return done
}

func waitDone(t *testing.T, done chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not terminate")
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func TestOpenSeedsDocument(t *testing.T) {
	f := openSession(t, Options{Name: "s", Language: script.LangPython, InitialText: "print(1)"})

	if got, want := filepath.Base(f.sess.File()), "s.py"; got != want {
		t.Errorf("expected file %s, got %s", want, got)
	}
	data, err := os.ReadFile(f.sess.File())
	if err != nil {
		t.Fatalf("failed to read seeded file: %v", err)
	}
	if string(data) != "print(1)\n\n" {
		t.Errorf("expected seeded content %q, got %q", "print(1)\n\n", string(data))
	}
	if len(f.host.opened) != 1 || f.host.opened[0] != f.sess.File() {
		t.Errorf("expected the document to be opened once, got %v", f.host.opened)
	}
	if f.sess.State() != StateEditing {
		t.Errorf("expected state EDITING, got %v", f.sess.State())
	}

	f.events.ch <- EventClosed
	waitDone(t, runSession(t, f.sess))
}

func TestFluxExtension(t *testing.T) {
	f := openSession(t, Options{Name: "s", Language: script.LangFlux})
	if got, want := filepath.Base(f.sess.File()), "s.flux"; got != want {
		t.Errorf("expected file %s, got %s", want, got)
	}
	f.events.ch <- EventClosed
	waitDone(t, runSession(t, f.sess))
}

func TestConfirmedSaveCommitsTrimmedBody(t *testing.T) {
	f := openSession(t, Options{})
	f.host.confirms = []bool{true}

	if err := os.WriteFile(f.sess.File(), []byte("a\nb\n\n  "), 0644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}
	done := runSession(t, f.sess)
	f.events.ch <- EventSaved
	waitDone(t, done)

	if len(f.commits) != 1 {
		t.Fatalf("expected 1 commit, got %d", len(f.commits))
	}
	if f.commits[0] != "a\nb" {
		t.Errorf("expected trailing whitespace trimmed, got %q", f.commits[0])
	}
	if dirExists(f.sess.Dir()) {
		t.Errorf("expected scratch directory %s to be removed", f.sess.Dir())
	}
	if f.sess.State() != StateClosed {
		t.Errorf("expected state CLOSED, got %v", f.sess.State())
	}
	if f.host.refreshes != 1 {
		t.Errorf("expected 1 refresh, got %d", f.host.refreshes)
	}
	if f.events.closes == 0 {
		t.Error("expected listeners to be released")
	}
}

func TestDeclinedSaveKeepsSessionOpen(t *testing.T) {
	f := openSession(t, Options{})
	// No confirm answers queued: every save is declined.

	done := runSession(t, f.sess)
	f.events.ch <- EventSaved
	f.events.ch <- EventSaved

	// Give the session time to process both declines before checking. Only
	// the filesystem is inspected while Run is still going.
	time.Sleep(100 * time.Millisecond)
	if !dirExists(f.sess.Dir()) {
		t.Error("expected scratch directory to survive declined saves")
	}

	f.events.ch <- EventClosed
	waitDone(t, done)

	if len(f.commits) != 0 {
		t.Errorf("expected no commits after declined saves, got %d", len(f.commits))
	}
	if dirExists(f.sess.Dir()) {
		t.Error("expected scratch directory removed after close")
	}
	if f.ws.creates != 1 {
		t.Errorf("expected exactly one scratch directory, got %d", f.ws.creates)
	}
}

func TestCloseWithoutSaveCleansUp(t *testing.T) {
	f := openSession(t, Options{})

	done := runSession(t, f.sess)
	f.events.ch <- EventClosed
	waitDone(t, done)

	if len(f.commits) != 0 {
		t.Errorf("expected no commit on close-without-save, got %d", len(f.commits))
	}
	if dirExists(f.sess.Dir()) {
		t.Error("expected scratch directory to be removed")
	}
	if f.host.refreshes != 1 {
		t.Errorf("expected 1 refresh, got %d", f.host.refreshes)
	}
}

func TestCommitFailureLeavesSessionRetryable(t *testing.T) {
	f := openSession(t, Options{})
	f.host.confirms = []bool{true, true}
	f.commitErrs = []error{fmt.Errorf("service unavailable")}

	done := runSession(t, f.sess)
	f.events.ch <- EventSaved

	// First save fails: directory retained, still editing.
	time.Sleep(100 * time.Millisecond)
	if !dirExists(f.sess.Dir()) {
		t.Error("expected scratch directory retained after failed commit")
	}

	// Saving again retries and succeeds.
	f.events.ch <- EventSaved
	waitDone(t, done)

	if len(f.host.errors) != 1 || !strings.Contains(f.host.errors[0], "service unavailable") {
		t.Errorf("expected the commit error to be surfaced, got %v", f.host.errors)
	}
	if len(f.commits) != 2 {
		t.Fatalf("expected 2 commit attempts, got %d", len(f.commits))
	}
	if dirExists(f.sess.Dir()) {
		t.Error("expected scratch directory removed after successful retry")
	}
	if f.ws.creates != 1 {
		t.Errorf("expected exactly one scratch directory across retries, got %d", f.ws.creates)
	}
}

func TestOpenRejectsBadInput(t *testing.T) {
	host := &fakeHost{}
	commit := func(context.Context, string) error { return nil }

	if _, err := Open(Options{Language: script.LangFlux, Host: host, OnCommit: commit}); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := Open(Options{Name: "s", Language: "perl", Host: host, OnCommit: commit}); err == nil {
		t.Error("expected error for unknown language")
	}
	if _, err := Open(Options{Name: "s", Language: script.LangFlux}); err == nil {
		t.Error("expected error for missing host and commit callback")
	}
}

func TestOpenRejectsNameWithPathSeparators(t *testing.T) {
	ws := &countingWorkspace{OSWorkspace: OSWorkspace{Root: t.TempDir()}}
	host := &fakeHost{}

	for _, name := range []string{"../escape", "a/b", "/abs"} {
		_, err := Open(Options{
			Name:      name,
			Language:  script.LangFlux,
			Host:      host,
			Workspace: ws,
			NewEvents: func(string) (EventSource, error) { return newFakeEvents(), nil },
			OnCommit:  func(context.Context, string) error { return nil },
		})
		if err == nil {
			t.Errorf("expected error for name %q", name)
		}
	}

	if ws.creates != 0 {
		t.Errorf("expected no scratch directories, got %d", ws.creates)
	}
	// Nothing may have been written anywhere, inside the root or above it.
	entries, err := os.ReadDir(ws.Root)
	if err != nil {
		t.Fatalf("failed to read workspace root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected an untouched workspace root, found %d entries", len(entries))
	}
}

func TestOpenDocumentFailureCleansUp(t *testing.T) {
	ws := &countingWorkspace{OSWorkspace: OSWorkspace{Root: t.TempDir()}}
	host := &fakeHost{openErr: fmt.Errorf("editor refused")}
	events := newFakeEvents()

	_, err := Open(Options{
		Name:      "s",
		Language:  script.LangFlux,
		Host:      host,
		Workspace: ws,
		NewEvents: func(string) (EventSource, error) { return events, nil },
		OnCommit:  func(context.Context, string) error { return nil },
	})
	if err == nil {
		t.Fatal("expected Open to fail when the editor refuses")
	}

	if len(ws.dirs) != 1 {
		t.Fatalf("expected one scratch directory attempt, got %d", len(ws.dirs))
	}
	if dirExists(ws.dirs[0]) {
		t.Error("expected scratch directory removed after failed open")
	}
	if len(host.errors) == 0 {
		t.Error("expected a user-visible error")
	}
	if events.closes == 0 {
		t.Error("expected the armed event source to be released")
	}
}
