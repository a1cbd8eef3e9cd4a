package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/tklein/scriptpad/internal/session"
)

// terminalHost is the session.Host for a terminal user. It launches the
// configured editor on the session document and treats editor exit as the
// document-closed event. A windowed editor that blocks until close (e.g.
// "code -w") gives the cleanest flow; terminal editors share the tty with
// the confirmation prompt.
type terminalHost struct {
	editor  string
	refresh func()

	mu      sync.Mutex
	proc    *exec.Cmd
	watcher *session.DocumentWatcher
}

func newTerminalHost(editor string, refresh func()) *terminalHost {
	return &terminalHost{editor: editor, refresh: refresh}
}

// WatchDocument is the event-source factory handed to the controller. The
// watcher is retained so editor exit can be injected as the close event.
func (h *terminalHost) WatchDocument(path string) (session.EventSource, error) {
	watcher, err := session.NewDocumentWatcher(path)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.watcher = watcher
	h.mu.Unlock()
	return watcher, nil
}

// OpenDocument launches the editor on path and arms the close event on
// editor exit.
func (h *terminalHost) OpenDocument(path string) error {
	parts := strings.Fields(h.editorCommand())
	if len(parts) == 0 {
		return fmt.Errorf("no editor configured (set SCRIPTPAD_EDITOR, $VISUAL, or $EDITOR)")
	}

	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch editor: %w", err)
	}

	h.mu.Lock()
	h.proc = cmd
	watcher := h.watcher
	h.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		if watcher != nil {
			watcher.DocumentClosed()
		}
	}()

	return nil
}

// ConfirmSave asks on the terminal. Anything other than y/yes declines.
func (h *terminalHost) ConfirmSave(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func (h *terminalHost) NotifyError(msg string) {
	fmt.Fprintf(os.Stderr, "error: %s\n", msg)
}

// CloseActiveEditor ends the editor process after a successful commit.
func (h *terminalHost) CloseActiveEditor() {
	h.mu.Lock()
	proc := h.proc
	h.mu.Unlock()
	if proc != nil && proc.Process != nil {
		if err := proc.Process.Kill(); err != nil {
			log.Printf("⚠️  failed to close editor: %v", err)
		}
	}
}

func (h *terminalHost) Refresh() {
	if h.refresh != nil {
		h.refresh()
	}
}

func (h *terminalHost) editorCommand() string {
	if h.editor != "" {
		return h.editor
	}
	if v := os.Getenv("VISUAL"); v != "" {
		return v
	}
	if v := os.Getenv("EDITOR"); v != "" {
		return v
	}
	return "vi"
}
