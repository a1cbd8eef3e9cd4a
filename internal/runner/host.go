//go:build !windows
// +build !windows

package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tklein/scriptpad/internal/script"
)

// HostRunner runs scripts with the host interpreter, without isolation. Used
// when Docker is unavailable or explicitly requested.
type HostRunner struct {
	config Config
}

// RunScript executes the script with the host's python3.
func (r *HostRunner) RunScript(ctx context.Context, path string, lang script.Language, timeout time.Duration) (Result, error) {
	if err := checkLanguage(lang); err != nil {
		return Result{}, err
	}
	if timeout <= 0 {
		if r.config.RunTimeout > 0 {
			timeout = r.config.RunTimeout
		} else {
			timeout = defaultRunTimeout
		}
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.Command("python3", filepath.Base(path))
	cmd.Dir = filepath.Dir(path)
	// New process group so cancellation kills interpreter children too
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return Result{}, err
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-cctx.Done():
			if cmd.Process != nil {
				syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res := Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if waitErr != nil {
		res.Code = 1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.Code = exitErr.ExitCode()
		}
		if errors.Is(cctx.Err(), context.DeadlineExceeded) || errors.Is(cctx.Err(), context.Canceled) {
			res.TimedOut = true
		}
		return res, waitErr
	}

	return res, nil
}
