package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const DefaultHandlerTimeout = 5 * time.Second

// HandlerSink runs an external executable with the snapshot JSON on stdin.
// Exit status 0 is success.
type HandlerSink struct {
	Path    string
	Timeout time.Duration
}

func (h *HandlerSink) Name() string { return "handler" }

func (h *HandlerSink) Notify(ctx context.Context, s Snapshot) error {
	payload, err := s.JSON()
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", ErrHandlerFailed, err)
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(cctx, h.Path)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stderr = &stderr
	// Grandchildren holding stderr open must not outlive the timeout.
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if err == nil {
		return nil
	}
	msg := strings.TrimSpace(stderr.String())
	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s timed out after %s", ErrHandlerFailed, h.Path, timeout)
	case msg != "":
		return fmt.Errorf("%w: %s: %v: %s", ErrHandlerFailed, h.Path, err, msg)
	default:
		return fmt.Errorf("%w: %s: %v", ErrHandlerFailed, h.Path, err)
	}
}
