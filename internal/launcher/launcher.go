// Package launcher opens files, folders and URLs with the platform's default
// handler.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/harrison/projdock/internal/logger"
)

// Runner starts an external command without waiting for it to exit
type Runner func(ctx context.Context, name string, args ...string) error

// Opener hands targets to the OS handler
type Opener struct {
	goos string
	run  Runner
	log  logger.Logger
}

// New creates an opener for the current platform
func New(log logger.Logger) *Opener {
	return NewWithRunner(runtime.GOOS, StartDetached, log)
}

// NewWithRunner creates an opener for goos that starts commands through run
func NewWithRunner(goos string, run Runner, log logger.Logger) *Opener {
	if run == nil {
		run = StartDetached
	}
	return &Opener{goos: goos, run: run, log: logger.OrNoOp(log)}
}

// StartDetached starts the command and reaps it in the background. The
// child is not bound to ctx so it outlives the caller.
func StartDetached(ctx context.Context, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Command returns the handler invocation for target
func (o *Opener) Command(target string) (string, []string) {
	switch o.goos {
	case "windows":
		// The empty argument is the window title start expects when the
		// target is quoted.
		return "cmd", []string{"/c", "start", "", target}
	case "darwin":
		return "open", []string{target}
	default:
		return "xdg-open", []string{target}
	}
}

// Open opens target. Paths must exist; URLs are passed through.
func (o *Opener) Open(ctx context.Context, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return errors.New("open: empty target")
	}
	if !IsURL(target) {
		if _, err := os.Stat(target); err != nil {
			return fmt.Errorf("open %s: %w", target, err)
		}
	}

	name, args := o.Command(target)
	o.log.LogDebug(fmt.Sprintf("launch: %s %s", name, strings.Join(args, " ")))
	if err := o.run(ctx, name, args...); err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	return nil
}

// IsURL reports whether target looks like a URL rather than a path
func IsURL(target string) bool {
	lower := strings.ToLower(target)
	for _, prefix := range []string{"http://", "https://", "file://", "mailto:", "ftp://", "ms-"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
