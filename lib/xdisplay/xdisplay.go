// Package xdisplay runs an Xvfb virtual display so a headed browser can
// run on hosts without a physical screen.
package xdisplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// ErrNotInstalled is returned by Start when no Xvfb executable can be found.
var ErrNotInstalled = errors.New("could not find 'Xvfb' executable on path, is it installed?")

const socketDir = "/tmp/.X11-unix"

type Size struct {
	Width  int
	Height int
	Depth  int
}

var DefaultSize = Size{Width: 1024, Height: 768, Depth: 24}

type Display struct {
	Number int
	Size   Size

	cmd    *exec.Cmd
	exited chan struct{}
}

// Start launches Xvfb on the first free display number starting from :99
// and waits for its socket to show up.
func Start(ctx context.Context, size Size) (*Display, error) {
	bin, err := exec.LookPath("Xvfb")
	if err != nil {
		return nil, ErrNotInstalled
	}
	if size.Depth == 0 {
		size.Depth = DefaultSize.Depth
	}

	number := freeDisplay(99)
	cmd := exec.Command(
		bin, fmt.Sprintf(":%d", number),
		"-screen", "0", fmt.Sprintf("%dx%dx%d", size.Width, size.Height, size.Depth),
		"-nolisten", "tcp",
	)
	cmd.Stdout = nil
	cmd.Stderr = nil
	err = cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("start xvfb: %w", err)
	}

	d := &Display{
		Number: number,
		Size:   size,
		cmd:    cmd,
		exited: make(chan struct{}),
	}
	go func() {
		cmd.Wait()
		close(d.exited)
	}()

	err = d.waitReady(ctx, 10*time.Second)
	if err != nil {
		d.Stop()
		return nil, err
	}
	slog.DebugContext(ctx, "virtual display started", "display", d.Name(), "pid", cmd.Process.Pid)
	return d, nil
}

func socketPath(number int) string {
	return filepath.Join(socketDir, "X"+strconv.Itoa(number))
}

func freeDisplay(from int) int {
	n := from
	for {
		_, err := os.Stat(socketPath(n))
		if os.IsNotExist(err) {
			_, lockErr := os.Stat(fmt.Sprintf("/tmp/.X%d-lock", n))
			if os.IsNotExist(lockErr) {
				return n
			}
		}
		n++
	}
}

func (d *Display) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		_, err := os.Stat(socketPath(d.Number))
		if err == nil {
			return nil
		}
		select {
		case <-d.exited:
			return fmt.Errorf("xvfb exited before display %s was ready", d.Name())
		case <-ctx.Done():
			return fmt.Errorf("wait for display %s: %w", d.Name(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Name is the value DISPLAY should be set to, ex. ":99".
func (d *Display) Name() string {
	return fmt.Sprintf(":%d", d.Number)
}

// Env is the environment entry pointing X clients at this display.
func (d *Display) Env() string {
	return "DISPLAY=" + d.Name()
}

// Stop terminates Xvfb, escalating to SIGKILL if it does not exit.
func (d *Display) Stop() error {
	select {
	case <-d.exited:
		return nil
	default:
	}
	err := d.cmd.Process.Signal(syscall.SIGTERM)
	if err != nil {
		return err
	}
	select {
	case <-d.exited:
		return nil
	case <-time.After(5 * time.Second):
		return d.cmd.Process.Kill()
	}
}
