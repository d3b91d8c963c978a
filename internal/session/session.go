// Package session owns the browser (and, on hosts without a screen, the
// virtual display it renders to) for the lifetime of a run.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"offerwatch/internal/components/telemetry"
	"offerwatch/lib/browser"
	"offerwatch/lib/xdisplay"
)

const (
	report_session_stop = "session.stop"
)

// Display is a running virtual display.
type Display interface {
	Env() string
	Stop() error
}

// Launcher starts the collaborators of a session. env holds extra
// environment entries for the browser process, it is empty when no
// virtual display is used.
type Launcher struct {
	StartDisplay func(ctx context.Context) (Display, error)
	StartDriver  func(ctx context.Context, env []string) (browser.Driver, error)
}

// HeadlessPolicy decides whether a virtual display is needed.
type HeadlessPolicy string

const (
	// HeadlessAuto uses a virtual display on linux hosts only.
	HeadlessAuto   HeadlessPolicy = "auto"
	HeadlessAlways HeadlessPolicy = "always"
	HeadlessNever  HeadlessPolicy = "never"
)

func ParseHeadlessPolicy(value string) (HeadlessPolicy, error) {
	switch HeadlessPolicy(value) {
	case "", HeadlessAuto:
		return HeadlessAuto, nil
	case HeadlessAlways:
		return HeadlessAlways, nil
	case HeadlessNever:
		return HeadlessNever, nil
	}
	return "", fmt.Errorf("unknown headless policy %q, expected one of auto, always, never", value)
}

// NeedsDisplay reports whether the policy requires a virtual display on goos.
func (p HeadlessPolicy) NeedsDisplay(goos string) bool {
	switch p {
	case HeadlessAlways:
		return true
	case HeadlessNever:
		return false
	}
	return goos == "linux"
}

// XvfbDisplay starts an Xvfb display of the given size.
func XvfbDisplay(size xdisplay.Size) func(ctx context.Context) (Display, error) {
	return func(ctx context.Context) (Display, error) {
		return xdisplay.Start(ctx, size)
	}
}

// Session is either fully started or fully stopped.
type Session struct {
	launcher Launcher
	policy   HeadlessPolicy
	goos     string
	tel      telemetry.API

	mu       sync.Mutex
	display  Display
	driver   browser.Driver
	started  bool
	stopped  bool
	stopOnce sync.Once
	stopErr  error
}

type Option func(s *Session)

func WithTelemetry(tel telemetry.API) Option {
	return func(s *Session) {
		s.tel = tel
	}
}

// WithGOOS overrides the platform used to resolve HeadlessAuto.
func WithGOOS(goos string) Option {
	return func(s *Session) {
		s.goos = goos
	}
}

func New(launcher Launcher, policy HeadlessPolicy, opts ...Option) *Session {
	s := &Session{
		launcher: launcher,
		policy:   policy,
		goos:     runtime.GOOS,
		tel:      telemetry.SlogAPI{},
	}
	for _, o := range opts {
		o(s)
	}
	s.tel = telemetry.NewScopedAPI("session", s.tel)
	return s
}

// Start brings up the display (if needed) and then the browser. If the
// browser fails to start the display is torn down again.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("session already started")
	}
	if s.stopped {
		return fmt.Errorf("session already stopped")
	}

	var env []string
	var display Display
	if s.policy.NeedsDisplay(s.goos) {
		if s.launcher.StartDisplay == nil {
			return fmt.Errorf("start session: no virtual display available")
		}
		var err error
		display, err = s.launcher.StartDisplay(ctx)
		if err != nil {
			return fmt.Errorf("start virtual display: %w", err)
		}
		env = append(env, display.Env())
	}

	driver, err := s.launcher.StartDriver(ctx, env)
	if err != nil {
		if display != nil {
			if stopErr := display.Stop(); stopErr != nil {
				s.tel.ReportBroken(report_session_stop, stopErr, "display")
			}
		}
		return fmt.Errorf("start browser: %w", err)
	}

	s.display = display
	s.driver = driver
	s.started = true
	slog.InfoContext(ctx, "session started", "virtual_display", display != nil)
	return nil
}

// Driver returns the browser of a started session, nil otherwise.
func (s *Session) Driver() browser.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driver
}

// Stop quits the browser before the display it renders to. Only the first
// call does anything, later calls return the same result.
func (s *Session) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.stopped = true
		if !s.started {
			return
		}
		slog.Info("stopping...")

		var errs []error
		if err := s.driver.Close(); err != nil {
			s.tel.ReportBroken(report_session_stop, err, "browser")
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		if s.display != nil {
			if err := s.display.Stop(); err != nil {
				s.tel.ReportBroken(report_session_stop, err, "display")
				errs = append(errs, fmt.Errorf("stop virtual display: %w", err))
			}
		}
		s.driver = nil
		s.display = nil
		s.started = false
		s.stopErr = errors.Join(errs...)
		slog.Info("stopped!")
	})
	return s.stopErr
}
