package session

import (
	"context"
	"errors"
	"testing"

	"offerwatch/internal/components/telemetry"
	"offerwatch/lib/browser"
	"offerwatch/lib/browser/htmldriver"

	"github.com/stretchr/testify/require"
)

type fakeDisplay struct {
	stops *[]string
	err   error
}

func (d fakeDisplay) Env() string { return "DISPLAY=:99" }

func (d fakeDisplay) Stop() error {
	*d.stops = append(*d.stops, "display")
	return d.err
}

type closingDriver struct {
	*htmldriver.Driver
	stops *[]string
}

func (d closingDriver) Close() error {
	*d.stops = append(*d.stops, "browser")
	return d.Driver.Close()
}

func newLauncher(stops *[]string, driverErr error) (Launcher, *[]string) {
	var gotEnv []string
	return Launcher{
		StartDisplay: func(ctx context.Context) (Display, error) {
			return fakeDisplay{stops: stops}, nil
		},
		StartDriver: func(ctx context.Context, env []string) (browser.Driver, error) {
			gotEnv = env
			if driverErr != nil {
				return nil, driverErr
			}
			return closingDriver{Driver: htmldriver.New(), stops: stops}, nil
		},
	}, &gotEnv
}

func TestHeadlessPolicy(t *testing.T) {
	table := []struct {
		policy   HeadlessPolicy
		goos     string
		expected bool
	}{
		{policy: HeadlessAuto, goos: "linux", expected: true},
		{policy: HeadlessAuto, goos: "darwin", expected: false},
		{policy: HeadlessAlways, goos: "windows", expected: true},
		{policy: HeadlessNever, goos: "linux", expected: false},
	}
	for _, row := range table {
		require.Equal(t, row.expected, row.policy.NeedsDisplay(row.goos), "%s on %s", row.policy, row.goos)
	}

	policy, err := ParseHeadlessPolicy("")
	require.NoError(t, err)
	require.Equal(t, HeadlessAuto, policy)
	_, err = ParseHeadlessPolicy("sometimes")
	require.Error(t, err)
}

func TestStartStopWithDisplay(t *testing.T) {
	var stops []string
	launcher, env := newLauncher(&stops, nil)
	s := New(launcher, HeadlessAuto, WithGOOS("linux"))

	require.Nil(t, s.Driver())
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, s.Driver())
	require.Equal(t, []string{"DISPLAY=:99"}, *env)

	require.Error(t, s.Start(context.Background()))

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	require.Equal(t, []string{"browser", "display"}, stops)
	require.Nil(t, s.Driver())
}

func TestStartWithoutDisplay(t *testing.T) {
	var stops []string
	launcher, env := newLauncher(&stops, nil)
	s := New(launcher, HeadlessAuto, WithGOOS("darwin"))

	require.NoError(t, s.Start(context.Background()))
	require.Empty(t, *env)
	require.NoError(t, s.Stop())
	require.Equal(t, []string{"browser"}, stops)
}

func TestStartFailureTearsDownDisplay(t *testing.T) {
	var stops []string
	launcher, _ := newLauncher(&stops, errors.New("chrome not found"))
	s := New(launcher, HeadlessAlways)

	err := s.Start(context.Background())
	require.ErrorContains(t, err, "chrome not found")
	require.Nil(t, s.Driver())
	require.Equal(t, []string{"display"}, stops)

	// nothing left to stop
	require.NoError(t, s.Stop())
	require.Equal(t, []string{"display"}, stops)
}

func TestStopReportsFailures(t *testing.T) {
	var stops []string
	launcher, _ := newLauncher(&stops, nil)
	launcher.StartDisplay = func(ctx context.Context) (Display, error) {
		return fakeDisplay{stops: &stops, err: errors.New("xvfb hung")}, nil
	}
	rec := &telemetry.RecorderAPI{}
	s := New(launcher, HeadlessAlways, WithTelemetry(rec))

	require.NoError(t, s.Start(context.Background()))
	err := s.Stop()
	require.ErrorContains(t, err, "xvfb hung")
	require.Equal(t, []string{"browser", "display"}, stops)

	broken := rec.Reports(telemetry.KindBroken)
	require.Len(t, broken, 1)
	require.Equal(t, "session: session.stop", broken[0].ID)

	require.Error(t, s.Start(context.Background()))
}
