package xdisplay

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	d := Display{Number: 101}
	require.Equal(t, ":101", d.Name())
	require.Equal(t, "DISPLAY=:101", d.Env())
}

func TestStartStop(t *testing.T) {
	if _, err := exec.LookPath("Xvfb"); err != nil {
		t.Skip("Xvfb is not installed")
	}

	d, err := Start(context.Background(), DefaultSize)
	if err != nil {
		t.Fatal(err)
	}
	_, err = os.Stat(socketPath(d.Number))
	require.NoError(t, err)

	require.NoError(t, d.Stop())
	// stopping twice is harmless
	require.NoError(t, d.Stop())
}
