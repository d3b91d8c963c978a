package telemetry

import (
	"context"
	"testing"

	"offerwatch/lib/browser/htmldriver"

	"github.com/stretchr/testify/require"
)

func TestInstrumentDriver(t *testing.T) {
	ctx := context.Background()
	rec := &RecorderAPI{}
	inner := htmldriver.New(htmldriver.WithPages("https://example.test", "<html></html>"))
	driver := InstrumentDriver(inner, NewScopedAPI("test", rec))

	require.NoError(t, driver.Navigate(ctx, "https://example.test"))
	require.Error(t, driver.Navigate(ctx, "https://unknown.test"))
	require.NoError(t, driver.ExecuteScript(ctx, "window.scrollTo(0, 0);"))

	broken := rec.Reports(KindBroken)
	require.Len(t, broken, 1)
	require.Equal(t, "test: driver.navigate", broken[0].ID)
	require.Len(t, rec.Reports(KindDebug), 5)

	require.Equal(t, []string{"https://example.test", "https://unknown.test"}, inner.Visited())
	require.Equal(t, []string{"window.scrollTo(0, 0);"}, inner.Scripts())
}

func TestScopedAPI(t *testing.T) {
	rec := &RecorderAPI{}
	scoped := NewScopedAPI("outer", NewScopedAPI("inner", rec))
	scoped.ReportWarning("offer.extract", "area")
	scoped.ReportCount("cycle.signups", 2)

	warnings := rec.Reports(KindWarning)
	require.Len(t, warnings, 1)
	require.Equal(t, "inner: outer: offer.extract", warnings[0].ID)
	require.Equal(t, []any{"area"}, warnings[0].Params)

	counts := rec.Reports(KindCount)
	require.Len(t, counts, 1)
	require.EqualValues(t, 2, counts[0].Count)
}
