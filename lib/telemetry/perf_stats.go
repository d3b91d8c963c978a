package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel"
)

// InstrumentPerfStats records process and host gauges every interval until
// ctx is done. Browsers are memory hungry so host memory is tracked too.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	meter := otel.Meter("offerwatch.perf_stats")
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	hostMemGauge, _ := meter.Float64Gauge("host_memory_used_percent")
	allocGauge, _ := meter.Int64Gauge("allocated_mb")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")

	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					slog.DebugContext(ctx, "failed to read cpu usage", "err", err)
				}
				vmem, err := mem.VirtualMemoryWithContext(ctx)
				if err == nil {
					hostMemGauge.Record(ctx, vmem.UsedPercent)
				} else {
					slog.DebugContext(ctx, "failed to read host memory", "err", err)
				}

				allocGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
