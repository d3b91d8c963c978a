package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"offerwatch/lib/browser"
)

const (
	report_driver_navigate = "driver.navigate"
	report_driver_reload   = "driver.reload"
	report_driver_script   = "driver.script"
)

// InstrumentDriver reports every page level operation of a driver, page
// loads are reported with their duration and failures are reported as
// broken.
func InstrumentDriver(driver browser.Driver, tel API) browser.Driver {
	var idcounter uint64
	return instrumentedDriver{
		Driver:    driver,
		tel:       tel,
		idcounter: &idcounter,
	}
}

type instrumentedDriver struct {
	browser.Driver
	tel       API
	idcounter *uint64
}

func (i instrumentedDriver) observe(id string, target string, fn func() error) error {
	// startTime only measures a difference so it does not need a particular clock.
	startTime := time.Now()
	reqid := atomic.AddUint64(i.idcounter, 1)
	i.tel.ReportDebug(id, reqid, target)

	err := fn()
	duration := time.Since(startTime)
	if err != nil {
		i.tel.ReportBroken(id, err, reqid, target, duration)
		return err
	}
	i.tel.ReportDebug(id, reqid, duration.String())
	return nil
}

func (i instrumentedDriver) Navigate(ctx context.Context, url string) error {
	return i.observe(report_driver_navigate, url, func() error {
		return i.Driver.Navigate(ctx, url)
	})
}

func (i instrumentedDriver) Reload(ctx context.Context) error {
	return i.observe(report_driver_reload, "", func() error {
		return i.Driver.Reload(ctx)
	})
}

func (i instrumentedDriver) ExecuteScript(ctx context.Context, script string) error {
	return i.observe(report_driver_script, script, func() error {
		return i.Driver.ExecuteScript(ctx, script)
	})
}
