// Package pwdriver implements browser.Driver on top of playwright-go.
package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"offerwatch/lib/browser"

	"github.com/playwright-community/playwright-go"
)

type Options struct {
	// DriverDirectory is where the playwright driver is installed, the
	// playwright default cache is used when empty.
	DriverDirectory string
	Headless        bool
	Env             map[string]string
	WindowWidth     int
	WindowHeight    int
}

type Driver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

func New(opts Options) (*Driver, error) {
	pw, err := playwright.Run(&playwright.RunOptions{
		DriverDirectory:     opts.DriverDirectory,
		SkipInstallBrowsers: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--kiosk"},
	}
	if len(opts.Env) > 0 {
		launch.Env = opts.Env
	}
	b, err := pw.Chromium.Launch(launch)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	pageOpts := playwright.BrowserNewPageOptions{}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		pageOpts.Viewport = &playwright.Size{
			Width:  opts.WindowWidth,
			Height: opts.WindowHeight,
		}
	}
	page, err := b.NewPage(pageOpts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Driver{pw: pw, browser: b, page: page}, nil
}

// timeoutMs converts the deadline of ctx into a playwright timeout, 0
// meaning no timeout.
func timeoutMs(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return playwright.Float(0)
	}
	remaining := time.Until(deadline)
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}
	return playwright.Float(float64(remaining.Milliseconds()))
}

func translate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return context.DeadlineExceeded
	}
	return err
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{Timeout: timeoutMs(ctx)})
	return translate(ctx, err)
}

func (d *Driver) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Reload(playwright.PageReloadOptions{Timeout: timeoutMs(ctx)})
	return translate(ctx, err)
}

func (d *Driver) ExecuteScript(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Evaluate(script)
	return translate(ctx, err)
}

func (d *Driver) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := d.page.QuerySelectorAll(sel.CSS())
	if err != nil {
		return nil, translate(ctx, err)
	}
	return wrap(handles), nil
}

func (d *Driver) WaitPresent(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := d.page.WaitForSelector(sel.CSS(), playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: timeoutMs(ctx),
	})
	if err != nil {
		return nil, translate(ctx, err)
	}
	if handle == nil {
		return nil, browser.ErrNotFound
	}
	return &element{handle: handle}, nil
}

func (d *Driver) Close() error {
	return errors.Join(d.browser.Close(), d.pw.Stop())
}

func wrap(handles []playwright.ElementHandle) []browser.Element {
	out := make([]browser.Element, len(handles))
	for i, h := range handles {
		out[i] = &element{handle: h}
	}
	return out
}

type element struct {
	handle playwright.ElementHandle
}

func (e *element) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := e.handle.QuerySelectorAll(sel.CSS())
	if err != nil {
		return nil, translate(ctx, err)
	}
	return wrap(handles), nil
}

func (e *element) Parent(ctx context.Context) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parent, err := e.handle.QuerySelector("xpath=parent::*")
	if err != nil {
		return nil, translate(ctx, err)
	}
	if parent == nil {
		return nil, browser.ErrNotFound
	}
	return &element{handle: parent}, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value, err := e.handle.GetAttribute(name)
	return value, translate(ctx, err)
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.handle.InnerText()
	return text, translate(ctx, err)
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.handle.Click(playwright.ElementHandleClickOptions{Timeout: timeoutMs(ctx)})
	return translate(ctx, err)
}

func (e *element) SendKeys(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.handle.Fill(value, playwright.ElementHandleFillOptions{Timeout: timeoutMs(ctx)})
	return translate(ctx, err)
}
