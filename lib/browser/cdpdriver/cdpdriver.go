// Package cdpdriver implements browser.Driver on top of chromedp.
package cdpdriver

import (
	"context"
	"fmt"

	"offerwatch/lib/browser"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("offerwatch.lib.browser.cdpdriver")

type Options struct {
	// ExecPath is the chrome binary to launch, the default lookup is used
	// when empty.
	ExecPath string
	Headless bool
	// Env is appended to the environment of the browser process,
	// ex. "DISPLAY=:99".
	Env          []string
	WindowWidth  int
	WindowHeight int
}

type Driver struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// New launches a browser and opens its first tab.
func New(ctx context.Context, opts Options) (*Driver, error) {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("kiosk", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if len(opts.Env) > 0 {
		allocOpts = append(allocOpts, chromedp.Env(opts.Env...))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// starts the browser
	err := chromedp.Run(browserCtx)
	if err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &Driver{
		ctx:         browserCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
	}, nil
}

// run executes actions on the browser tab while honoring the deadline and
// cancellation of ctx.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	ctx, span := tracer.Start(ctx, "Navigate")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	err := d.run(ctx, chromedp.Navigate(url))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to navigate")
	}
	return err
}

func (d *Driver) Reload(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

func (d *Driver) ExecuteScript(ctx context.Context, script string) error {
	return d.run(ctx, chromedp.Evaluate(script, nil))
}

func (d *Driver) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	return d.findAll(ctx, sel, nil)
}

func (d *Driver) findAll(ctx context.Context, sel browser.Selector, from *cdp.Node) ([]browser.Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if from != nil {
		opts = append(opts, chromedp.FromNode(from))
	}
	var nodes []*cdp.Node
	err := d.run(ctx, chromedp.Nodes(sel.CSS(), &nodes, opts...))
	if err != nil {
		return nil, err
	}
	return d.wrap(nodes), nil
}

func (d *Driver) WaitPresent(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	var nodes []*cdp.Node
	err := d.run(ctx, chromedp.Nodes(sel.CSS(), &nodes, chromedp.ByQuery))
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, browser.ErrNotFound
	}
	return &element{driver: d, node: nodes[0]}, nil
}

// Close gracefully shuts the browser down and releases the allocator.
func (d *Driver) Close() error {
	err := chromedp.Cancel(d.ctx)
	d.cancelCtx()
	d.cancelAlloc()
	return err
}

func (d *Driver) wrap(nodes []*cdp.Node) []browser.Element {
	out := make([]browser.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &element{driver: d, node: n}
	}
	return out
}

type element struct {
	driver *Driver
	node   *cdp.Node
}

func (e *element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *element) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	return e.driver.findAll(ctx, sel, e.node)
}

// Parent relies on the DOM tree chromedp mirrors from the page, the
// document node does not count as a parent.
func (e *element) Parent(ctx context.Context) (browser.Element, error) {
	e.node.RLock()
	parent := e.node.Parent
	e.node.RUnlock()
	if parent == nil || parent.NodeType != cdp.NodeTypeElement {
		return nil, browser.ErrNotFound
	}
	return &element{driver: e.driver, node: parent}, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	var value string
	var ok bool
	err := e.driver.run(ctx, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID))
	if err != nil {
		return "", err
	}
	return value, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.driver.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID))
	return text, err
}

func (e *element) Click(ctx context.Context) error {
	return e.driver.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *element) SendKeys(ctx context.Context, value string) error {
	return e.driver.run(ctx, chromedp.SendKeys(e.ids(), value, chromedp.ByNodeID))
}
