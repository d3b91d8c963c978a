// Package htmldriver implements browser.Driver over static html documents
// parsed with goquery. Nothing is rendered and no script runs: clicks,
// keystrokes and scripts are only recorded. It is used to inspect saved
// pages offline and to exercise scraping logic in tests.
package htmldriver

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"offerwatch/lib/browser"
	"offerwatch/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ClickHandler is called after an element is clicked, it may mutate the
// current document or navigate the driver.
type ClickHandler func(d *Driver, clicked *goquery.Selection) error

type Option func(d *Driver)

// WithPages registers the documents served for url. Every load of url
// (navigation or reload) consumes the next document, the last one is
// served forever after.
func WithPages(url string, pages ...string) Option {
	return func(d *Driver) {
		d.pages[url] = append(d.pages[url], pages...)
	}
}

func WithClickHandler(handler ClickHandler) Option {
	return func(d *Driver) {
		d.onClick = handler
	}
}

// WithPollInterval sets how often WaitPresent re-checks the document.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Driver) {
		d.pollInterval = interval
	}
}

type Driver struct {
	mu           sync.Mutex
	pages        map[string][]string
	loads        map[string]int
	onClick      ClickHandler
	pollInterval time.Duration

	url        string
	doc        *goquery.Document
	generation int
	closed     bool

	clicks   []*goquery.Selection
	scripts  []string
	visited  []string
	keystore map[*html.Node]string
}

func New(opts ...Option) *Driver {
	d := &Driver{
		pages:        map[string][]string{},
		loads:        map[string]int{},
		pollInterval: 20 * time.Millisecond,
		keystore:     map[*html.Node]string{},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// FromReader creates a driver already showing the document read from r.
func FromReader(url string, r io.Reader) (*Driver, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	d := New()
	d.url = url
	d.doc = doc
	return d, nil
}

func (d *Driver) load(url string) error {
	pages, ok := d.pages[url]
	if !ok || len(pages) == 0 {
		return fmt.Errorf("navigate %s: no page registered", url)
	}
	idx := d.loads[url]
	if idx >= len(pages) {
		idx = len(pages) - 1
	}
	d.loads[url]++

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pages[idx]))
	if err != nil {
		return err
	}
	d.url = url
	d.doc = doc
	d.generation++
	return nil
}

func (d *Driver) checkOpen() error {
	if d.closed {
		return fmt.Errorf("driver closed")
	}
	return nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.visited = append(d.visited, url)
	return d.load(url)
}

func (d *Driver) Reload(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	if d.url == "" {
		return fmt.Errorf("reload: nothing loaded")
	}
	if _, ok := d.pages[d.url]; !ok {
		// documents read with FromReader cannot be refetched
		return nil
	}
	return d.load(d.url)
}

func (d *Driver) ExecuteScript(ctx context.Context, script string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.scripts = append(d.scripts, script)
	return nil
}

func (d *Driver) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	if d.doc == nil {
		return nil, nil
	}
	return d.wrap(d.doc.Find(sel.CSS())), nil
}

func (d *Driver) WaitPresent(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		found, err := d.FindAll(ctx, sel)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found[0], nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Document returns the document currently shown.
func (d *Driver) Document() *goquery.Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc
}

// Clicked returns every element clicked so far, in order.
func (d *Driver) Clicked() []*goquery.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*goquery.Selection(nil), d.clicks...)
}

func (d *Driver) Scripts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.scripts...)
}

// Visited returns the urls passed to Navigate.
func (d *Driver) Visited() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.visited...)
}

// Typed returns the keys sent to the first element matching sel.
func (d *Driver) Typed(sel browser.Selector) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return ""
	}
	nodes := d.doc.Find(sel.CSS()).Nodes
	if len(nodes) == 0 {
		return ""
	}
	return d.keystore[nodes[0]]
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Driver) wrap(sel *goquery.Selection) []browser.Element {
	out := make([]browser.Element, 0, len(sel.Nodes))
	for _, n := range sel.Nodes {
		out = append(out, &element{driver: d, node: n, generation: d.generation})
	}
	return out
}

type element struct {
	driver     *Driver
	node       *html.Node
	generation int
}

// stale must be called with the driver lock held.
func (e *element) stale() error {
	if err := e.driver.checkOpen(); err != nil {
		return err
	}
	if e.generation != e.driver.generation {
		return fmt.Errorf("stale element reference: page was reloaded")
	}
	return nil
}

func (e *element) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if err := e.stale(); err != nil {
		return nil, err
	}
	return e.driver.wrap(goquery.NewDocumentFromNode(e.node).Find(sel.CSS())), nil
}

func (e *element) Parent(ctx context.Context) (browser.Element, error) {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if err := e.stale(); err != nil {
		return nil, err
	}
	parent := e.node.Parent
	if parent == nil || parent.Type != html.ElementNode {
		return nil, browser.ErrNotFound
	}
	return &element{driver: e.driver, node: parent, generation: e.generation}, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if err := e.stale(); err != nil {
		return "", err
	}
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, nil
		}
	}
	return "", nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if err := e.stale(); err != nil {
		return "", err
	}
	text := goquery.NewDocumentFromNode(e.node).Text()
	return textutil.CollapseSpace(text), nil
}

func (e *element) Click(ctx context.Context) error {
	e.driver.mu.Lock()
	if err := e.stale(); err != nil {
		e.driver.mu.Unlock()
		return err
	}
	clicked := goquery.NewDocumentFromNode(e.node).Selection
	e.driver.clicks = append(e.driver.clicks, clicked)
	handler := e.driver.onClick
	e.driver.mu.Unlock()

	if handler == nil {
		return nil
	}
	return handler(e.driver, clicked)
}

func (e *element) SendKeys(ctx context.Context, value string) error {
	e.driver.mu.Lock()
	defer e.driver.mu.Unlock()
	if err := e.stale(); err != nil {
		return err
	}
	e.driver.keystore[e.node] += value
	return nil
}
