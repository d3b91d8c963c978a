// Package watcher runs the poll loop: log in once, then keep signing up to
// open offers and storing what they are until the context is cancelled.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"offerwatch/internal/components/chrono"
	"offerwatch/internal/components/telemetry"
	"offerwatch/internal/scrapers/slimmerkopen"
	"offerwatch/internal/session"
	"offerwatch/lib/browser"
	"offerwatch/lib/offerstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var tracer = otel.Tracer("offerwatch.internal.watcher")

// PollInterval is the pause between two poll cycles.
const PollInterval = time.Second

const (
	report_cycle_discover = "cycle.discover"
	report_cycle_refresh  = "cycle.refresh"
	report_cycle_empty    = "cycle.empty-offer"
	report_store_insert   = "offerstore.insert"
	report_cycle_signups  = "cycle.signups"
	report_metrics        = "metrics.counter"
)

// Scraper is the site specific part of the loop, implemented by
// slimmerkopen.Client.
type Scraper interface {
	LoadLoginForm(ctx context.Context) error
	Login(ctx context.Context, creds slimmerkopen.Credentials) error
	DiscoverAndSignUp(ctx context.Context) ([]slimmerkopen.Candidate, error)
	Extract(ctx context.Context, candidate browser.Element) slimmerkopen.Offer
	Refresh(ctx context.Context) error
}

// OfferSink persists scraped offers, implemented by offerstore.Store.
type OfferSink interface {
	Insert(ctx context.Context, rec offerstore.Record) (offerstore.Offer, error)
}

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	Cycle   int
	SignUps int
	Stored  int
	Failed  int
}

type Watcher struct {
	session    *session.Session
	sink       OfferSink
	creds      slimmerkopen.Credentials
	interval   time.Duration
	clientOpts []slimmerkopen.Option
	onCycle    func(CycleResult)
	clock      chrono.API
	meter      metric.Meter
	tel        telemetry.API

	signups       metric.Int64Counter
	storeFailures metric.Int64Counter
	cycles        metric.Int64Counter
}

type Option func(w *Watcher)

// WithInterval overrides PollInterval.
func WithInterval(interval time.Duration) Option {
	return func(w *Watcher) {
		w.interval = interval
	}
}

// WithClientOptions configures the scraper created once the session is up.
func WithClientOptions(opts ...slimmerkopen.Option) Option {
	return func(w *Watcher) {
		w.clientOpts = append(w.clientOpts, opts...)
	}
}

// WithCycleHook is called after every completed poll cycle.
func WithCycleHook(hook func(CycleResult)) Option {
	return func(w *Watcher) {
		w.onCycle = hook
	}
}

func WithClock(clock chrono.API) Option {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// WithMeter overrides the global otel meter.
func WithMeter(meter metric.Meter) Option {
	return func(w *Watcher) {
		w.meter = meter
	}
}

func WithTelemetry(tel telemetry.API) Option {
	return func(w *Watcher) {
		w.tel = tel
	}
}

func New(sess *session.Session, sink OfferSink, creds slimmerkopen.Credentials, opts ...Option) *Watcher {
	w := &Watcher{
		session:  sess,
		sink:     sink,
		creds:    creds,
		interval: PollInterval,
		clock:    chrono.NewStandardImpl(),
		meter:    otel.Meter("offerwatch.internal.watcher"),
		tel:      telemetry.SlogAPI{},
	}
	for _, o := range opts {
		o(w)
	}
	w.tel = telemetry.NewScopedAPI("watcher", w.tel)

	w.signups = w.counter("offers_signed_up")
	w.storeFailures = w.counter("offer_store_failures")
	w.cycles = w.counter("poll_cycles")
	return w
}

// counter falls back to a no-op counter when the meter rejects name.
func (w *Watcher) counter(name string) metric.Int64Counter {
	c, err := w.meter.Int64Counter(name)
	if err != nil {
		w.tel.ReportWarning(report_metrics, err, name)
		return noop.Int64Counter{}
	}
	return c
}

// Run starts the session, logs in and polls until ctx is cancelled, which
// is a clean exit. Login failures are returned as is. The session is
// stopped on every way out of Run.
func (w *Watcher) Run(ctx context.Context) (err error) {
	err = w.session.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		stopErr := w.session.Stop()
		if stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	driver := telemetry.InstrumentDriver(w.session.Driver(), w.tel)
	scraper := slimmerkopen.NewClient(driver, append(
		[]slimmerkopen.Option{slimmerkopen.WithTelemetry(w.tel)},
		w.clientOpts...,
	)...)
	return w.run(ctx, scraper)
}

func (w *Watcher) run(ctx context.Context, scraper Scraper) error {
	err := w.handshake(ctx, scraper)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	for cycle := 1; ; cycle++ {
		res, err := w.Cycle(ctx, scraper)
		res.Cycle = cycle
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			w.tel.ReportBroken(report_cycle_refresh, err)
		}
		if w.onCycle != nil {
			w.onCycle(res)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-w.clock.After(w.interval):
		}
	}
}

func (w *Watcher) handshake(ctx context.Context, scraper Scraper) error {
	ctx, span := tracer.Start(ctx, "watcher:handshake")
	defer span.End()

	err := scraper.LoadLoginForm(ctx)
	if err == nil {
		err = scraper.Login(ctx, w.creds)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handshake failed")
		return err
	}
	slog.InfoContext(ctx, "logged in", "username", w.creds.Username)
	return nil
}

// Cycle signs up to every open offer, stores them and refreshes the page.
// Failures to store an offer are reported and otherwise ignored, the
// returned error is only about refreshing the page.
func (w *Watcher) Cycle(ctx context.Context, scraper Scraper) (CycleResult, error) {
	ctx, span := tracer.Start(ctx, "watcher:cycle")
	defer span.End()

	var res CycleResult
	start := w.clock.Now()
	w.cycles.Add(ctx, 1)

	candidates, err := scraper.DiscoverAndSignUp(ctx)
	if err != nil {
		w.tel.ReportBroken(report_cycle_discover, err)
		span.RecordError(err)
	}
	res.SignUps = len(candidates)

	if len(candidates) > 0 {
		slog.InfoContext(ctx, fmt.Sprintf("signed up in %d open offers", len(candidates)))
		w.signups.Add(ctx, int64(len(candidates)))
		w.tel.ReportCount(report_cycle_signups, int64(len(candidates)))
		for _, candidate := range candidates {
			ok := w.store(ctx, scraper, candidate)
			if ok {
				res.Stored++
			} else {
				res.Failed++
			}
		}
	} else if err == nil {
		slog.InfoContext(ctx, "no open offers found...")
	}
	span.SetAttributes(
		attribute.Int("signups", res.SignUps),
		attribute.Int("stored", res.Stored),
	)
	slog.DebugContext(ctx, "cycle finished", "took", w.clock.Now().Sub(start))

	slog.InfoContext(ctx, "refreshing...")
	err = scraper.Refresh(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to refresh")
		return res, fmt.Errorf("refresh: %w", err)
	}
	return res, nil
}

func (w *Watcher) store(ctx context.Context, scraper Scraper, candidate slimmerkopen.Candidate) bool {
	offer := scraper.Extract(ctx, candidate.Element)
	if offer.IsZero() {
		w.tel.ReportWarning(report_cycle_empty, candidate.Text)
		return false
	}

	stored, err := w.sink.Insert(ctx, offerstore.Record{
		Area:        offer.Area,
		Discount:    offer.Discount,
		Price:       offer.Price,
		Description: offer.Description,
	})
	if err != nil {
		w.storeFailures.Add(ctx, 1)
		w.tel.ReportBroken(report_store_insert, err, offer.Area, offer.Price)
		return false
	}
	slog.DebugContext(ctx, "stored offer", "id", stored.ID, "area", offer.Area, "price", offer.Price)
	return true
}
