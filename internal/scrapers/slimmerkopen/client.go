package slimmerkopen

import (
	"context"
	"time"

	"offerwatch/internal/components/telemetry"
	"offerwatch/lib/browser"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("offerwatch.internal.scrapers.slimmerkopen")

const (
	HomeURL = "https://www.slimmerkopen.nl"
	// LoginAction is the submission target of the login form.
	LoginAction = "https://www.slimmerkopen.nl/aanmelden"
)

var (
	loginTrigger   = browser.ID("headerBtnLogin")
	usernameInput  = browser.Attr("name", "username")
	passwordInput  = browser.Attr("name", "password")
	submitButton   = browser.Attr("value", "login")
	loggedInMarker = browser.ID("headerBtnSK")

	offerTrigger = browser.Class("respond")
)

const scrollToBottom = "window.scrollTo(0, document.body.scrollHeight);"

const (
	report_discover_text  = "discover.text"
	report_discover_click = "discover.click"
	report_extract_advert = "extract.advert"
	report_extract_field  = "extract.field"
)

// Credentials are the account details used to log in.
type Credentials struct {
	Username string
	Password string
}

// Client drives the slimmerkopen site through a browser.
type Client struct {
	driver      browser.Driver
	homeURL     string
	loginAction string
	waitTimeout time.Duration
	tel         telemetry.API
}

type Option func(c *Client)

// WithHomeURL points the client at another deployment of the site, the
// login form is then expected to submit to <home>/aanmelden.
func WithHomeURL(url string) Option {
	return func(c *Client) {
		c.homeURL = url
		c.loginAction = url + "/aanmelden"
	}
}

// WithWaitTimeout sets how long the login handshake waits for elements.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.waitTimeout = timeout
	}
}

func WithTelemetry(tel telemetry.API) Option {
	return func(c *Client) {
		c.tel = tel
	}
}

func NewClient(driver browser.Driver, opts ...Option) *Client {
	c := &Client{
		driver:      driver,
		homeURL:     HomeURL,
		loginAction: LoginAction,
		waitTimeout: browser.DefaultWaitTimeout,
		tel:         telemetry.SlogAPI{},
	}
	for _, o := range opts {
		o(c)
	}
	c.tel = telemetry.NewScopedAPI("slimmerkopen", c.tel)
	return c
}

// Refresh reloads the page, every element handed out before is stale
// afterwards.
func (c *Client) Refresh(ctx context.Context) error {
	return c.driver.Reload(ctx)
}
