package slimmerkopen

import (
	"context"
	"testing"
	"time"

	"offerwatch/internal/components/telemetry"
	"offerwatch/lib/browser"
	"offerwatch/lib/browser/htmldriver"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testHome = "https://sk.test"

const homePage = `<html><body>
<header><a id="headerBtnLogin" href="#">Inloggen</a></header>
<form action="https://sk.test/aanmelden" method="post">
	<input name="username" type="text">
	<input name="password" type="password">
	<input type="submit" value="login">
</form>
</body></html>`

const offersPage = `<html><body>
<div class="advert">
	<div class="area">Amsterdam-Noord</div>
	<div class="discount">€ 10.000 korting</div>
	<div class="price">€ 245.000</div>
	<div class="description-smaller">3-kamer appartement</div>
	<div class="footer"><button class="respond">€10 off</button></div>
</div>
<div class="advert">
	<div class="area">Utrecht</div>
	<div class="footer"><button class="respond btn-claimed"></button></div>
</div>
<aside><button class="respond" id="stray">Direct inschrijven</button></aside>
</body></html>`

func newTestClient(d *htmldriver.Driver, tel telemetry.API) *Client {
	return NewClient(d,
		WithHomeURL(testHome),
		WithWaitTimeout(50*time.Millisecond),
		WithTelemetry(tel),
	)
}

// markLoggedIn renders the logged in marker once the login form is submitted.
func markLoggedIn(d *htmldriver.Driver, clicked *goquery.Selection) error {
	if clicked.AttrOr("value", "") == "login" {
		d.Document().Find("header").AppendHtml(`<a id="headerBtnSK">Mijn SK</a>`)
	}
	return nil
}

func TestLoginHandshake(t *testing.T) {
	ctx := context.Background()
	d := htmldriver.New(
		htmldriver.WithPages(testHome, homePage),
		htmldriver.WithClickHandler(markLoggedIn),
	)
	c := newTestClient(d, &telemetry.RecorderAPI{})

	require.NoError(t, c.LoadLoginForm(ctx))
	err := c.Login(ctx, Credentials{Username: "jan@example.com", Password: "hunter2"})
	require.NoError(t, err)

	require.Equal(t, []string{testHome}, d.Visited())
	require.Equal(t, "jan@example.com", d.Typed(browser.Attr("name", "username")))
	require.Equal(t, "hunter2", d.Typed(browser.Attr("name", "password")))
	require.Equal(t, []string{scrollToBottom}, d.Scripts())

	clicked := d.Clicked()
	require.Len(t, clicked, 2)
	require.Equal(t, "headerBtnLogin", clicked[0].AttrOr("id", ""))
	require.Equal(t, "login", clicked[1].AttrOr("value", ""))
}

func TestLoadLoginFormTimeout(t *testing.T) {
	d := htmldriver.New(htmldriver.WithPages(testHome, `<html><body>maintenance</body></html>`))
	c := newTestClient(d, &telemetry.RecorderAPI{})

	err := c.LoadLoginForm(context.Background())
	require.ErrorIs(t, err, browser.ErrTimeout)
}

func TestLoginRejected(t *testing.T) {
	ctx := context.Background()
	d := htmldriver.New(htmldriver.WithPages(testHome, homePage))
	c := newTestClient(d, &telemetry.RecorderAPI{})

	require.NoError(t, c.LoadLoginForm(ctx))
	err := c.Login(ctx, Credentials{Username: "jan@example.com", Password: "wrong"})
	require.ErrorIs(t, err, browser.ErrTimeout)
}

func TestLoginMissingForm(t *testing.T) {
	ctx := context.Background()
	d := htmldriver.New(htmldriver.WithPages(testHome, `<html><body><a id="headerBtnLogin">Inloggen</a></body></html>`))
	c := newTestClient(d, &telemetry.RecorderAPI{})

	require.NoError(t, c.LoadLoginForm(ctx))
	err := c.Login(ctx, Credentials{Username: "a", Password: "b"})
	require.ErrorIs(t, err, browser.ErrNotFound)
}

func loadOffers(t *testing.T, page string, opts ...htmldriver.Option) *htmldriver.Driver {
	d := htmldriver.New(append([]htmldriver.Option{htmldriver.WithPages(testHome, page)}, opts...)...)
	err := d.Navigate(context.Background(), testHome)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDiscoverWithoutTriggers(t *testing.T) {
	d := loadOffers(t, `<html><body><div class="advert"></div></body></html>`)
	c := newTestClient(d, &telemetry.RecorderAPI{})

	candidates, err := c.DiscoverAndSignUp(context.Background())
	require.NoError(t, err)
	require.Empty(t, candidates)
	require.Empty(t, d.Clicked())
}

func TestDiscoverAndSignUp(t *testing.T) {
	page := `<html><body>
		<button class="respond">€10 off</button>
		<button class="respond"></button>
	</body></html>`
	d := loadOffers(t, page)
	c := newTestClient(d, &telemetry.RecorderAPI{})

	candidates, err := c.DiscoverAndSignUp(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "€10 off", candidates[0].Text)
	require.Len(t, d.Clicked(), 2)
}

func TestDiscoverReadsTextBeforeClick(t *testing.T) {
	// the site replaces the label of a button once signed up
	clearLabel := func(d *htmldriver.Driver, clicked *goquery.Selection) error {
		clicked.SetText("")
		return nil
	}
	d := loadOffers(t, offersPage, htmldriver.WithClickHandler(clearLabel))
	c := newTestClient(d, &telemetry.RecorderAPI{})

	candidates, err := c.DiscoverAndSignUp(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "€10 off", candidates[0].Text)
	require.Equal(t, "Direct inschrijven", candidates[1].Text)
	require.Len(t, d.Clicked(), 3)
}

func TestDiscoverDoesNotClick(t *testing.T) {
	d := loadOffers(t, offersPage)
	c := newTestClient(d, &telemetry.RecorderAPI{})

	candidates, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Empty(t, d.Clicked())
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	d := loadOffers(t, offersPage)
	rec := &telemetry.RecorderAPI{}
	c := newTestClient(d, rec)

	candidates, err := c.Discover(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	expected := Offer{
		Area:        "Amsterdam-Noord",
		Discount:    "€ 10.000 korting",
		Price:       "€ 245.000",
		Description: "3-kamer appartement",
	}
	first := c.Extract(ctx, candidates[0].Element)
	if diff := cmp.Diff(expected, first); diff != "" {
		t.Fatalf("extracted offer differs (-want +got):\n%s", diff)
	}
	// extracting again from the same page gives the same offer
	require.Equal(t, first, c.Extract(ctx, candidates[0].Element))
	require.Empty(t, rec.Reports(telemetry.KindWarning))

	// a button outside of any advert yields nothing
	stray := c.Extract(ctx, candidates[1].Element)
	require.True(t, stray.IsZero())
	warnings := rec.Reports(telemetry.KindWarning)
	require.Len(t, warnings, 1)
	require.Equal(t, "slimmerkopen: "+report_extract_advert, warnings[0].ID)
}

func TestExtractPartialAdvert(t *testing.T) {
	ctx := context.Background()
	d := loadOffers(t, offersPage)
	rec := &telemetry.RecorderAPI{}
	c := newTestClient(d, rec)

	claimed, err := browser.FindOne(ctx, d, browser.Attr("class", "respond btn-claimed"))
	require.NoError(t, err)

	offer := c.Extract(ctx, claimed)
	require.Equal(t, Offer{Area: "Utrecht"}, offer)
	require.Len(t, rec.Reports(telemetry.KindWarning), 3)
}

func TestExtractAfterRefresh(t *testing.T) {
	ctx := context.Background()
	d := loadOffers(t, offersPage)
	c := newTestClient(d, &telemetry.RecorderAPI{})

	candidates, err := c.Discover(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	require.NoError(t, c.Refresh(ctx))
	require.True(t, c.Extract(ctx, candidates[0].Element).IsZero())
}
