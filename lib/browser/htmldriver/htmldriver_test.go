package htmldriver

import (
	"context"
	"strings"
	"testing"
	"time"

	"offerwatch/lib/browser"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const url = "https://sk.test"

func TestPagesAdvanceOnLoad(t *testing.T) {
	ctx := context.Background()
	d := New(WithPages(url,
		`<p id="one">first</p>`,
		`<p id="two">second</p>`,
	))

	require.NoError(t, d.Navigate(ctx, url))
	one, err := d.FindAll(ctx, browser.ID("one"))
	require.NoError(t, err)
	require.Len(t, one, 1)

	require.NoError(t, d.Reload(ctx))
	require.NoError(t, d.Reload(ctx))
	two, err := d.FindAll(ctx, browser.ID("two"))
	require.NoError(t, err)
	require.Len(t, two, 1)

	_, err = one[0].Text(ctx)
	require.Error(t, err, "handles from an earlier load are stale")

	require.Error(t, d.Navigate(ctx, "https://unknown.test"))
	require.Equal(t, []string{url, "https://unknown.test"}, d.Visited())
}

func TestElementReads(t *testing.T) {
	ctx := context.Background()
	d, err := FromReader(url, strings.NewReader(`<html><body>
<div class="advert"><span class="price">
	€ 245.000
</span><input name="username"></div>
</body></html>`))
	require.NoError(t, err)

	price, err := browser.FindOne(ctx, d, browser.Class("price"))
	require.NoError(t, err)
	text, err := price.Text(ctx)
	require.NoError(t, err)
	require.Equal(t, "€ 245.000", text)

	parent, err := price.Parent(ctx)
	require.NoError(t, err)
	class, err := parent.Attribute(ctx, "class")
	require.NoError(t, err)
	require.Equal(t, "advert", class)

	missing, err := parent.Attribute(ctx, "id")
	require.NoError(t, err)
	require.Equal(t, "", missing)

	input, err := browser.FindOne(ctx, parent, browser.Attr("name", "username"))
	require.NoError(t, err)
	require.NoError(t, input.SendKeys(ctx, "jan"))
	require.NoError(t, input.SendKeys(ctx, "@example.com"))
	require.Equal(t, "jan@example.com", d.Typed(browser.Attr("name", "username")))

	// reload keeps a document that was not served from registered pages
	require.NoError(t, d.Reload(ctx))
	_, err = price.Text(ctx)
	require.NoError(t, err)
}

func TestParentOfRoot(t *testing.T) {
	ctx := context.Background()
	d, err := FromReader(url, strings.NewReader(`<html lang="nl"><body></body></html>`))
	require.NoError(t, err)

	root, err := browser.FindOne(ctx, d, browser.Attr("lang", "nl"))
	require.NoError(t, err)
	_, err = root.Parent(ctx)
	require.ErrorIs(t, err, browser.ErrNotFound)
}

func TestClickHandler(t *testing.T) {
	ctx := context.Background()
	d := New(
		WithPages(url, `<button value="login">Login</button><header></header>`),
		WithClickHandler(func(d *Driver, clicked *goquery.Selection) error {
			d.Document().Find("header").AppendHtml(`<a id="marker"></a>`)
			return nil
		}),
		WithPollInterval(time.Millisecond),
	)
	require.NoError(t, d.Navigate(ctx, url))

	button, err := browser.FindOne(ctx, d, browser.Attr("value", "login"))
	require.NoError(t, err)
	require.NoError(t, button.Click(ctx))

	_, err = browser.WaitFor(ctx, d, browser.ID("marker"), time.Second)
	require.NoError(t, err)
	require.Len(t, d.Clicked(), 1)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	d := New(WithPages(url, `<p></p>`))
	require.NoError(t, d.Close())
	require.True(t, d.Closed())
	require.Error(t, d.Navigate(ctx, url))
	require.Error(t, d.ExecuteScript(ctx, "1"))
}
