package slimmerkopen

import (
	"context"
	"fmt"
	"log/slog"

	"offerwatch/lib/browser"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// advertClass is the class of the container grouping the fields of one offer.
const advertClass = "advert"

const (
	fieldArea        = "area"
	fieldDiscount    = "discount"
	fieldPrice       = "price"
	fieldDescription = "description-smaller"
)

// Candidate is an open offer found during one poll cycle. The element is
// only valid until the page is refreshed.
type Candidate struct {
	browser.Element
	// Text is what the signup button displayed before it was clicked.
	Text string
}

// Offer holds the fields scraped from an advert, a field is empty when it
// could not be read.
type Offer struct {
	Area        string
	Discount    string
	Price       string
	Description string
}

func (o Offer) IsZero() bool {
	return o == Offer{}
}

// DiscoverAndSignUp clicks every signup button on the page and returns the
// ones that were open. A button is open when it shows any text, and the
// text is read before clicking since the click may change it.
func (c *Client) DiscoverAndSignUp(ctx context.Context) ([]Candidate, error) {
	return c.discover(ctx, true)
}

// Discover returns the open offers on the page without signing up to any.
func (c *Client) Discover(ctx context.Context) ([]Candidate, error) {
	return c.discover(ctx, false)
}

func (c *Client) discover(ctx context.Context, signUp bool) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "client:Discover")
	defer span.End()

	slog.InfoContext(ctx, "looking for open offers...")
	triggers, err := c.driver.FindAll(ctx, offerTrigger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list signup buttons")
		return nil, fmt.Errorf("discover offers: %w", err)
	}

	var open []Candidate
	for i, trigger := range triggers {
		text, err := trigger.Text(ctx)
		if err != nil {
			c.tel.ReportWarning(report_discover_text, err, i)
			text = ""
		}
		if text != "" {
			open = append(open, Candidate{Element: trigger, Text: text})
		}
		if !signUp {
			continue
		}
		// already claimed offers are clicked too, the site ignores those clicks
		err = trigger.Click(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.tel.ReportWarning(report_discover_click, err, i, text)
		}
	}

	span.SetAttributes(
		attribute.Int("triggers", len(triggers)),
		attribute.Int("open", len(open)),
	)
	return open, nil
}

// Extract reads the offer fields from the advert enclosing the candidate.
// Without an advert the zero Offer is returned. A field that cannot be
// read is left empty, the other fields are still read.
func (c *Client) Extract(ctx context.Context, candidate browser.Element) Offer {
	ctx, span := tracer.Start(ctx, "client:Extract")
	defer span.End()

	advert, ok := browser.FindAncestorWithAttribute(ctx, candidate, "class", advertClass)
	if !ok {
		c.tel.ReportWarning(report_extract_advert, "no enclosing advert")
		span.SetStatus(codes.Error, "no enclosing advert")
		return Offer{}
	}

	return Offer{
		Area:        c.field(ctx, advert, fieldArea),
		Discount:    c.field(ctx, advert, fieldDiscount),
		Price:       c.field(ctx, advert, fieldPrice),
		Description: c.field(ctx, advert, fieldDescription),
	}
}

func (c *Client) field(ctx context.Context, advert browser.Element, class string) string {
	el, err := browser.FindOne(ctx, advert, browser.Attr("class", class))
	if err != nil {
		c.tel.ReportWarning(report_extract_field, err, class)
		return ""
	}
	text, err := el.Text(ctx)
	if err != nil {
		c.tel.ReportWarning(report_extract_field, err, class)
		return ""
	}
	return text
}
