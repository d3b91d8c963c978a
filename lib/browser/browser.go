package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a lookup matches no rendered element.
	ErrNotFound = errors.New("element not found")
	// ErrTimeout is returned when a bounded wait expires before the element shows up.
	ErrTimeout = errors.New("timed out waiting for element")
)

// Selector identifies elements by one of their attributes.
type Selector struct {
	Attr  string
	Value string
	// Token matches when Value is one of the whitespace separated
	// words of the attribute (the way class names are matched),
	// otherwise the whole attribute must equal Value.
	Token bool
}

// Attr matches elements whose attribute is exactly equal to value.
func Attr(name, value string) Selector {
	return Selector{Attr: name, Value: value}
}

// ID matches the element with the given id.
func ID(id string) Selector {
	return Attr("id", id)
}

// Class matches elements carrying the given class name among others.
func Class(name string) Selector {
	return Selector{Attr: "class", Value: name, Token: true}
}

var cssEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// CSS renders the selector as a css attribute selector.
func (s Selector) CSS() string {
	op := "="
	if s.Token {
		op = "~="
	}
	return fmt.Sprintf(`[%s%s"%s"]`, s.Attr, op, cssEscaper.Replace(s.Value))
}

func (s Selector) String() string {
	return s.CSS()
}

// Scope is anything elements can be looked up under, either a whole page
// or the subtree of a single element.
type Scope interface {
	// FindAll returns every element under the scope matching the selector
	// in document order. No match is an empty slice, not an error.
	FindAll(ctx context.Context, sel Selector) ([]Element, error)
}

// Element is a handle to a node of the currently rendered page. Handles
// are invalidated by any navigation or reload of the page they came from.
type Element interface {
	Scope

	// Parent returns the parent element, or ErrNotFound when the element
	// has no element parent.
	Parent(ctx context.Context) (Element, error)
	// Attribute returns the value of the named attribute, empty when absent.
	Attribute(ctx context.Context, name string) (string, error)
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, value string) error
}

// Driver is the capability set offerwatch needs from a browser engine.
type Driver interface {
	Scope

	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	ExecuteScript(ctx context.Context, script string) error
	// WaitPresent blocks until an element matching the selector is in
	// the DOM, or until ctx is done.
	WaitPresent(ctx context.Context, sel Selector) (Element, error)
	Close() error
}
