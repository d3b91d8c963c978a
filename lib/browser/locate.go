package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxAncestorDepth bounds the upward walk of FindAncestorWithAttribute.
const MaxAncestorDepth = 50

// DefaultWaitTimeout is the timeout used by WaitFor when none is given.
const DefaultWaitTimeout = 10 * time.Second

// FindOne returns the first element under root matching sel.
func FindOne(ctx context.Context, root Scope, sel Selector) (Element, error) {
	elements, err := root.FindAll(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", sel, err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("find %s: %w", sel, ErrNotFound)
	}
	return elements[0], nil
}

// FindAncestorWithAttribute walks strictly upward from leaf and returns the
// nearest ancestor whose attribute equals value. Any failure during the
// walk, including reaching the top of the document, reports false.
func FindAncestorWithAttribute(ctx context.Context, leaf Element, attr, value string) (Element, bool) {
	current := leaf
	for i := 0; i < MaxAncestorDepth; i++ {
		parent, err := current.Parent(ctx)
		if err != nil || parent == nil {
			return nil, false
		}
		got, err := parent.Attribute(ctx, attr)
		if err != nil {
			return nil, false
		}
		if got == value {
			return parent, true
		}
		current = parent
	}
	return nil, false
}

// WaitFor blocks until an element matching sel is present on the page or
// the timeout elapses, in which case the error wraps ErrTimeout. A timeout
// of zero means DefaultWaitTimeout.
func WaitFor(ctx context.Context, driver Driver, sel Selector, timeout time.Duration) (Element, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := driver.WaitPresent(waitCtx, sel)
	if err == nil {
		return el, nil
	}
	// the caller's own cancellation is not a timeout
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || waitCtx.Err() != nil {
		return nil, fmt.Errorf("wait for %s after %s: %w", sel, timeout, ErrTimeout)
	}
	return nil, fmt.Errorf("wait for %s: %w", sel, err)
}
