package cdpdriver

import (
	"context"
	"sync"
	"testing"

	"offerwatch/lib/browser"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/require"
)

func tree() (document, advert, button *cdp.Node) {
	document = &cdp.Node{NodeID: 1, NodeType: cdp.NodeTypeDocument}
	advert = &cdp.Node{NodeID: 2, NodeType: cdp.NodeTypeElement, Parent: document}
	button = &cdp.Node{NodeID: 3, NodeType: cdp.NodeTypeElement, Parent: advert}
	return document, advert, button
}

func TestParent(t *testing.T) {
	ctx := context.Background()
	_, advert, button := tree()

	parent, err := (&element{node: button}).Parent(ctx)
	require.NoError(t, err)
	require.Same(t, advert, parent.(*element).node)

	_, err = (&element{node: advert}).Parent(ctx)
	require.ErrorIs(t, err, browser.ErrNotFound)

	_, err = (&element{node: &cdp.Node{NodeType: cdp.NodeTypeElement}}).Parent(ctx)
	require.ErrorIs(t, err, browser.ErrNotFound)
}

// chromedp rewires parents from its event loop while holding the node lock.
func TestParentWhileTreeChanges(t *testing.T) {
	ctx := context.Background()
	document, advert, button := tree()
	other := &cdp.Node{NodeID: 4, NodeType: cdp.NodeTypeElement, Parent: document}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			button.Lock()
			if i%2 == 0 {
				button.Parent = other
			} else {
				button.Parent = advert
			}
			button.Unlock()
		}
	}()

	el := &element{node: button}
	for i := 0; i < 1000; i++ {
		parent, err := el.Parent(ctx)
		require.NoError(t, err)
		got := parent.(*element).node
		require.True(t, got == advert || got == other)
	}
	wg.Wait()
}
