package testutil

import (
	"context"
	"testing"

	"offerwatch/lib/offerstore"
)

// OpenStore opens an in-memory offer store with its schema in place, it is
// closed when the test finishes.
func OpenStore(t testing.TB) offerstore.Store {
	database, err := offerstore.Open(offerstore.Config{File: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	store := offerstore.NewStore(database)
	err = store.Migrate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return store
}
