package offerstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) Store {
	database, err := Open(Config{File: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	store := NewStore(database)
	err = store.Migrate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestInsertRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	records := []Record{
		{
			Area:        "Amsterdam-Noord",
			Discount:    "€ 10.000 korting",
			Price:       "€ 245.000",
			Description: "3-kamer appartement",
		},
		{
			Area:        `O'Neill's "corner"`,
			Discount:    "'); drop table offers; --",
			Price:       "",
			Description: "multi\nline",
		},
		{},
	}

	before := time.Now().UTC().Add(-time.Minute)
	var ids []int64
	for _, rec := range records {
		inserted, err := store.Insert(ctx, rec)
		if err != nil {
			t.Fatal(err)
		}
		require.NotZero(t, inserted.ID)
		require.True(t, inserted.CreatedAt.After(before))
		ids = append(ids, inserted.ID)

		stored, err := store.Get(ctx, inserted.ID)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(rec, stored.Record); diff != "" {
			t.Fatalf("stored record differs (-want +got):\n%s", diff)
		}
		require.Equal(t, inserted.ID, stored.ID)
		require.False(t, stored.CreatedAt.IsZero())
	}
	require.Len(t, ids, 3)
	require.NotEqual(t, ids[0], ids[1])
	require.NotEqual(t, ids[1], ids[2])

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)
}

func TestList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, area := range []string{"a", "b", "c"} {
		_, err := store.Insert(ctx, Record{Area: area})
		if err != nil {
			t.Fatal(err)
		}
	}

	offers, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	require.Equal(t, "c", offers[0].Area)
	require.Equal(t, "b", offers[1].Area)
}

func TestGetMissing(t *testing.T) {
	store := openStore(t)
	_, err := store.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrStorage)
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestInsertWithoutTable(t *testing.T) {
	database, err := Open(Config{File: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	_, err = NewStore(database).Insert(context.Background(), Record{Area: "x"})
	require.ErrorIs(t, err, ErrStorage)
}

func TestParseTimestamp(t *testing.T) {
	expected := time.Date(2024, time.March, 3, 14, 5, 9, 0, time.UTC)
	table := []struct {
		input interface{}
	}{
		{input: "2024-03-03 14:05:09"},
		{input: []byte("2024-03-03 14:05:09")},
		{input: "2024-03-03T14:05:09Z"},
		{input: expected},
		{input: expected.Unix()},
	}
	for _, row := range table {
		got, err := parseTimestamp(row.input)
		require.NoError(t, err)
		require.True(t, expected.Equal(got), "input %v parsed as %v", row.input, got)
	}

	_, err := parseTimestamp("yesterday")
	require.Error(t, err)
	_, err = parseTimestamp(3.5)
	require.Error(t, err)
}
