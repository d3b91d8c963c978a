package offerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"offerwatch/lib/offerstore/db"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("offerwatch.lib.offerstore")

// ErrStorage wraps every failure to write or read offers.
var ErrStorage = errors.New("offer storage")

// DefaultFile is the sqlite file used when nothing else is configured.
const DefaultFile = "offers.db"

type Config struct {
	// File is a local sqlite database.
	File string `json:"file"`
	// URL points at a remote libsql database, ex. libsql://offers.turso.io?authToken=...
	// it takes precedence over File.
	URL string `json:"url"`
}

// Open opens the configured database, creating a local file if needed.
func Open(cfg Config) (*sql.DB, error) {
	if cfg.URL != "" {
		database, err := sql.Open("libsql", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", redact(cfg.URL), err)
		}
		return database, nil
	}

	path := cfg.File
	if path == "" {
		path = DefaultFile
	}
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	database.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = database.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	}
	return database, nil
}

func redact(url string) string {
	idx := strings.Index(url, "?")
	if idx < 0 {
		return url
	}
	return url[:idx]
}

// Record is the set of fields scraped from a single offer.
type Record struct {
	Area        string
	Discount    string
	Price       string
	Description string
}

// Offer is a Record once it has been persisted.
type Offer struct {
	Record
	ID        int64
	CreatedAt time.Time
}

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Migrate creates the offers table if it does not exist yet.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("%w: migrate: %w", ErrStorage, err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// Insert persists a record, the id and creation time are assigned by the
// database. Values are always bound as parameters.
func (s Store) Insert(ctx context.Context, rec Record) (Offer, error) {
	ctx, span := tracer.Start(ctx, "Insert")
	defer span.End()

	row, err := s.qry.CreateOffer(ctx, db.CreateOfferParams{
		Area:        nullable(rec.Area),
		Discount:    nullable(rec.Discount),
		Price:       nullable(rec.Price),
		Description: nullable(rec.Description),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert offer")
		return Offer{}, fmt.Errorf("%w: insert: %w", ErrStorage, err)
	}
	span.SetAttributes(attribute.Int64("id", row.ID))

	createdAt, err := parseTimestamp(row.Time)
	if err != nil {
		return Offer{}, fmt.Errorf("%w: insert: %w", ErrStorage, err)
	}
	return Offer{Record: rec, ID: row.ID, CreatedAt: createdAt}, nil
}

// Get reads back a single offer, sql.ErrNoRows is wrapped if it does not exist.
func (s Store) Get(ctx context.Context, id int64) (Offer, error) {
	row, err := s.qry.GetOffer(ctx, id)
	if err != nil {
		return Offer{}, fmt.Errorf("%w: get %d: %w", ErrStorage, id, err)
	}
	return fromRow(row)
}

// List returns the latest offers first, at most limit of them.
func (s Store) List(ctx context.Context, limit int) ([]Offer, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	rows, err := s.qry.ListOffers(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list offers")
		return nil, fmt.Errorf("%w: list: %w", ErrStorage, err)
	}
	offers := make([]Offer, 0, len(rows))
	for _, r := range rows {
		o, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, nil
}

func (s Store) Count(ctx context.Context) (int64, error) {
	n, err := s.qry.CountOffers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStorage, err)
	}
	return n, nil
}

func fromRow(row db.Offer) (Offer, error) {
	createdAt, err := parseTimestamp(row.Time)
	if err != nil {
		return Offer{}, fmt.Errorf("%w: offer %d: %w", ErrStorage, row.ID, err)
	}
	return Offer{
		ID:        row.ID,
		CreatedAt: createdAt,
		Record: Record{
			Area:        row.Area.String,
			Discount:    row.Discount.String,
			Price:       row.Price.String,
			Description: row.Description.String,
		},
	}, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

// sqlite stores current_timestamp as UTC text, drivers may or may not
// parse it depending on the declared column type.
func parseTimestamp(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case []byte:
		return parseTimestamp(string(v))
	case string:
		for _, layout := range timestampLayouts {
			t, err := time.ParseInLocation(layout, v, time.UTC)
			if err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
}
