package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"

	DefaultMongoURI = "mongodb://localhost:27017"
	DefaultDatabase = "panoptes"
)

var (
	ErrNotFound          = errors.New("docstore: not found")
	ErrUnknownCollection = errors.New("docstore: unknown collection")
)

// Collections known to the PANOPTES unit. "current" holds the latest entry of
// every other collection, keyed by type.
var Collections = []string{
	"config",
	"current",
	"drift_align",
	"environment",
	"mount",
	"observations",
	"offset_info",
	"state",
	"weather",
}

type Record struct {
	ID   string         `json:"id,omitempty"`
	Type string         `json:"type"`
	Date time.Time      `json:"date"`
	Data map[string]any `json:"data"`
}

type Store interface {
	Insert(ctx context.Context, collection string, data map[string]any) (string, error)
	// InsertCurrent replaces the current entry for collection. When keep is set
	// the record is also appended to collection and its id returned.
	InsertCurrent(ctx context.Context, collection string, data map[string]any, keep bool) (string, error)
	GetCurrent(ctx context.Context, collection string) (Record, error)
	Find(ctx context.Context, collection string, limit int) ([]Record, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Options struct {
	Driver   string
	URI      string
	Database string
	Path     string
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverMongo:
		return OpenMongo(ctx, opts.URI, opts.Database)
	case DriverSQLite:
		return OpenSQLite(opts.Path)
	default:
		return nil, fmt.Errorf("docstore: unknown driver %q", opts.Driver)
	}
}

func checkCollection(name string) error {
	for _, c := range Collections {
		if c == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// checkTyped rejects "current", which only holds copies of the other collections.
func checkTyped(name string) error {
	if name == "current" {
		return fmt.Errorf("%w: %q is not a record type", ErrUnknownCollection, name)
	}
	return checkCollection(name)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
