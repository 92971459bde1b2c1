// Package store persists the identity mapping between relayed messages and
// the posts created for them on the far side of a route.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Mapping is one append-only row: the original message id and the id of the
// translated repost.
type Mapping struct {
	SourceID     string    `json:"source_id"`
	TranslatedID string    `json:"translated_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store records and looks up mappings. Lookups are directional: they match on
// SourceID only. Implementations must be safe for concurrent use.
type Store interface {
	RecordMapping(ctx context.Context, sourceID, translatedID string) error
	// LookupTranslatedID reports found=false with a nil error when sourceID
	// was never recorded.
	LookupTranslatedID(ctx context.Context, sourceID string) (translatedID string, found bool, err error)
	Mappings(ctx context.Context) ([]Mapping, error)
	Close() error
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// SQLiteFile is the database file created under the sqlite store path.
	SQLiteFile = "posts.db"
)

var errEmptyID = errors.New("store: message id is empty")

// Open creates a store for the given driver. location is a directory for
// sqlite and a DSN for postgres; it is ignored for memory.
func Open(driver, location string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case "", DriverSQLite:
		if location == "" {
			return nil, errors.New("store: sqlite path is required")
		}
		if err := os.MkdirAll(location, 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", location, err)
		}
		return NewSQLiteStore(filepath.Join(location, SQLiteFile))
	case DriverPostgres:
		if location == "" {
			return nil, errors.New("store: postgres dsn is required")
		}
		return NewPostgresStore(location)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}

func checkIDs(ids ...string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return errEmptyID
		}
	}
	return nil
}
