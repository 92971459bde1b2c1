package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends runs each test against every Store implementation that works
// without external services.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := Open(DriverSQLite, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStore_RecordThenLookup(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.RecordMapping(ctx, "100", "200"))

			got, found, err := s.LookupTranslatedID(ctx, "100")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "200", got)
		})
	}
}

func TestStore_LookupAbsentIsNotAnError(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, found, err := s.LookupTranslatedID(context.Background(), "missing")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Empty(t, got)
		})
	}
}

func TestStore_LookupIsDirectional(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.RecordMapping(ctx, "100", "200"))

			_, found, err := s.LookupTranslatedID(ctx, "200")
			require.NoError(t, err)
			assert.False(t, found, "reverse lookup must not match a forward-only row")
		})
	}
}

func TestStore_FirstRowWins(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.RecordMapping(ctx, "100", "200"))
			require.NoError(t, s.RecordMapping(ctx, "100", "300"))

			got, found, err := s.LookupTranslatedID(ctx, "100")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "200", got)

			rows, err := s.Mappings(ctx)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "300", rows[1].TranslatedID)
		})
	}
}

func TestStore_RejectsEmptyIDs(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.RecordMapping(context.Background(), "", "200"))
			assert.Error(t, s.RecordMapping(context.Background(), "100", " "))
		})
	}
}

func TestStore_ConcurrentWriters(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			errs := make(chan error, 20)
			for i := range 20 {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- s.RecordMapping(ctx, fmt.Sprintf("src-%d", i), fmt.Sprintf("dst-%d", i))
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			for i := range 20 {
				got, found, err := s.LookupTranslatedID(ctx, fmt.Sprintf("src-%d", i))
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, fmt.Sprintf("dst-%d", i), got)
			}
		})
	}
}

func TestOpen_SQLitePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(DriverSQLite, dir)
	require.NoError(t, err)
	require.NoError(t, s.RecordMapping(ctx, "100", "200"))
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, SQLiteFile))
	require.NoError(t, err)

	reopened, err := Open(DriverSQLite, dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, found, err := reopened.LookupTranslatedID(ctx, "100")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "200", got)
}

func TestOpen_Drivers(t *testing.T) {
	s, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(DriverSQLite, "")
	assert.Error(t, err)

	_, err = Open(DriverPostgres, "")
	assert.Error(t, err)

	_, err = Open("mongo", "x")
	assert.Error(t, err)
}
