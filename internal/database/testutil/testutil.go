// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flowoff/assistente/internal/database"
	"github.com/flowoff/assistente/internal/models"
)

// Option customises MustOpenTestDB.
type Option func(*options)

type options struct {
	migrate bool
	onDisk  bool
	entries []models.CacheEntry
}

// WithAutoMigrate creates the schema after opening.
func WithAutoMigrate() Option {
	return func(o *options) { o.migrate = true }
}

// WithFile stores the database in the test's temporary directory instead of memory.
func WithFile() Option {
	return func(o *options) { o.onDisk = true }
}

// WithCacheEntries migrates the schema and inserts entries.
func WithCacheEntries(entries ...models.CacheEntry) Option {
	return func(o *options) {
		o.migrate = true
		o.entries = append(o.entries, entries...)
	}
}

// MustOpenTestDB opens a SQLite database private to t and closes it on cleanup.
func MustOpenTestDB(t *testing.T, opts ...Option) *gorm.DB {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	path := "memory:" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	if o.onDisk {
		path = filepath.Join(t.TempDir(), "test.sqlite")
	}
	db, err := database.Open(database.Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	if o.migrate {
		require.NoError(t, database.AutoMigrate(db))
	}
	if len(o.entries) > 0 {
		require.NoError(t, db.Create(&o.entries).Error)
	}
	return db
}
