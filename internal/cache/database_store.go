package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flowoff/assistente/internal/models"
)

var errDatabaseStoreNotInitialised = errors.New("cache: database store not initialised")

// DatabaseStore implements the cache Store interface using the primary SQL database.
// It is the fallback when the key-value backend is disabled.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Get retrieves a value by key, respecting expiry.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, found, err := s.live(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	return entry.Value, true, nil
}

// Set upserts the value for a given key with expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}

	expiry := time.Time{}
	if ttl > 0 {
		expiry = s.now().Add(ttl)
	}

	entry := models.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: expiry,
	}

	return s.db.WithContext(orBackground(ctx)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errDatabaseStoreNotInitialised
	}
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(orBackground(ctx)).Where("key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

func (s *DatabaseStore) Exists(ctx context.Context, key string) (bool, error) {
	_, found, err := s.live(ctx, key)
	return found, err
}

// Increment adds one to the counter at key, keeping any existing expiry.
func (s *DatabaseStore) Increment(ctx context.Context, key string) (int64, error) {
	count, _, err := s.increment(ctx, key, 0)
	return count, err
}

// IncrementWithTTL atomically increments a counter for the supplied key. The window
// is applied only when the counter is created.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	return s.increment(ctx, key, window)
}

func (s *DatabaseStore) increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errDatabaseStoreNotInitialised
	}

	now := s.now()

	var (
		count  int64
		expiry time.Time
	)

	err := s.db.WithContext(orBackground(ctx)).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		// Acquire row-level lock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error
		fresh := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !fresh {
			return err
		}
		if !fresh && entry.Expired(now) {
			fresh = true
		}

		if fresh {
			count = 1
			if window > 0 {
				expiry = now.Add(window)
			}
			entry = models.CacheEntry{Key: key, Value: []byte("1"), ExpiresAt: expiry}
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
			}).Create(&entry).Error
		}

		current, err := strconv.ParseInt(string(entry.Value), 10, 64)
		if err != nil {
			return errors.New("cache: value is not an integer")
		}
		count = current + 1
		expiry = entry.ExpiresAt
		return tx.Model(&models.CacheEntry{}).
			Where("key = ?", key).
			Updates(map[string]any{"value": []byte(strconv.FormatInt(count, 10)), "updated_at": now}).Error
	})
	if err != nil {
		return 0, 0, err
	}

	if expiry.IsZero() {
		return count, window, nil
	}
	return count, expiry.Sub(now), nil
}

// Expire resets the expiry of a live key to now+ttl.
func (s *DatabaseStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s == nil {
		return false, errDatabaseStoreNotInitialised
	}
	_, found, err := s.live(ctx, key)
	if err != nil || !found {
		return false, err
	}
	now := s.now()
	result := s.db.WithContext(orBackground(ctx)).
		Model(&models.CacheEntry{}).
		Where("key = ?", key).
		Updates(map[string]any{"expires_at": now.Add(ttl), "updated_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Clear removes every cached row.
func (s *DatabaseStore) Clear(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errDatabaseStoreNotInitialised
	}
	result := s.db.WithContext(orBackground(ctx)).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

// PurgeExpired deletes rows whose expiry is at or before now and reports how many
// were removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil {
		return 0, errDatabaseStoreNotInitialised
	}
	result := s.db.WithContext(orBackground(ctx)).
		Where("expires_at > ? AND expires_at <= ?", time.Time{}, now.UTC()).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (s *DatabaseStore) live(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	if s == nil {
		return models.CacheEntry{}, false, errDatabaseStoreNotInitialised
	}
	var entry models.CacheEntry
	err := s.db.WithContext(orBackground(ctx)).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, err
	}

	if entry.Expired(s.now()) {
		_ = s.Delete(ctx, key)
		return entry, false, nil
	}
	return entry, true, nil
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
