package models

import (
	"time"
)

// CacheEntry represents a cached value stored in the database fallback.
// A zero ExpiresAt means the entry never expires.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:512"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the entry carries an expiry at or before now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
