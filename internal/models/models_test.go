package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheEntryExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, CacheEntry{}.Expired(now), "zero expiry never expires")
	require.False(t, CacheEntry{ExpiresAt: now.Add(time.Second)}.Expired(now))
	require.True(t, CacheEntry{ExpiresAt: now}.Expired(now))
	require.True(t, CacheEntry{ExpiresAt: now.Add(-time.Second)}.Expired(now))
}

func TestBackupArtifactBeforeCreateAssignsID(t *testing.T) {
	first := BackupArtifact{Kind: ArtifactKindFiles}
	require.NoError(t, first.BeforeCreate(nil))
	require.Len(t, first.ID, 36)

	second := BackupArtifact{Kind: ArtifactKindFiles}
	require.NoError(t, second.BeforeCreate(nil))
	require.Less(t, first.ID, second.ID)

	preset := BackupArtifact{ID: "fixed"}
	require.NoError(t, preset.BeforeCreate(nil))
	require.Equal(t, "fixed", preset.ID)
}

