package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Backup artifact kinds.
const (
	ArtifactKindDatabase = "database"
	ArtifactKindFiles    = "files"
)

// BackupArtifact records an archive produced by the backup orchestrator. IDs are
// UUIDv7 so they sort in creation order.
type BackupArtifact struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	Kind      string     `gorm:"size:32;index" json:"kind"`
	Name      string     `gorm:"size:255;uniqueIndex" json:"name"`
	Path      string     `gorm:"size:1024" json:"path"`
	SizeBytes int64      `json:"size_bytes"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	PrunedAt  *time.Time `gorm:"index" json:"pruned_at,omitempty"`
}

// BeforeCreate assigns an ID when the caller left it empty.
func (a *BackupArtifact) BeforeCreate(*gorm.DB) error {
	if a.ID != "" {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	a.ID = id.String()
	return nil
}

