package backup

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flowoff/assistente/internal/models"
)

// Ledger persists the artifacts produced by the orchestrator. A nil Ledger is valid
// and records nothing.
type Ledger struct {
	db *gorm.DB
}

// NewLedger returns a ledger backed by db, or nil when db is nil.
func NewLedger(db *gorm.DB) *Ledger {
	if db == nil {
		return nil
	}
	return &Ledger{db: db}
}

// Record stores an artifact. A known name keeps its row id and creation time and
// takes the new kind, path and size.
func (l *Ledger) Record(ctx context.Context, artifact Artifact) error {
	if l == nil {
		return nil
	}
	row := models.BackupArtifact{
		Kind:      artifact.Kind,
		Name:      artifact.Name,
		Path:      artifact.Path,
		SizeBytes: artifact.SizeBytes,
	}
	row.CreatedAt = artifact.CreatedAt
	return l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "path", "size_bytes"}),
		}).
		Create(&row).Error
}

// MarkPruned flags the named artifacts as removed from disk.
func (l *Ledger) MarkPruned(ctx context.Context, names []string, at time.Time) error {
	if l == nil || len(names) == 0 {
		return nil
	}
	return l.db.WithContext(ctx).
		Model(&models.BackupArtifact{}).
		Where("name IN ? AND pruned_at IS NULL", names).
		Update("pruned_at", at.UTC()).Error
}

// List returns the most recent artifacts first. A non-positive limit returns all rows.
func (l *Ledger) List(ctx context.Context, limit int) ([]models.BackupArtifact, error) {
	if l == nil {
		return nil, errors.New("backup: ledger not configured")
	}
	query := l.db.WithContext(ctx).Order("created_at DESC").Order("name DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.BackupArtifact
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
