package handlers

import (
	"context"
	stdErrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowoff/assistente/internal/backup"
	"github.com/flowoff/assistente/internal/models"
	"github.com/flowoff/assistente/pkg/errors"
	"github.com/flowoff/assistente/pkg/response"
)

const (
	defaultBackupListLimit = 50
	maxBackupListLimit     = 500
)

// BackupRunner runs the backup pipeline on demand.
type BackupRunner interface {
	RunFull(ctx context.Context) (backup.Report, error)
	Prune(ctx context.Context) (backup.PruneReport, error)
}

// BackupLister lists recorded artifacts.
type BackupLister interface {
	List(ctx context.Context, limit int) ([]models.BackupArtifact, error)
}

// BackupHandler triggers backups and lists their artifacts.
type BackupHandler struct {
	runner BackupRunner
	lister BackupLister
}

// NewBackupHandler constructs a BackupHandler. lister may be nil when no ledger is kept.
func NewBackupHandler(runner BackupRunner, lister BackupLister) *BackupHandler {
	return &BackupHandler{runner: runner, lister: lister}
}

// List handles GET /api/backups.
func (h *BackupHandler) List(c *gin.Context) {
	if h.lister == nil {
		response.List(c, []models.BackupArtifact{}, 0)
		return
	}

	limit := queryLimit(c, "limit", defaultBackupListLimit, maxBackupListLimit)
	rows, err := h.lister.List(requestContext(c), limit)
	if err != nil {
		response.Error(c, errors.Wrap(err, "Failed to list backups"))
		return
	}
	response.List(c, rows, len(rows))
}

// Run handles POST /api/backups. The request waits for the pipeline to finish.
func (h *BackupHandler) Run(c *gin.Context) {
	report, err := h.runner.RunFull(requestContext(c))
	if err != nil {
		response.Error(c, backupError(err))
		return
	}
	response.Success(c, http.StatusCreated, report)
}

// Prune handles POST /api/backups/prune.
func (h *BackupHandler) Prune(c *gin.Context) {
	report, err := h.runner.Prune(requestContext(c))
	if err != nil {
		response.Error(c, backupError(err))
		return
	}
	response.Success(c, http.StatusOK, report)
}

func backupError(err error) error {
	if stdErrors.Is(err, backup.ErrBackupInProgress) {
		return errors.New("BACKUP_IN_PROGRESS", "A backup is already running", http.StatusConflict)
	}
	var cmdErr *backup.CommandError
	if stdErrors.As(err, &cmdErr) {
		return errors.New("BACKUP_COMMAND_FAILED", cmdErr.Command+" failed", http.StatusBadGateway).WithInternal(err)
	}
	return errors.Wrap(err, "Backup failed")
}
