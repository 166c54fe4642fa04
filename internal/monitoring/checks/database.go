package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/flowoff/assistente/internal/database"
	"github.com/flowoff/assistente/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

// Database pings the application database, which holds the backup ledger and the
// fallback cache table.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	if db == nil {
		return monitoring.NewCheck("database", staticResult(monitoring.StatusDown, "database not configured"))
	}
	return pingCheck("database", timeout, defaultDatabaseTimeout, func(ctx context.Context) error {
		return database.Ping(ctx, db)
	})
}
