package app

import (
	"strings"

	"github.com/flowoff/assistente/internal/backup"
)

// OrchestratorConfig converts BackupConfig into the backup package representation.
func (c BackupConfig) OrchestratorConfig() backup.Config {
	excludes := make([]string, 0, len(c.Excludes))
	for _, exclude := range c.Excludes {
		if trimmed := strings.TrimSpace(exclude); trimmed != "" {
			excludes = append(excludes, trimmed)
		}
	}
	if len(c.Excludes) == 0 {
		excludes = nil
	}

	return backup.Config{
		Dir:            strings.TrimSpace(c.Path),
		RetentionDays:  c.RetentionDays,
		DatabaseURI:    strings.TrimSpace(c.DatabaseURI),
		DumpCommand:    strings.TrimSpace(c.DumpCommand),
		ArchiveCommand: strings.TrimSpace(c.ArchiveCommand),
		SourceDir:      strings.TrimSpace(c.SourceDir),
		Excludes:       excludes,
	}
}
