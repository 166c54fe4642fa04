package backup

import (
	"strings"
	"time"
)

const (
	DefaultDir            = "./backups"
	DefaultRetentionDays  = 30
	DefaultDumpCommand    = "mongodump"
	DefaultArchiveCommand = "tar"
	DefaultSourceDir      = "."
)

// DefaultExcludes are the paths left out of the files archive.
var DefaultExcludes = []string{"node_modules", ".git", "backups"}

// Config controls where artifacts are written and how they are produced.
type Config struct {
	Dir           string
	RetentionDays int
	DatabaseURI   string

	DumpCommand    string
	ArchiveCommand string
	SourceDir      string
	Excludes       []string
}

// Retention returns the age beyond which artifacts are pruned.
func (c Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Dir) == "" {
		c.Dir = DefaultDir
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = DefaultRetentionDays
	}
	if strings.TrimSpace(c.DumpCommand) == "" {
		c.DumpCommand = DefaultDumpCommand
	}
	if strings.TrimSpace(c.ArchiveCommand) == "" {
		c.ArchiveCommand = DefaultArchiveCommand
	}
	if strings.TrimSpace(c.SourceDir) == "" {
		c.SourceDir = DefaultSourceDir
	}
	if c.Excludes == nil {
		c.Excludes = append([]string(nil), DefaultExcludes...)
	}
	return c
}

// timestamp renders t as a UTC ISO-8601 instant with millisecond precision, with the
// characters that are awkward in file names replaced by dashes.
func timestamp(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}

// DatabaseArtifactName returns the file name of the database dump taken at t.
func DatabaseArtifactName(t time.Time) string {
	return "backup_" + timestamp(t) + ".tar.gz"
}

// FilesArtifactName returns the file name of the files archive taken at t.
func FilesArtifactName(t time.Time) string {
	return "files_" + DatabaseArtifactName(t)
}
