package app

import (
	"github.com/flowoff/assistente/pkg/logger"
)

// ConfigureLogging initialises the process logger from the server settings.
func ConfigureLogging(cfg ServerConfig) error {
	return logger.InitWithOptions(cfg.LoggerOptions())
}

// LoggerOptions maps the logging keys of ServerConfig onto logger.Options.
func (c ServerConfig) LoggerOptions() logger.Options {
	return logger.Options{
		Level:       c.LogLevel,
		Environment: c.Environment,
		Format:      c.LogFormat,
		Dir:         c.LogDir,
		MaxSizeMB:   c.LogMaxSizeMB,
		MaxBackups:  c.LogMaxBackups,
	}
}
