package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ParseLogLevel разбирает уровень логирования; пустая строка означает info.
func ParseLogLevel(level string) (log.Level, error) {
	if level == "" {
		return log.InfoLevel, nil
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return parsed, nil
}

// SetupLogger настраивает формат и уровень глобального logger.
func SetupLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	parsed, err := ParseLogLevel(level)
	if err != nil {
		log.WithError(err).Warn("unknown log level, using info")
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}
