package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// slogAdapter routes whatsmeow's printf-style logging into slog.
type slogAdapter struct {
	log      *slog.Logger
	minLevel slog.Level
}

// NewLogger returns a whatsmeow logger writing to log at or above level
// ("DEBUG", "INFO", "WARN", "ERROR").
func NewLogger(log *slog.Logger, level string) waLog.Logger {
	var minLevel slog.Level
	if err := minLevel.UnmarshalText([]byte(level)); err != nil {
		minLevel = slog.LevelWarn
	}
	return &slogAdapter{log: log, minLevel: minLevel}
}

func (s *slogAdapter) logf(level slog.Level, msg string, args []interface{}) {
	if level < s.minLevel || !s.log.Enabled(context.Background(), level) {
		return
	}
	s.log.Log(context.Background(), level, fmt.Sprintf(msg, args...))
}

func (s *slogAdapter) Debugf(msg string, args ...interface{}) {
	s.logf(slog.LevelDebug, msg, args)
}

func (s *slogAdapter) Infof(msg string, args ...interface{}) {
	s.logf(slog.LevelInfo, msg, args)
}

func (s *slogAdapter) Warnf(msg string, args ...interface{}) {
	s.logf(slog.LevelWarn, msg, args)
}

func (s *slogAdapter) Errorf(msg string, args ...interface{}) {
	s.logf(slog.LevelError, msg, args)
}

func (s *slogAdapter) Sub(module string) waLog.Logger {
	return &slogAdapter{log: s.log.With("module", module), minLevel: s.minLevel}
}

var _ waLog.Logger = (*slogAdapter)(nil)
