package logsink

import (
	"context"
	"log/slog"
)

// Slog adapts log/slog to Sink. Grounded on the teacher's
// internal/controller, which logs through `log = slog.Default()`
// directly; here the same default logger is wrapped so the pool can swap
// loggers without touching the global default.
type Slog struct {
	logger *slog.Logger
}

// NewSlog wraps logger, or slog.Default() if logger is nil.
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

func (s *Slog) Trace(msg string, kv ...any) {
	s.logger.Log(context.Background(), slog.LevelDebug-4, msg, kv...)
}

func (s *Slog) Debug(msg string, kv ...any) {
	s.logger.Debug(msg, kv...)
}

func (s *Slog) Info(msg string, kv ...any) {
	s.logger.Info(msg, kv...)
}

func (s *Slog) Warning(msg string, kv ...any) {
	s.logger.Warn(msg, kv...)
}

func (s *Slog) Error(msg string, kv ...any) {
	s.logger.Error(msg, kv...)
}

func (s *Slog) Critical(msg string, kv ...any) {
	s.logger.Log(context.Background(), slog.LevelError+4, msg, kv...)
}

var _ Sink = (*Slog)(nil)
