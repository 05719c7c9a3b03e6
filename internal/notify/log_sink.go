package notify

import (
	"context"
	"log/slog"
)

type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Kind == KindError {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, "notification",
		"profile_id", n.ProfileID,
		"kind", n.Kind,
		"message", n.Message,
	)
}
