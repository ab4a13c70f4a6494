// internal/notification/sink.go
package notification

import (
	"context"
	"log/slog"
)

// Sink delivers a plain-text message to one address. It reports success as a boolean;
// callers never act on delivery failures beyond logging them.
type Sink interface {
	Send(ctx context.Context, address, message string) bool
}

// LogSink stands in for a provider when a channel is not configured. Message bodies carry
// OTP codes, so they are only logged at debug level.
type LogSink struct {
	Channel string
	Logger  *slog.Logger
}

// NewLogSink creates a LogSink for the named channel.
func NewLogSink(channel string, logger *slog.Logger) *LogSink {
	return &LogSink{Channel: channel, Logger: logger}
}

func (s *LogSink) Send(ctx context.Context, address, message string) bool {
	s.Logger.InfoContext(ctx, "notification (demo mode)", "channel", s.Channel, "to", address, "length", len(message))
	s.Logger.DebugContext(ctx, "notification body", "channel", s.Channel, "to", address, "message", message)
	return true
}
