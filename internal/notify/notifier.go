// internal/notify/notifier.go
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Level is the alert severity.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// Alert is one message for an operator.
type Alert struct {
	Level   Level
	Title   string
	Message string
}

// Notifier delivers alerts to an external channel.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the log. Used when no chat is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

// Send logs the alert at a level matching its severity.
func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	fields := []zap.Field{zap.String("title", alert.Title), zap.String("message", alert.Message)}
	switch alert.Level {
	case LevelCritical:
		n.logger.Error("Alert", fields...)
	case LevelWarning:
		n.logger.Warn("Alert", fields...)
	default:
		n.logger.Info("Alert", fields...)
	}
	return nil
}
