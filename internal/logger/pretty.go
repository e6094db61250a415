// internal/logger/pretty.go
package logger

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"
)

// Palette for console output. lipgloss drops the colors when stdout is not a
// terminal, so redirected logs stay plain.
var (
	Cyan   = lipgloss.Color("#00E5FF")
	Yellow = lipgloss.Color("#FFB500")
	Green  = lipgloss.Color("#2AFFAA")
	Red    = lipgloss.Color("#FF5555")
	Muted  = lipgloss.Color("#6C7280")
)

var levelStyles = map[zapcore.Level]lipgloss.Style{
	zapcore.DebugLevel:  lipgloss.NewStyle().Foreground(Cyan),
	zapcore.InfoLevel:   lipgloss.NewStyle().Foreground(Green),
	zapcore.WarnLevel:   lipgloss.NewStyle().Foreground(Yellow),
	zapcore.ErrorLevel:  lipgloss.NewStyle().Foreground(Red),
	zapcore.DPanicLevel: lipgloss.NewStyle().Foreground(Red).Bold(true),
	zapcore.PanicLevel:  lipgloss.NewStyle().Foreground(Red).Bold(true),
	zapcore.FatalLevel:  lipgloss.NewStyle().Foreground(Red).Bold(true),
}

var timeStyle = lipgloss.NewStyle().Foreground(Muted)

// PrettyEncoder is a short colored console format: time, level, message, fields.
func PrettyEncoder() zapcore.Encoder {
	config := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		TimeKey:          "time",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      customLevelEncoder,
		EncodeTime:       customTimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	return zapcore.NewConsoleEncoder(config)
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	label := "[" + level.CapitalString() + "]"
	if style, ok := levelStyles[level]; ok {
		label = style.Render(label)
	}
	enc.AppendString(label)
}

// customTimeEncoder formats time in a readable way
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(timeStyle.Render(t.Format("15:04:05.000")))
}
