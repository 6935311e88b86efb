// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rl1809/stock-tracker/internal/config"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to stderr, leaving stdout to reports.
func New(level, format string) (*zap.Logger, error) {
	return NewWithWriter(zapcore.Lock(os.Stderr), level, format)
}

// NewWithWriter builds the logger on an arbitrary sink. The console format
// prints "LEVEL: message" followed by any fields; the JSON format is the zap
// production encoding with ISO8601 timestamps.
func NewWithWriter(w zapcore.WriteSyncer, level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var encoder zapcore.Encoder
	switch format {
	case FormatConsole, "":
		encoder = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			LevelKey:         "level",
			MessageKey:       "msg",
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			ConsoleSeparator: ": ",
		})
	case FormatJSON:
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	core := zapcore.NewCore(encoder, w, lvl)
	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if format == FormatJSON {
		opts = append(opts, zap.AddCaller(), zap.Fields(zap.String("service.name", config.ServiceName)))
	}
	return zap.New(core, opts...), nil
}
