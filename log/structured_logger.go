package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// StructuredLogger implements the Logger interface using slog
type StructuredLogger struct {
	logger *slog.Logger
}

// Options configures a StructuredLogger.
type Options struct {
	// Level is the minimum level to emit.
	Level Level

	// Output is the destination. Defaults to stdout.
	Output io.Writer

	// NoColor disables ANSI colors. Color is auto-disabled when the
	// output is not a terminal.
	NoColor bool
}

// New returns a StructuredLogger writing colorized output to stdout.
func New(level Level) *StructuredLogger {
	return NewWithOptions(Options{Level: level})
}

// NewWithOptions returns a StructuredLogger with the given options.
func NewWithOptions(opts Options) *StructuredLogger {
	output := opts.Output
	noColor := opts.NoColor
	if output == nil {
		output = os.Stdout
		if !noColor {
			noColor = !isatty.IsTerminal(os.Stdout.Fd())
		}
	} else if !noColor {
		f, ok := output.(*os.File)
		noColor = !ok || !isatty.IsTerminal(f.Fd())
	}
	handler := tint.NewHandler(output, &tint.Options{
		NoColor:    noColor,
		TimeFormat: time.DateTime,
		Level:      slog.Level(opts.Level),
	})
	return &StructuredLogger{logger: slog.New(handler)}
}

// NewWithLogFile returns a StructuredLogger that writes to stdout and
// tees a copy of every record to a log file under dir. The directory is
// created if needed and the file is opened in append mode.
func NewWithLogFile(level Level, dir, name string) (*StructuredLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	handler := tint.NewHandler(io.MultiWriter(os.Stdout, file), &tint.Options{
		NoColor:    true,
		TimeFormat: time.DateTime,
		Level:      slog.Level(level),
	})
	return &StructuredLogger{logger: slog.New(handler)}, nil
}

func (l *StructuredLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *StructuredLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *StructuredLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *StructuredLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

func (l *StructuredLogger) With(args ...any) Logger {
	return &StructuredLogger{logger: l.logger.With(args...)}
}
