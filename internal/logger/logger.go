package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"detectserver/internal/config"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	logDir string
	files  []*os.File
}

// New creates a Logger and ensures the log directory exists. Each level is
// written to its own file in the log directory; info goes to stdout and
// warnings and errors go to stderr.
func New(cfg config.LogConfig) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{logDir: cfg.Dir}

	infoFile, err := l.openLogFile("info.log")
	if err != nil {
		return nil, err
	}
	warningFile, err := l.openLogFile("warning.log")
	if err != nil {
		l.Close()
		return nil, err
	}
	errorFile, err := l.openLogFile("error.log")
	if err != nil {
		l.Close()
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Debug {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	infoLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		if cfg.Debug {
			return level == zapcore.DebugLevel || level == zapcore.InfoLevel
		}
		return level == zapcore.InfoLevel
	})
	warningLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		return level == zapcore.WarnLevel
	})
	errorLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		return level >= zapcore.ErrorLevel
	})
	warnErrorLevel := zap.LevelEnablerFunc(func(level zapcore.Level) bool {
		return level >= zapcore.WarnLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), infoLevel),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), warnErrorLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(infoFile), infoLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(warningFile), warningLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(errorFile), errorLevel),
	)

	l.base = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	l.sugar = l.base.Sugar()
	return l, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{base: base, sugar: base.Sugar()}
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(name string) (*os.File, error) {
	path := filepath.Join(l.logDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	l.files = append(l.files, f)
	return f, nil
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...any) {
	l.sugar.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...any) {
	l.sugar.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...any) {
	l.sugar.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...any) {
	l.sugar.Errorf(format, v...)
}

// Zap exposes the structured logger for callers that attach fields.
func (l *Logger) Zap() *zap.Logger {
	return l.base.WithOptions(zap.AddCallerSkip(-1))
}

// Sugar exposes the sugared logger, e.g. for HTTP client libraries.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.base.WithOptions(zap.AddCallerSkip(-1)).Sugar()
}

// Dir returns the directory holding the per-level log files.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the named log file, e.g. "info.log".
func (l *Logger) CleanLogs(name string) error {
	for _, f := range l.files {
		if filepath.Base(f.Name()) == name {
			if err := f.Truncate(0); err != nil {
				return fmt.Errorf("failed to truncate %s: %w", name, err)
			}
			return nil
		}
	}
	return fmt.Errorf("log file %s is not open", name)
}

// Close flushes buffered entries and closes the log files.
func (l *Logger) Close() error {
	if l.base != nil {
		_ = l.base.Sync()
	}
	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
