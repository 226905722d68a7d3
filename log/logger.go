/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides structured logging on top of the logf library.
// Loggers may write JSON or text to stdout, stderr or a rotated file,
// and may mask secrets (tokens, passwords) in messages and fields.
package log

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CloseFunc flushes buffered entries and stops the logger's background writer.
type CloseFunc logf.ChannelWriterCloseFunc

// LogFunc logs a message at the level it's bound to.
type LogFunc = logf.LogFunc

// FieldLogger is a structured logger.
type FieldLogger interface {
	With(fs ...Field) FieldLogger

	Debug(msg string, fs ...Field)
	Info(msg string, fs ...Field)
	Warn(msg string, fs ...Field)
	Error(msg string, fs ...Field)

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// AtLevel calls fn only if the level is enabled, so building expensive fields may be skipped.
	AtLevel(level Level, fn func(logFunc LogFunc))
	// WithLevel returns a logger that additionally drops messages below the level.
	WithLevel(level Level) FieldLogger
}

// LogfAdapter implements FieldLogger with logf.Logger.
type LogfAdapter struct {
	Logger *logf.Logger
}

var _ FieldLogger = (*LogfAdapter)(nil)

// NewDisabledLogger returns a logger that drops everything.
func NewDisabledLogger() FieldLogger {
	return &LogfAdapter{Logger: logf.NewDisabledLogger()}
}

// NewLogger creates a logger from the configuration.
// The returned CloseFunc must be called before exit, otherwise the last entries may be lost.
func NewLogger(cfg *Config) (FieldLogger, CloseFunc) {
	channel, closeFunc := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          newAppender(cfg),
		EnableSyncOnError: true,
	})
	logfLogger := logf.NewLogger(toLogfLevel(cfg.Level), channel).With(logf.Int("pid", os.Getpid()))
	if cfg.AddCaller {
		logfLogger = logfLogger.WithCaller().WithCallerSkip(1) // skip the adapter's frame
	}

	var logger FieldLogger = &LogfAdapter{Logger: logfLogger}
	if cfg.Masking.Enabled {
		rules := cfg.Masking.Rules
		if cfg.Masking.UseDefaultRules {
			rules = append(append([]MaskingRuleConfig{}, rules...), DefaultMaskingRules...)
		}
		logger = NewMaskingLogger(logger, NewMasker(rules))
	}
	return logger, CloseFunc(closeFunc)
}

func (l *LogfAdapter) With(fs ...Field) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.With(fs...)}
}

func (l *LogfAdapter) Debug(msg string, fs ...Field) { l.Logger.Debug(msg, fs...) }
func (l *LogfAdapter) Info(msg string, fs ...Field)  { l.Logger.Info(msg, fs...) }
func (l *LogfAdapter) Warn(msg string, fs ...Field)  { l.Logger.Warn(msg, fs...) }
func (l *LogfAdapter) Error(msg string, fs ...Field) { l.Logger.Error(msg, fs...) }

func (l *LogfAdapter) Debugf(format string, args ...interface{}) { l.printf(LevelDebug, format, args) }
func (l *LogfAdapter) Infof(format string, args ...interface{})  { l.printf(LevelInfo, format, args) }
func (l *LogfAdapter) Warnf(format string, args ...interface{})  { l.printf(LevelWarn, format, args) }
func (l *LogfAdapter) Errorf(format string, args ...interface{}) { l.printf(LevelError, format, args) }

func (l *LogfAdapter) printf(level Level, format string, args []interface{}) {
	l.AtLevel(level, func(logFunc LogFunc) {
		logFunc(fmt.Sprintf(format, args...))
	})
}

func (l *LogfAdapter) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.Logger.AtLevel(toLogfLevel(level), fn)
}

func (l *LogfAdapter) WithLevel(level Level) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.WithLevel(toLogfLevel(level))}
}

func toLogfLevel(level Level) logf.Level {
	switch level {
	case LevelError:
		return logf.LevelError
	case LevelWarn:
		return logf.LevelWarn
	case LevelDebug:
		return logf.LevelDebug
	default:
		return logf.LevelInfo
	}
}

func newAppender(cfg *Config) logf.Appender {
	switch cfg.Output {
	case OutputFile:
		return newAppenderWithWriter(cfg, &lumberjack.Logger{
			Filename:   expandFilePath(cfg.File.Path, time.Now()),
			MaxSize:    int(cfg.File.Rotation.MaxSize / (1024 * 1024)), // lumberjack wants megabytes
			MaxBackups: cfg.File.Rotation.MaxBackups,
			MaxAge:     cfg.File.Rotation.MaxAgeDays,
			Compress:   cfg.File.Rotation.Compress,
			LocalTime:  cfg.File.Rotation.LocalTimeInNames,
		})
	case OutputStderr:
		return newAppenderWithWriter(cfg, os.Stderr)
	default:
		return newAppenderWithWriter(cfg, os.Stdout)
	}
}

func newAppenderWithWriter(cfg *Config, w io.Writer) logf.Appender {
	var errorEncoder logf.ErrorEncoder
	if cfg.Error.NoVerbose || cfg.Error.VerboseSuffix != "" {
		errorEncoder = logf.NewErrorEncoder(logf.ErrorEncoderConfig{
			NoVerboseField:     cfg.Error.NoVerbose,
			VerboseFieldSuffix: cfg.Error.VerboseSuffix,
		})
	}
	if cfg.Format == FormatText {
		noColor := cfg.NoColor
		return logftext.NewAppender(w, logftext.EncoderConfig{
			NoColor:     &noColor,
			EncodeTime:  logf.RFC3339NanoTimeEncoder,
			EncodeError: errorEncoder,
		})
	}
	return logf.NewWriteAppender(w, logf.NewJSONEncoder(logf.JSONEncoderConfig{
		FieldKeyTime: "time",
		EncodeTime:   logf.RFC3339NanoTimeEncoder,
		EncodeError:  errorEncoder,
	}))
}

// expandFilePath replaces {{starttime}} and {{pid}} placeholders in the log file path.
func expandFilePath(path string, startTime time.Time) string {
	return strings.NewReplacer(
		"{{starttime}}", startTime.Format("200601021504"),
		"{{pid}}", strconv.Itoa(os.Getpid()),
	).Replace(path)
}
