package log

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	scierrors "github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatAuto uses console output on a terminal and JSON otherwise.
	FormatAuto    Format = "auto"
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
	// FormatCloud writes Cloud Logging JSON through log/slog.
	FormatCloud Format = "cloud"
)

// NewProvider returns the provider for format. FormatCloud yields a
// SlogProvider; every other format a ZerologProvider.
func NewProvider(w io.Writer, level Level, format Format) LoggerProvider {
	if format == FormatCloud {
		return NewSlogProvider(w, level)
	}
	return NewZerologProviderWithWriter(w, level, format)
}

// ZerologProvider implements LoggerProvider with rs/zerolog.
// The level is shared by every logger the provider hands out, so SetLevel
// also affects loggers created earlier.
type ZerologProvider struct {
	base  zerolog.Logger
	level atomic.Int64
}

// NewZerologProvider creates a provider writing to stderr in FormatAuto.
func NewZerologProvider(level Level) *ZerologProvider {
	return NewZerologProviderWithWriter(os.Stderr, level, FormatAuto)
}

// NewZerologProviderWithWriter creates a provider writing to w.
func NewZerologProviderWithWriter(w io.Writer, level Level, format Format) *ZerologProvider {
	p := &ZerologProvider{
		base: zerolog.New(outputFor(w, format)).With().Timestamp().Logger(),
	}
	p.level.Store(int64(level))
	return p
}

func outputFor(w io.Writer, format Format) io.Writer {
	switch format {
	case FormatConsole:
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case FormatJSON:
		return w
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return w
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{l: p.base, p: p}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{l: p.base.With().Str(ComponentKey, name).Logger(), p: p}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int64(level))
}

// Zerolog exposes the underlying zerolog.Logger.
func (p *ZerologProvider) Zerolog() zerolog.Logger {
	return p.base
}

func (p *ZerologProvider) enabled(level Level) bool {
	return int64(level) >= p.level.Load()
}

type zerologLogger struct {
	l zerolog.Logger
	p *ZerologProvider
}

func (z *zerologLogger) Debug(msg string, fields ...any) { z.log(LevelDebug, msg, fields) }
func (z *zerologLogger) Info(msg string, fields ...any)  { z.log(LevelInfo, msg, fields) }
func (z *zerologLogger) Warn(msg string, fields ...any)  { z.log(LevelWarn, msg, fields) }
func (z *zerologLogger) Error(msg string, fields ...any) { z.log(LevelError, msg, fields) }

func (z *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{l: z.l.With().Fields(fieldList(fields)).Logger(), p: z.p}
}

func (z *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return z.p.enabled(level)
}

func (z *zerologLogger) log(level Level, msg string, fields []any) {
	if !z.p.enabled(level) {
		return
	}
	event := z.l.WithLevel(zerologLevel(level))
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			event = event.Err(err)
			if st := extractStacktrace(err); st != "" {
				event = event.Str(StacktraceAttrKey, st)
			}
			fields = fields[1:]
		}
	}
	if len(fields) > 0 {
		event = event.Fields(fieldList(fields))
	}
	event.Msg(msg)
}

// fieldList drops a trailing key without value so zerolog never sees an
// odd-length list.
func fieldList(fields []any) []interface{} {
	if len(fields)%2 == 1 {
		fields = fields[:len(fields)-1]
	}
	return fields
}

func zerologLevel(level Level) zerolog.Level {
	switch {
	case level >= LevelError:
		return zerolog.ErrorLevel
	case level >= LevelWarn:
		return zerolog.WarnLevel
	case level >= LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// ===========================================================================
// global provider
// ===========================================================================

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider = NewZerologProvider(LevelInfo)
)

func init() {
	InstallWarnings(globalProvider)
}

// SetProvider replaces the global provider and routes pkg/errors warnings
// into it.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	globalProvider = p
	providerMu.Unlock()
	InstallWarnings(p)
}

// Provider returns the global provider.
func Provider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider
}

// GetLogger returns the default logger of the global provider.
func GetLogger() Logger {
	return Provider().GetLogger()
}

// GetLoggerWithName returns a component logger from the global provider.
func GetLoggerWithName(name string) Logger {
	return Provider().GetLoggerWithName(name)
}

// InstallWarnings makes pkg/errors.Warn log through p. Warnings that
// implement zerolog.LogObjectMarshaler keep their structured fields when p
// is a ZerologProvider.
func InstallWarnings(p LoggerProvider) {
	if zp, ok := p.(*ZerologProvider); ok {
		logger := zp.base.With().Str(ComponentKey, "warnings").Logger()
		scierrors.SetZerologWarnFunc(func(w error) {
			if !zp.enabled(LevelWarn) {
				return
			}
			event := logger.Warn()
			if m, ok := w.(zerolog.LogObjectMarshaler); ok {
				event = event.EmbedObject(m)
			}
			event.Msg(w.Error())
		})
		return
	}
	logger := p.GetLoggerWithName("warnings")
	scierrors.SetZerologWarnFunc(func(w error) {
		logger.Warn(w.Error())
	})
}
