package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// FormatPretty is an alias of the console format.
const FormatPretty = "pretty"

// Logger is a zerolog.Logger taking fields as maps, so callers do not
// depend on zerolog's event API.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// New builds a logger writing to cfg.Output.
func New(cfg *Config, serviceName string) *Logger {
	return NewWithWriter(cfg, serviceName, outputWriter(cfg.Output))
}

// NewWithWriter builds a logger writing to w. Unknown levels fall back to
// info.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(w)
	if f := strings.ToLower(cfg.Format); f == "console" || f == FormatPretty {
		zl = newConsoleLogger(cfg, serviceName, w)
	}
	zc := zl.Level(level).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	if serviceName != "" && serviceName != "default" {
		zc = zc.Str(FieldService, serviceName)
	}
	return &Logger{logger: zc.Logger(), service: serviceName}
}

// NewDefault builds an info-level console logger on stdout.
func NewDefault(serviceName string) *Logger {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return New(cfg, serviceName)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

func (l *Logger) derive(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{logger: fn(l.logger.With()).Logger(), service: l.service}
}

// contextKey keeps the IDs stored by this package apart from other
// context values.
type contextKey string

var contextFields = []string{FieldTraceID, FieldSpanID, FieldCallID}

// WithContext adds the trace, span and call IDs stored in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context {
		for _, field := range contextFields {
			if v := ctx.Value(contextKey(field)); v != nil {
				zc = zc.Str(field, fmt.Sprint(v))
			}
		}
		return zc
	})
}

// ContextWithCallID stores the ID of a resource call in ctx.
func ContextWithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey(FieldCallID), id)
}

// CallIDFromContext returns the ID stored by ContextWithCallID.
func CallIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey(FieldCallID)).(string)
	return id
}

// ContextWithTrace stores trace and span IDs in ctx.
func ContextWithTrace(ctx context.Context, traceID, spanID string) context.Context {
	ctx = context.WithValue(ctx, contextKey(FieldTraceID), traceID)
	return context.WithValue(ctx, contextKey(FieldSpanID), spanID)
}

// WithComponent tags every line with component=name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context { return zc.Str(FieldComponent, name) })
}

// WithFields adds fields to every line.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context { return zc.Fields(fields) })
}

// WithError adds err to every line.
func (l *Logger) WithError(err error) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context { return zc.Err(err) })
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) { emit(l.logger.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...map[string]interface{})  { emit(l.logger.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...map[string]interface{})  { emit(l.logger.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...map[string]interface{}) { emit(l.logger.Error(), msg, fields) }

// emit is a no-op for disabled levels, where zerolog hands out a nil event.
func emit(event *zerolog.Event, msg string, fields []map[string]interface{}) {
	if event == nil {
		return
	}
	for _, f := range fields {
		event.Fields(f)
	}
	event.Msg(msg)
}

// --- Global logger ---

// The global logger backs Get for names nobody registered. It defaults
// to info-level console output.
var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// SetGlobalLogger replaces the global logger.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalLogger returns the global logger.
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefault("default")
	}
	return globalLogger
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}

// levelTags maps zerolog levels to console tags and ANSI colors.
var levelTags = map[string]struct{ tag, color string }{
	"trace": {"TRC", "90"},
	"debug": {"DBG", "36"},
	"info":  {"INF", "32"},
	"warn":  {"WRN", "33"},
	"error": {"ERR", "31"},
	"fatal": {"FTL", "35"},
	"panic": {"PNC", "35"},
}

func colorize(s, color string, noColor bool) string {
	if noColor || color == "" {
		return s
	}
	return "\033[" + color + "m" + s + "\033[0m"
}

// newConsoleLogger prints "15:04:05 [SVC][INF] message key:value". The
// service tag is the first three letters of the service name.
func newConsoleLogger(cfg *Config, serviceName string, w io.Writer) zerolog.Logger {
	var svcTag string
	if serviceName != "" && serviceName != "default" && len(serviceName) >= 3 {
		svcTag = colorize("["+strings.ToUpper(serviceName[:3])+"]", "34", cfg.NoColor)
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			name := fmt.Sprint(i)
			lt, ok := levelTags[name]
			if !ok {
				return svcTag + "[" + strings.ToUpper(name) + "]"
			}
			return svcTag + colorize("["+lt.tag+"]", lt.color, cfg.NoColor)
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprint(i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprint(i) + ":"
		},
		FormatFieldValue: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprint(i)
		},
	}).With().Timestamp().Logger()
}
