package log

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ErrorMsgLogField = "errorMsg"
	UserIDLogField   = "userID"

	traceLogField = "logging.googleapis.com/trace"
)

type ctxKey struct{}

type traceKey struct{}

// CloudLoggingHandler is a slog.Handler writing entries in the Google Cloud structured logging format.
type CloudLoggingHandler struct {
	level slog.Leveler
	attrs []slog.Attr
	mu    *sync.Mutex
	out   io.Writer
}

// NewCloudLoggingHandler creates a handler writing to stdout at the given minimum level.
func NewCloudLoggingHandler(level slog.Leveler) *CloudLoggingHandler {
	return NewCloudLoggingHandlerTo(os.Stdout, level)
}

func NewCloudLoggingHandlerTo(w io.Writer, level slog.Leveler) *CloudLoggingHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &CloudLoggingHandler{level: level, mu: &sync.Mutex{}, out: w}
}

// Handle processes log records.
func (h *CloudLoggingHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := map[string]any{
		"severity": severity(r.Level),
		"time":     r.Time.Format(time.RFC3339Nano),
		"message":  r.Message,
	}
	if r.Time.IsZero() {
		entry["time"] = time.Now().Format(time.RFC3339Nano)
	}
	if traceID := TraceFromContext(ctx); traceID != "" {
		entry[traceLogField] = traceID
	}
	for _, attr := range h.attrs {
		entry[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(attr slog.Attr) bool {
		entry[attr.Key] = attr.Value.Any()
		return true
	})

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.out.Write(append(jsonData, '\n'))
	return err
}

func (h *CloudLoggingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// WithAttrs returns a new handler with additional attributes.
func (h *CloudLoggingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &CloudLoggingHandler{level: h.level, attrs: newAttrs, mu: h.mu, out: h.out}
}

// WithGroup returns the same handler, as grouping is not implemented.
func (h *CloudLoggingHandler) WithGroup(_ string) slog.Handler {
	return h
}

// Cloud Logging knows WARNING, not WARN.
func severity(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARNING"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var defaultLevel = new(slog.LevelVar)

// SetLevel changes the level of loggers created by LoggerFromContext when none is attached.
func SetLevel(l slog.Level) {
	defaultLevel.Set(l)
}

// WithTrace stores the trace resource name taken from X-Cloud-Trace-Context.
func WithTrace(ctx context.Context, projectID, header string) context.Context {
	traceID, _, _ := strings.Cut(header, "/")
	if traceID == "" || projectID == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, "projects/"+projectID+"/traces/"+traceID)
}

func TraceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceKey{}).(string)
	return traceID
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.New(NewCloudLoggingHandler(defaultLevel))
}
