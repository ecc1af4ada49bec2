package logger

import (
	"context"
	"log/slog"
	"time"
)

type logContextKey struct{}

// LogContext carries request-scoped fields that the Ctx log functions emit.
type LogContext struct {
	TraceID   string
	SpanID    string
	RequestID string
	Operation string
	ClientIP  string
	UserID    string
	StartTime time.Time
}

// NewLogContext starts a LogContext for one request.
func NewLogContext(requestID, clientIP string) *LogContext {
	return &LogContext{RequestID: requestID, ClientIP: clientIP, StartTime: time.Now()}
}

// WithContext stores lc in ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey{}, lc)
}

// FromContext returns the LogContext in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey{}).(*LogContext)
	return lc
}

// Clone returns a copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

func (lc *LogContext) with(set func(*LogContext)) *LogContext {
	c := lc.Clone()
	if c != nil {
		set(c)
	}
	return c
}

// WithOperation returns a copy naming the drive operation.
func (lc *LogContext) WithOperation(op string) *LogContext {
	return lc.with(func(c *LogContext) { c.Operation = op })
}

// WithUser returns a copy carrying the authenticated user.
func (lc *LogContext) WithUser(userID string) *LogContext {
	return lc.with(func(c *LogContext) { c.UserID = userID })
}

// WithTrace returns a copy carrying the span identifiers.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	return lc.with(func(c *LogContext) { c.TraceID, c.SpanID = traceID, spanID })
}

// DurationMs returns the milliseconds since StartTime.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}

func (lc *LogContext) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, 6)
	add := func(key, val string) {
		if val != "" {
			out = append(out, slog.String(key, val))
		}
	}
	add(KeyTraceID, lc.TraceID)
	add(KeySpanID, lc.SpanID)
	add(KeyRequestID, lc.RequestID)
	add(KeyOperation, lc.Operation)
	add(KeyClientIP, lc.ClientIP)
	add(KeyUserID, lc.UserID)
	return out
}

// contextHandler prepends the LogContext fields of the record's context.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if lc := FromContext(ctx); lc != nil {
		fields := lc.attrs()
		if len(fields) > 0 {
			nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
			nr.AddAttrs(fields...)
			r.Attrs(func(a slog.Attr) bool {
				nr.AddAttrs(a)
				return true
			})
			r = nr
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
