package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type loggerKey struct{}

type fieldsKey struct{}

// Fields are the identifiers of the request being served. Empty values are omitted
// from log entries.
type Fields struct {
	RequestID string
	UserID    string
	OrgID     string
	AppID     string
}

func (f Fields) zapFields() []zap.Field {
	out := make([]zap.Field, 0, 4)
	for _, kv := range [...]struct{ key, val string }{
		{"request_id", f.RequestID},
		{"user_id", f.UserID},
		{"org_id", f.OrgID},
		{"app_id", f.AppID},
	} {
		if kv.val != "" {
			out = append(out, zap.String(kv.key, kv.val))
		}
	}
	return out
}

// FieldsFrom returns the identifiers bound to ctx
func FieldsFrom(ctx context.Context) Fields {
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

func withField(ctx context.Context, set func(*Fields)) context.Context {
	f := FieldsFrom(ctx)
	set(&f)
	return context.WithValue(ctx, fieldsKey{}, f)
}

// WithRequestID binds the request id to ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return withField(ctx, func(f *Fields) { f.RequestID = id })
}

// WithUserID binds the authenticated principal to ctx
func WithUserID(ctx context.Context, id string) context.Context {
	return withField(ctx, func(f *Fields) { f.UserID = id })
}

// WithOrgID binds the organization the request acts on
func WithOrgID(ctx context.Context, id string) context.Context {
	return withField(ctx, func(f *Fields) { f.OrgID = id })
}

// WithAppID binds the app the request acts on
func WithAppID(ctx context.Context, id string) context.Context {
	return withField(ctx, func(f *Fields) { f.AppID = id })
}

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger bound to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// ContextLogger logs through a base logger, adding the trace ids and request Fields
// found in its context at the moment each entry is written.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L logs with the logger bound to ctx.
//
//	logger.L(ctx).Warn("device stats not recorded", zap.Error(err))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger logs with a service's own named logger while still reading the request
// identifiers from ctx.
func WithLogger(ctx context.Context, l *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: l}
}

func (cl *ContextLogger) zap() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	fields := FieldsFrom(cl.ctx).zapFields()
	if sc := trace.SpanContextFromContext(cl.ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// With adds fields to every later entry
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	base := cl.logger
	if base == nil {
		base = zap.NewNop()
	}
	return &ContextLogger{ctx: cl.ctx, logger: base.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.zap().Debug(msg, fields...) }

func (cl *ContextLogger) Info(msg string, fields ...zap.Field) { cl.zap().Info(msg, fields...) }

func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) { cl.zap().Warn(msg, fields...) }

func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.zap().Error(msg, fields...) }

// Zap returns the enriched logger for APIs that take a *zap.Logger
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.zap()
}
