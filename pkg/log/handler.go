package log

import (
	"context"
	"log/slog"

	cerrors "github.com/cockroachdb/errors"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// ErrFmtHandler is a slog handler for records carrying an "error" attribute.
// It adds the cockroachdb/errors stack trace as StacktraceKey and the
// kernelshap error kind as ErrorTypeKey.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with stack and kind extraction.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var found error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			found = err
		}
		return false
	})
	if found == nil {
		return eh.handler.Handle(ctx, r)
	}

	r.AddAttrs(slog.String(ErrorTypeKey, ErrorKind(found)))
	if stack := extractStacktrace(found); stack != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stack))
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// ErrorKind names the kernelshap error category of err.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, errors.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, errors.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, errors.ErrModelQuery):
		return "model_query"
	case errors.Is(err, errors.ErrAdditivity):
		return "additivity"
	default:
		return "internal"
	}
}

func extractStacktrace(err error) string {
	details := cerrors.GetSafeDetails(err).SafeDetails
	if len(details) > 0 {
		return details[0]
	}
	return ""
}
