package handler

import (
	"context"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const terminalIDKey contextKey = "terminalID"

var terminalIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// TerminalMiddleware validates the {terminalId} path parameter and injects
// it into the request context.
func TerminalMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			terminalID := chi.URLParam(r, "terminalId")
			if !terminalIDPattern.MatchString(terminalID) {
				logger.Warn("invalid terminal id",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusBadRequest, "invalid terminal id")
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("terminal.id", terminalID))

			ctx := context.WithValue(r.Context(), terminalIDKey, terminalID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TerminalIDFromContext extracts the terminal ID from context.
func TerminalIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(terminalIDKey).(string)
	return v
}
