package util

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type requestIDKey struct{}

const requestIDHeader = "X-Request-Id"

// maxRequestIDLen caps ids taken from the wire so a client cannot grow log
// lines without bound.
const maxRequestIDLen = 64

// WithRequestID tags every request with an id. Ids supplied by the frontend
// are reused when they look sane, anything else is replaced with a fresh
// uuid. The id travels on the response header, the request context and the
// context logger, so a single grep pulls all log lines of one request.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sanitizeRequestID(r.Header.Get(requestIDHeader))
		if id == "" {
			id = NewID()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = ContextWithLogger(ctx, slog.Default().With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sanitizeRequestID(raw string) string {
	id := strings.TrimSpace(raw)
	if len(id) > maxRequestIDLen {
		return ""
	}
	for _, c := range id {
		if !isRequestIDChar(c) {
			return ""
		}
	}
	return id
}

func isRequestIDChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.':
		return true
	}
	return false
}

// RequestIDFromContext returns the request id or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDFromRequest is RequestIDFromContext on the request context.
func RequestIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return RequestIDFromContext(r.Context())
}
