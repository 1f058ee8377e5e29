package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"forumhub/internal/app"
)

// Error codes of the public API contract.
const (
	codeValidation     = "VALIDATION_ERROR"
	codeNotFound       = "ENTITY_NOT_FOUND"
	codeAccessDenied   = "ACCESS_DENIED"
	codeInvalidState   = "INVALID_STATE"
	codeAuthentication = "AUTHENTICATION_ERROR"
	codeDuplicate      = "DUPLICATE_ENTRY"
	codeForeignKey     = "FOREIGN_KEY_CONSTRAINT"
	codeRateLimited    = "RATE_LIMITED"
	codeInternal       = "INTERNAL_ERROR"
)

type errorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func writeValidationError(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Code:      codeValidation,
		Message:   "validation failed",
		Timestamp: time.Now().UTC(),
		Details:   details,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, codeValidation, "method not allowed")
}

// writeAppError maps application errors onto the error contract.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrTopicNotFound),
		errors.Is(err, app.ErrReplyNotFound),
		errors.Is(err, app.ErrCourseNotFound),
		errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, app.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, codeAccessDenied, err.Error())
	case errors.Is(err, app.ErrTopicClosed),
		errors.Is(err, app.ErrTopicNotClosed),
		errors.Is(err, app.ErrCourseInactive):
		writeError(w, http.StatusBadRequest, codeInvalidState, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrUserInactive):
		writeError(w, http.StatusUnauthorized, codeAuthentication, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, codeDuplicate, err.Error())
	default:
		if code, ok := pgConstraintCode(err); ok {
			writeError(w, http.StatusConflict, code, "database constraint violated")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

// pgConstraintCode classifies Postgres unique and foreign key violations.
func pgConstraintCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	switch pgErr.Code {
	case "23505":
		return codeDuplicate, true
	case "23503":
		return codeForeignKey, true
	}
	return "", false
}
