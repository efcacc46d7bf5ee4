package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/pinvent/apiserver/internal/apperr"
)

type contextKey string

const contextUserIDKey contextKey = "userID"

// ErrorResponse is the error envelope. Stack is only populated in
// development mode.
type ErrorResponse struct {
	Message string  `json:"message"`
	Stack   *string `json:"stack"`
}

// MessageResponse is a simple confirmation payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func userIDFromContext(ctx context.Context) (int, error) {
	userID, ok := ctx.Value(contextUserIDKey).(int)
	if !ok || userID < 1 {
		return 0, errors.New("missing user id")
	}
	return userID, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string, dev bool) {
	var stack *string
	if dev {
		s := string(debug.Stack())
		stack = &s
	}
	writeJSON(w, status, ErrorResponse{Message: message, Stack: stack})
}

// writeAppError maps a service error to a status code via the error
// taxonomy and writes the envelope.
func writeAppError(w http.ResponseWriter, err error, dev bool) {
	writeError(w, apperr.Status(err), apperr.UserMessage(err), dev)
}
