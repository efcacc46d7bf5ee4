package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pinvent/apiserver/internal/services"
)

// ContactHandler relays contact form messages to the support address.
type ContactHandler struct {
	users *services.UserService
	dev   bool
}

func NewContactHandler(users *services.UserService, dev bool) *ContactHandler {
	return &ContactHandler{users: users, dev: dev}
}

// ContactRouter registers the contact route on the given router.
func ContactRouter(
	r chi.Router,
	users *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
	dev bool,
) {
	handler := NewContactHandler(users, dev)
	r.With(authMiddleware).Post("/", handler.Contact)
}

type ContactRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type ContactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *ContactHandler) Contact(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", h.dev)
		return
	}

	if err := h.users.Contact(r.Context(), userID, req.Subject, req.Message); err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, ContactResponse{Success: true, Message: "Email Sent"})
}
