package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pinvent/apiserver/internal/auth"
	"github.com/pinvent/apiserver/internal/services"
	"github.com/pinvent/apiserver/types"
)

// UserHandler provides account, session and password endpoints.
type UserHandler struct {
	users  *services.UserService
	secret []byte
	dev    bool
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(users *services.UserService, jwtSecret string, dev bool) *UserHandler {
	return &UserHandler{
		users:  users,
		secret: []byte(jwtSecret),
		dev:    dev,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, users *services.UserService, jwtSecret string, dev bool) {
	handler := NewUserHandler(users, jwtSecret, dev)
	authMiddleware := RequireAuth(handler.secret, dev)

	r.Post("/", handler.Register)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)
	r.Get("/loggedin", handler.LoginStatus)
	r.Post("/forgotpassword", handler.ForgotPassword)
	r.Put("/resetpassword/{resetToken}", handler.ResetPassword)
	r.With(authMiddleware).Get("/", handler.GetUser)
	r.With(authMiddleware).Patch("/", handler.UpdateProfile)
	r.With(authMiddleware).Patch("/changepassword", handler.ChangePassword)
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Photo *string `json:"photo"`
	Phone *string `json:"phone"`
	Bio   *string `json:"bio"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	Password    string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type ForgotPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserResponse is the user payload returned by account endpoints. The
// password hash never appears; the session token only on register and
// login.
type UserResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
	Phone string `json:"phone"`
	Bio   string `json:"bio"`
	Token string `json:"token,omitempty"`
}

func newUserResponse(user types.User, token string) UserResponse {
	return UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Photo: user.Photo,
		Phone: user.Phone,
		Bio:   user.Bio,
		Token: token,
	}
}

// Register creates an account and issues a session.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", h.dev)
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	token, err := auth.IssueSession(user.ID, h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session", h.dev)
		return
	}

	setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, newUserResponse(user, token))
}

// Login verifies credentials and issues a session.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", h.dev)
		return
	}

	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	token, err := auth.IssueSession(user.ID, h.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session", h.dev)
		return
	}

	setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, newUserResponse(user, token))
}

// Logout clears the session cookie. Always succeeds.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// LoginStatus reports whether the request carries a valid session. A
// missing cookie is "not logged in", not an error; a present but invalid
// token is a hard failure.
func (h *UserHandler) LoginStatus(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, false)
		return
	}

	if _, err := auth.VerifySession(cookie.Value, h.secret); err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	writeJSON(w, http.StatusOK, true)
}

// GetUser returns the current authenticated user.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user, ""))
}

// UpdateProfile applies a partial update to the current user's profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", h.dev)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, services.ProfileUpdate{
		Name:  req.Name,
		Photo: req.Photo,
		Phone: req.Phone,
		Bio:   req.Bio,
	})
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user, ""))
}

// ChangePassword replaces the current user's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, please login", h.dev)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", h.dev)
		return
	}

	if err := h.users.ChangePassword(r.Context(), userID, req.OldPassword, req.Password); err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password change successfully"})
}

// ForgotPassword issues a reset ticket and emails the reset link.
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", h.dev)
		return
	}

	if err := h.users.ForgotPassword(r.Context(), req.Email); err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, ForgotPasswordResponse{Success: true, Message: "Reset email sent"})
}

// ResetPassword consumes a reset ticket presented in the URL. The ticket
// is discarded after the success response is written.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	resetToken := chi.URLParam(r, "resetToken")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", h.dev)
		return
	}

	ticket, err := h.users.ResetPassword(r.Context(), resetToken, req.Password)
	if err != nil {
		writeAppError(w, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password Reset successfully, please login."})
	h.users.DiscardTicket(r.Context(), ticket.ID)
}
