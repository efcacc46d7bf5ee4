package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pinvent/apiserver/internal/auth"
	"github.com/pinvent/apiserver/internal/mailer"
	"github.com/pinvent/apiserver/internal/services"
	"github.com/pinvent/apiserver/internal/store"
	"github.com/pinvent/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type memoryUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int]types.User)}
}

func (m *memoryUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) UpdateProfile(_ context.Context, user types.User) (types.User, error) {
	existing, ok := m.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	existing.Name = user.Name
	existing.Photo = user.Photo
	existing.Phone = user.Phone
	existing.Bio = user.Bio
	m.users[user.ID] = existing
	return existing, nil
}

func (m *memoryUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	m.users[id] = user
	return nil
}

type memoryResetRepo struct {
	nextID  int
	tickets map[int]types.ResetToken
}

func newMemoryResetRepo() *memoryResetRepo {
	return &memoryResetRepo{tickets: make(map[int]types.ResetToken)}
}

func (m *memoryResetRepo) Create(_ context.Context, token types.ResetToken) (types.ResetToken, error) {
	m.nextID++
	token.ID = m.nextID
	m.tickets[token.ID] = token
	return token, nil
}

func (m *memoryResetRepo) GetValidByHash(_ context.Context, tokenHash string, now time.Time) (types.ResetToken, error) {
	for _, ticket := range m.tickets {
		if ticket.TokenHash == tokenHash && ticket.ExpiresAt.After(now) {
			return ticket, nil
		}
	}
	return types.ResetToken{}, store.ErrNotFound
}

func (m *memoryResetRepo) DeleteByUser(_ context.Context, userID int) error {
	for id, ticket := range m.tickets {
		if ticket.UserID == userID {
			delete(m.tickets, id)
		}
	}
	return nil
}

func (m *memoryResetRepo) Delete(_ context.Context, id int) error {
	if _, ok := m.tickets[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.tickets, id)
	return nil
}

type recordingSender struct {
	sent []mailer.Message
}

func (r *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

func newTestRouter() (*chi.Mux, *recordingSender) {
	sender := &recordingSender{}
	users := services.NewUserService(
		newMemoryUserRepo(),
		newMemoryResetRepo(),
		sender,
		nil,
		"http://localhost:3000",
		"support@example.com",
	)
	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		UserRouter(r, users, testSecret, true)
	})
	return router, sender
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerViaAPI(t *testing.T, router http.Handler) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	rec := postJSON(t, router, "/api/users/", RegisterRequest{
		Name:     "Alice",
		Email:    "alice@x.com",
		Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookieName {
			return rec, cookie
		}
	}
	t.Fatal("session cookie not set")
	return nil, nil
}

func TestRegisterSetsCookieAndOmitsPassword(t *testing.T) {
	router, _ := newTestRouter()

	rec, cookie := registerViaAPI(t, router)

	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)

	userID, err := auth.VerifySession(cookie.Value, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, 1, userID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Alice", body["name"])
	assert.NotEmpty(t, body["token"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")
}

func TestRegisterValidationEnvelope(t *testing.T) {
	router, _ := newTestRouter()

	rec := postJSON(t, router, "/api/users/", RegisterRequest{
		Name:     "Alice",
		Email:    "alice@x.com",
		Password: "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Password must be up to 6 characters", body.Message)
	require.NotNil(t, body.Stack, "dev mode includes the stack")
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newTestRouter()
	registerViaAPI(t, router)

	rec := postJSON(t, router, "/api/users/login", LoginRequest{
		Email:    "alice@x.com",
		Password: "wrongpass",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginStatus(t *testing.T) {
	router, _ := newTestRouter()
	_, cookie := registerViaAPI(t, router)

	// No cookie: logged out, not an error.
	req := httptest.NewRequest(http.MethodGet, "/api/users/loggedin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", strings.TrimSpace(rec.Body.String()))

	// Valid cookie.
	req = httptest.NewRequest(http.MethodGet, "/api/users/loggedin", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", strings.TrimSpace(rec.Body.String()))

	// Present but invalid cookie is a hard failure.
	req = httptest.NewRequest(http.MethodGet, "/api/users/loggedin", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "garbage"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/users/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}

func TestGetUserRequiresSession(t *testing.T) {
	router, _ := newTestRouter()
	_, cookie := registerViaAPI(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/users/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/users/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice@x.com", body.Email)
	assert.Empty(t, body.Token, "session token only on register and login")
}

func TestResetPasswordFlow(t *testing.T) {
	router, sender := newTestRouter()
	registerViaAPI(t, router)

	rec := postJSON(t, router, "/api/users/forgotpassword", ForgotPasswordRequest{Email: "alice@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	var forgot ForgotPasswordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forgot))
	assert.True(t, forgot.Success)
	assert.Equal(t, "Reset email sent", forgot.Message)

	require.Len(t, sender.sent, 1)
	marker := "http://localhost:3000/resetpassword/"
	body := sender.sent[0].HTML
	idx := strings.Index(body, marker)
	require.GreaterOrEqual(t, idx, 0)
	rest := body[idx+len(marker):]
	end := strings.IndexAny(rest, "\"< \n\t")
	require.Greater(t, end, 0)
	token := rest[:end]

	payload, err := json.Marshal(ResetPasswordRequest{Password: "newsecret"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/users/resetpassword/"+token, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var msg MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "Password Reset successfully, please login.", msg.Message)

	// The consumed ticket no longer resolves.
	req = httptest.NewRequest(http.MethodPut, "/api/users/resetpassword/"+token, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// And the new password logs in.
	rec = postJSON(t, router, "/api/users/login", LoginRequest{
		Email:    "alice@x.com",
		Password: "newsecret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetPasswordUnknownToken(t *testing.T) {
	router, _ := newTestRouter()

	payload, err := json.Marshal(ResetPasswordRequest{Password: "newsecret"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/users/resetpassword/deadbeef1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid or Expired Token", body.Message)
}

func TestChangePasswordEndpoint(t *testing.T) {
	router, _ := newTestRouter()
	_, cookie := registerViaAPI(t, router)

	payload, err := json.Marshal(ChangePasswordRequest{OldPassword: "secret1", Password: "newsecret"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPatch, "/api/users/changepassword", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var msg MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "Password change successfully", msg.Message)

	rec = postJSON(t, router, "/api/users/login", LoginRequest{
		Email:    "alice@x.com",
		Password: "newsecret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
