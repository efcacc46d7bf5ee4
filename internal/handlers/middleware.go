package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pinvent/apiserver/internal/auth"
)

const sessionCookieName = "token"

// RequireAuth verifies the session cookie and injects the user id into
// the request context.
func RequireAuth(secret []byte, dev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "Not authorized, please login", dev)
				return
			}

			userID, err := auth.VerifySession(cookie.Value, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Not authorized, please login", dev)
				return
			}

			ctx := context.WithValue(r.Context(), contextUserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// setSessionCookie attaches the session token as an HTTP-only,
// cross-site-capable cookie valid for one day.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(auth.SessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
	})
}

// clearSessionCookie overwrites the session cookie with an empty,
// already-expired value. Idempotent.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   true,
	})
}
