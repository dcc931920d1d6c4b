package middleware

import (
	"net/http"

	"tablegrid/pkg/auth"
	apperrors "tablegrid/pkg/errors"

	"go.uber.org/zap"
)

// RequireSession rejects API requests without a valid session cookie with 401
func RequireSession(issuer *auth.SessionIssuer, errs *apperrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := sessionFromRequest(issuer, r)
			if err != nil {
				errs.Handle(w, r, apperrors.NewUnauthorizedError("log in to continue").WithCause(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), claims)))
		})
	}
}

// RequireSessionPage sends browsers without a valid session to the login page
func RequireSessionPage(issuer *auth.SessionIssuer, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := sessionFromRequest(issuer, r)
			if err != nil {
				logger.Debug("Redirecting to login", zap.Error(err))
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), claims)))
		})
	}
}

func sessionFromRequest(issuer *auth.SessionIssuer, r *http.Request) (*auth.SessionClaims, error) {
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		return nil, auth.ErrMissingToken
	}
	return issuer.Validate(cookie.Value)
}
