package handlers

import (
	"net"
	"net/http"
	"strings"

	"tablegrid/application/session"
	"tablegrid/pkg/auth"
	apperrors "tablegrid/pkg/errors"

	"go.uber.org/zap"
)

// AuthHandler serves the password gate
type AuthHandler struct {
	gate      *auth.PasswordGate
	issuer    *auth.SessionIssuer
	limiter   auth.RateLimiter
	perMinute int
	sessions  *session.Store
	errs      *apperrors.ErrorHandler
	secure    bool
	logger    *zap.Logger
}

// NewAuthHandler creates a new auth handler. perMinute is the login rate the
// limiter enforces, reported to clients that get throttled. secure marks the
// session cookie as HTTPS-only.
func NewAuthHandler(
	gate *auth.PasswordGate,
	issuer *auth.SessionIssuer,
	limiter auth.RateLimiter,
	perMinute int,
	sessions *session.Store,
	errs *apperrors.ErrorHandler,
	secure bool,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		gate:      gate,
		issuer:    issuer,
		limiter:   limiter,
		perMinute: perMinute,
		sessions:  sessions,
		errs:      errs,
		secure:    secure,
		logger:    logger,
	}
}

// LoginPage handles GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, h.logger, http.StatusOK, "login.html", loginPage{})
}

// Login handles POST /login. Browsers get the gate page back on failure and a
// redirect on success; clients accepting JSON get error bodies and 204.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	allowed, err := h.limiter.Allow(r.Context(), ip)
	if err != nil {
		h.logger.Error("Rate limiter failed", zap.Error(err))
	}
	if !allowed {
		h.logger.Warn("Login rate limited", zap.String("clientIP", ip))
		h.reject(w, r, apperrors.NewRateLimitError(h.perMinute, "minute"), "Too many attempts. Try again in a minute.")
		return
	}

	if err := r.ParseForm(); err != nil {
		h.reject(w, r, apperrors.NewValidationError("invalid form submission"), "Invalid form submission.")
		return
	}

	ok, err := h.gate.Check(r.PostFormValue("password"))
	if err != nil {
		h.logger.Error("Password check failed", zap.Error(err))
	}
	if !ok {
		h.logger.Info("Login rejected", zap.String("clientIP", ip))
		h.reject(w, r, apperrors.NewUnauthorizedError("incorrect password"), "Incorrect password.")
		return
	}

	token, claims, err := h.issuer.Issue()
	if err != nil {
		h.logger.Error("Failed to issue session", zap.Error(err))
		h.reject(w, r, apperrors.NewInternalError("could not start a session").WithCause(err), "Could not start a session.")
		return
	}
	_ = h.limiter.Reset(r.Context(), ip)

	h.issuer.SetCookie(w, token, claims.ExpiresAt.Time, h.secure)
	h.logger.Info("Session started", zap.String("sessionID", claims.SessionID))
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) reject(w http.ResponseWriter, r *http.Request, appErr *apperrors.AppError, message string) {
	if wantsJSON(r) {
		h.errs.Handle(w, r, appErr)
		return
	}
	render(w, h.logger, appErr.HTTPStatus, "login.html", loginPage{Error: message})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// Logout handles POST /logout. The session snapshot is dropped if the
// cookie still identifies one.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		if claims, err := h.issuer.Validate(cookie.Value); err == nil {
			_ = h.sessions.Delete(r.Context(), claims.SessionID)
		}
	}
	h.issuer.ClearCookie(w, h.secure)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// clientIP strips the port; RealIP has already applied forwarding headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
