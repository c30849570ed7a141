package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/logger"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

type sessionKey struct{}

func withSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// sessionFrom returns the session loadSession attached. Routes under /api always have one.
func sessionFrom(ctx context.Context) *models.Session {
	s, _ := ctx.Value(sessionKey{}).(*models.Session)
	return s
}

// requestLogger logs one line per request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// loadSession hydrates the session named by the cookie, creating one when needed, and puts
// its bearer token on the context for backend calls.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cookie.Name); err == nil {
			id = c.Value
		}

		sess, _, err := s.sessions.Open(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		// expiry may have slid
		s.setCookie(w, sess)

		ctx := withSession(r.Context(), sess)
		if sess.Authenticated() {
			ctx = backend.WithToken(ctx, sess.Token)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) setCookie(w http.ResponseWriter, sess *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireRole lets the request through only for a signed-in session holding one of roles.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFrom(r.Context())
			switch {
			case sess == nil || !sess.Authenticated():
				respondError(w, http.StatusUnauthorized, "Please sign in", nil)
			case !slices.Contains(roles, sess.Role):
				respondError(w, http.StatusForbidden, "You do not have access to this page", nil)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
