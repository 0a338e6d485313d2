package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	tokens "github.com/oggyb/vivah/internal/auth"
	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/logger"
	"github.com/oggyb/vivah/internal/metrics"
)

type contextKeyUserID struct{}
type contextKeyRole struct{}

// UserID returns the authenticated member id, or "" outside RequireAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyUserID{}).(string)
	return id
}

func Role(ctx context.Context) string {
	role, _ := ctx.Value(contextKeyRole{}).(string)
	return role
}

// bearerToken reads the access token from the Authorization header, falling
// back to the token query parameter for clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return r.URL.Query().Get("token")
}

// RequireAuth rejects requests without a valid access token with 401 and
// stores the caller's id and role on the context. The request logger gains
// the caller's id.
func RequireAuth(jwt *tokens.JWTService, base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeKind(w, http.StatusUnauthorized, svcErr.KindUnauthorized, "missing access token")
				return
			}
			log := logger.FromContext(r.Context(), base)
			claims, err := jwt.ValidateToken(token)
			if err != nil {
				log.Warn("unauthorized access - invalid token", "err", err)
				writeKind(w, http.StatusUnauthorized, svcErr.KindUnauthorized, svcErr.PublicMessage(err))
				return
			}
			ctx := context.WithValue(r.Context(), contextKeyUserID{}, claims.UserID)
			ctx = context.WithValue(ctx, contextKeyRole{}, claims.Role)
			ctx = logger.WithContext(ctx, log.With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Role(r.Context()) != db.RoleAdmin {
			writeError(w, r, svcErr.Unauthorized("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccessLog stores a request-scoped logger tagged with the request id on
// the context and writes one structured record per request.
func AccessLog(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := base.With("request_id", middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}

// Instrument records request counts and latency by chi route pattern.
func Instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.ObserveHTTPRequest(route, r.Method, strconv.Itoa(ww.Status()), time.Since(start))
		})
	}
}
