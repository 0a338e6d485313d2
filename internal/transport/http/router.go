// Package httptransport exposes the services over REST and the live relay
// over WebSocket. Handlers only decode, delegate and encode.
package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/oggyb/vivah/internal/app"
	tokens "github.com/oggyb/vivah/internal/auth"
	"github.com/oggyb/vivah/internal/relay"
	"github.com/oggyb/vivah/internal/service/admin"
	authsvc "github.com/oggyb/vivah/internal/service/auth"
	"github.com/oggyb/vivah/internal/service/interest"
	"github.com/oggyb/vivah/internal/service/messaging"
	"github.com/oggyb/vivah/internal/service/profile"
	"github.com/oggyb/vivah/internal/service/shortlist"
)

type Services struct {
	Auth      *authsvc.Service
	Profile   *profile.Service
	Interest  *interest.Service
	Shortlist *shortlist.Service
	Messaging *messaging.Service
	Admin     *admin.Service
}

type Options struct {
	AllowedOrigins []string
	WriteTimeout   time.Duration
	PongWait       time.Duration
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// Health reports dependency state for /health.
	Health func() map[string]string
}

type Handler struct {
	appCtx   *app.AppContext
	jwt      *tokens.JWTService
	svc      Services
	hub      *relay.Hub
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(appCtx *app.AppContext, jwt *tokens.JWTService, svc Services, hub *relay.Hub, opts Options) *Handler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = time.Minute
	}
	h := &Handler{appCtx: appCtx, jwt: jwt, svc: svc, hub: hub, opts: opts}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// NewRouter wires every endpoint.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(h.appCtx.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(Instrument(h.appCtx.Metrics))

	r.Get("/health", h.health)
	if h.opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.MetricsHandler)
	}
	r.With(RequireAuth(h.jwt, h.appCtx.Logger)).Get("/ws", h.serveWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/verify-email", h.verifyEmail)
			r.Post("/resend-verification", h.resendVerification)
			r.Post("/login", h.login)
			r.Post("/forgot-password", h.forgotPassword)
			r.Post("/reset-password", h.resetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.jwt, h.appCtx.Logger))

			r.Get("/me", h.getOwnProfile)
			r.Patch("/me", h.updateOwnProfile)
			r.Post("/me/photos", h.addPhoto)
			r.Delete("/me/photos", h.removePhoto)

			r.Get("/profiles/search", h.searchProfiles)
			r.Get("/profiles/{userID}", h.getPublicProfile)

			r.Route("/interests", func(r chi.Router) {
				r.Post("/", h.sendInterest)
				r.Get("/sent", h.listSentInterests)
				r.Get("/received", h.listReceivedInterests)
				r.Get("/pending-count", h.pendingInterestCount)
				r.Get("/with/{userID}", h.interestStatus)
				r.Post("/{interestID}/accept", h.acceptInterest)
				r.Post("/{interestID}/reject", h.rejectInterest)
				r.Delete("/{interestID}", h.cancelInterest)
			})

			r.Route("/shortlist", func(r chi.Router) {
				r.Get("/", h.listShortlist)
				r.Get("/{userID}", h.isShortlisted)
				r.Put("/{userID}", h.addShortlist)
				r.Delete("/{userID}", h.removeShortlist)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", h.sendMessage)
				r.Get("/conversations", h.listConversations)
				r.Get("/unread-count", h.unreadCount)
				r.Get("/with/{userID}", h.listThread)
				r.Get("/can-message/{userID}", h.canMessage)
				r.Post("/{messageID}/read", h.markMessageRead)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/stats", h.adminStats)
				r.Get("/users", h.adminListUsers)
				r.Get("/users/{userID}", h.adminGetUser)
				r.Patch("/users/{userID}", h.adminUpdateUser)
				r.Put("/users/{userID}/status", h.adminSetStatus)
				r.Delete("/users/{userID}", h.adminSoftDelete)
				r.Delete("/users/{userID}/hard", h.adminHardDelete)
			})
		})
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.opts.Health != nil {
		for k, v := range h.opts.Health() {
			status[k] = v
			if v != "ok" {
				status["status"] = "degraded"
			}
		}
	}
	code := http.StatusOK
	if status["status"] != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
