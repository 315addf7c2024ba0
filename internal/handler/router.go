package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heritage-trails/admin-api/internal/middleware"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Handlers groups the resource handlers mounted by NewRouter.
type Handlers struct {
	Health        *HealthHandler
	Auth          *AuthHandler
	Users         *UserHandler
	Bookings      *BookingHandler
	Conversations *ConversationHandler
	Stream        *StreamHandler
	ChatSocket    *ChatSocketHandler
	Feedback      *FeedbackHandler
	Campaigns     *CampaignHandler
	Reports       *ReportHandler
	CallRequests  *CallRequestHandler
	MasterData    *MasterDataHandler
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Handlers          Handlers
	Authenticator     middleware.Authenticator
	AllowedOrigins    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	LoginRateLimit    int
	ServiceName       string
	Logger            *logger.Logger
}

// NewRouter builds the API router.
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handlers
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(maxBodyBytes))

		r.With(middleware.LoginRateLimit(cfg.LoginRateLimit, time.Minute)).
			Post("/auth/login", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Authenticator))
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/logout", h.Auth.Logout)
				r.Get("/me", h.Auth.Me)
				r.Put("/password", h.Auth.ChangePassword)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.Users.List)
				r.With(middleware.RequireAdmin).Post("/", h.Users.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidateID("id"))
					r.Get("/", h.Users.Get)
					r.With(middleware.RequireAdmin).Patch("/", h.Users.Update)
					r.With(middleware.RequireAdmin).Put("/password", h.Users.ResetPassword)
				})
			})

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", h.Bookings.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidateID("id"))
					r.Get("/", h.Bookings.Get)
					r.Get("/ticket.png", h.Bookings.Ticket)
					r.Post("/confirm", h.Bookings.Confirm)
					r.Post("/reject", h.Bookings.Reject)
					r.Post("/cancel", h.Bookings.Cancel)
					r.Post("/complete", h.Bookings.Complete)
				})
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", h.Conversations.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidateID("id"))
					r.Get("/", h.Conversations.Get)
					r.Get("/messages", h.Conversations.Messages)
					r.Post("/messages", h.Conversations.Send)
					r.Post("/read", h.Conversations.MarkRead)
					r.Post("/assign", h.Conversations.Assign)
					r.Post("/close", h.Conversations.Close)
					r.Get("/stream", h.Stream.Stream)
				})
			})

			r.Get("/chat/ws", h.ChatSocket.Serve)

			r.Route("/feedback", func(r chi.Router) {
				r.Get("/", h.Feedback.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidateID("id"))
					r.Get("/", h.Feedback.Get)
					r.Post("/reply", h.Feedback.Reply)
					r.Put("/status", h.Feedback.SetStatus)
				})
			})

			r.Route("/campaigns", func(r chi.Router) {
				r.Get("/", h.Campaigns.List)
				r.Post("/", h.Campaigns.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidateID("id"))
					r.Get("/", h.Campaigns.Get)
					r.Put("/", h.Campaigns.Update)
					r.Delete("/", h.Campaigns.Delete)
					r.With(middleware.RequireAdmin).Post("/send", h.Campaigns.Send)
				})
			})

			r.Get("/reports/{name}", h.Reports.Get)

			r.Route("/call-requests", func(r chi.Router) {
				r.Get("/", h.CallRequests.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidateID("id"))
					r.Get("/", h.CallRequests.Get)
					r.Post("/assign", h.CallRequests.Assign)
					r.Post("/resolve", h.CallRequests.Resolve)
				})
			})

			r.Route("/master-data", func(r chi.Router) {
				r.Get("/", h.MasterData.List)
				r.Post("/", h.MasterData.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.ValidateID("id"))
					r.Get("/", h.MasterData.Get)
					r.Put("/", h.MasterData.Update)
					r.Delete("/", h.MasterData.Deactivate)
					r.Put("/translations", h.MasterData.UpsertTranslation)
					r.Post("/auto-translate", h.MasterData.AutoTranslate)
				})
			})
		})
	})

	return r
}
