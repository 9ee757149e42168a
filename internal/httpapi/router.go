package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/haperhq/haper-auth/internal/token"
)

const (
	// requestTimeout bounds handlers that only touch the store.
	requestTimeout = 5 * time.Second
	// webhookTimeout allows for the outbound Gmail and SQS calls.
	webhookTimeout = 30 * time.Second
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Auth        *AuthHandler
	Webhook     *WebhookHandler
	Delegation  *DelegationHandler
	Issuer      *token.Issuer
	CookieName  string
	CORSOrigins []string
	Logger      *zerolog.Logger
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))
			r.Post("/signup", deps.Auth.Signup)
			r.Post("/login", deps.Auth.Login)
		})

		r.Route("/webhook", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(webhookTimeout))
			r.Post("/gmail-sync", deps.Webhook.GmailSync)
		})

		r.Route("/delegation", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))
			r.Use(RequireAuth(deps.Issuer, deps.CookieName, deps.Logger))
			r.Get("/status", deps.Delegation.Status)
		})
	})

	return r
}
