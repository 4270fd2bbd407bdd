package server

import (
	"net/http"

	"github.com/dinehq/maitred/internal/api"
	"github.com/dinehq/maitred/internal/api/handlers"
	"github.com/dinehq/maitred/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AuthValidator     middleware.AuthValidator
	AssistantHandler  *handlers.AssistantHandler
	KnowledgeHandler  *handlers.KnowledgeHandler
	OperationsHandler *handlers.OperationsHandler
	AuthHandler       *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/assistant", func(r chi.Router) {
			r.Post("/query", cfg.AssistantHandler.Query)
			r.Delete("/conversation", cfg.AssistantHandler.ResetConversation)
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/reindex", cfg.KnowledgeHandler.Reindex)
			r.Get("/chunks", cfg.KnowledgeHandler.ListChunks)
		})

		r.Get("/tables", cfg.OperationsHandler.ListTables)
		r.Get("/orders", cfg.OperationsHandler.ListOrders)
		r.Get("/menu", cfg.OperationsHandler.ListMenu)
	})

	r.Post("/tenants", cfg.AuthHandler.CreateTenant)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)
	r.Post("/memberships", cfg.AuthHandler.GrantMembership)

	return r
}
