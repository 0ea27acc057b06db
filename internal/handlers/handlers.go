package handlers

import (
	"CocoStock/internal/config"
	"CocoStock/internal/middleware"
	"CocoStock/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler держит собранный роутер API склада.
type Handler struct {
	Router chi.Router
}

// NewHandler собирает middleware и маршруты: /health, /api/user/*, /api/items/*.
func NewHandler(
	userService *service.UserService,
	itemService *service.ItemService,
	logger *zap.SugaredLogger,
	cfg *config.Config,
) *Handler {
	users := NewUserHandler(userService, logger, cfg)
	items := NewItemHandler(itemService, logger, cfg)

	r := chi.NewRouter()
	r.Use(
		middleware.WithGzip,
		middleware.WithLogging,
		middleware.WithAuth(cfg.AuthSecret),
	)

	r.Get("/health", health)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", users.Register)
		r.Post("/login", users.Login)
		r.Get("/status", users.Status)
	})

	r.Route("/api/items", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", items.List)
		r.Post("/", items.Create)
		r.Get("/lowStock", items.LowStock)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", items.Get)
			r.Put("/", items.Update)
			r.Delete("/", items.Delete)
			r.Get("/asset", items.Asset)
		})
	})

	return &Handler{Router: r}
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
