// Package rest - HTTP API поверх сервисов слотов и обменов.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slotswap/internal/service"
)

// Deps - зависимости HTTP API
type Deps struct {
	Users       *service.UserService
	Slots       *service.SlotService
	Swaps       *service.SwapService
	JWTSecret   []byte
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter собирает chi роутер со всеми маршрутами API
func NewRouter(deps Deps) http.Handler {
	h := &Handler{
		slots:  deps.Slots,
		swaps:  deps.Swaps,
		logger: deps.Logger,
	}
	auth := NewAuthenticator(deps.JWTSecret, deps.Users, deps.Logger)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(AccessLog(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler)

	r.Get("/health", HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/slots", func(r chi.Router) {
			r.Get("/", h.ListSlots)
			r.Post("/", h.CreateSlot)
			r.Get("/{id}", h.GetSlot)
			r.Patch("/{id}", h.UpdateSlot)
			r.Put("/{id}", h.UpdateSlot)
			r.Delete("/{id}", h.DeleteSlot)
		})

		r.Get("/swappable-slots", h.ListSwappable)
		r.Post("/swap-request", h.ProposeSwap)
		r.Post("/swap-response/{id}", h.RespondSwap)
		r.Get("/requests", h.ListRequests)
		r.Get("/requests/{id}", h.GetRequest)
	})

	return r
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
