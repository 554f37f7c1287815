package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// corsOptions allows every origin, method and header with credentials.
// Origins are reflected rather than answered with "*", which browsers reject
// on credentialed requests.
var corsOptions = cors.Options{
	AllowOriginFunc: func(r *http.Request, origin string) bool { return true },
	AllowedMethods: []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	},
	AllowedHeaders:   []string{"*"},
	AllowCredentials: true,
	MaxAge:           600,
}

// Routes returns the service router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(Recover)
	r.Use(cors.Handler(corsOptions))

	r.Get("/health", h.Health)
	r.Post("/classify", h.Classify)
	r.Post("/classify/upload", h.ClassifyUpload)

	return r
}
