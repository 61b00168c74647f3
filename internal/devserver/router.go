package devserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter exposes the chat backend API the client talks to.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat/login", h.Login)
		r.Post("/chat/register", h.Register)
		r.Post("/chat/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/chat/dialogs", h.ListDialogs)
			r.Post("/chat/dialogs", h.CreateDialog)
			r.Delete("/chat/dialogs/{dialogID}", h.DeleteDialog)

			r.Get("/dialog/{dialogID}", h.GetDialog)
			r.Put("/dialog/{dialogID}/config", h.UpdateDialogConfig)
			r.Get("/dialog/{dialogID}/messages", h.GetMessages)
			r.Post("/dialog/{dialogID}/chat", h.Chat)

			r.Get("/kb/list", h.ListFiles)
			r.Delete("/kb/{fileID}", h.DeleteFile)
			r.Get("/kb/{fileID}/chunks", h.Chunks)
			r.Get("/kb/{fileID}/chunks/{chunkID}/vector", h.Vector)

			r.Post("/eval/evaluate", h.Evaluate)
		})

		// Uploads stream a body of up to 10MB and get no request timeout.
		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Post("/kb/upload", h.Upload)
		})
	})

	return r
}
