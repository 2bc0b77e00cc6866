package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/quizrally/trivia-backend/internal/ws"
)

func SetupRoutes(a *API, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", Healthz)
	r.Get("/packs", a.ListPacks())
	r.Get("/ws", ws.Handler(a.Hub, a.Log))

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", a.CreateRoom())
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", a.GetSnapshot())
			r.Get("/leaderboard", a.GetLeaderboard())
			r.Post("/join", a.JoinRoom())
			r.Post("/start", a.StartGame())
			r.Post("/advance", a.AdvanceQuestion())
			r.Post("/reveal", a.RevealNow())
			r.Post("/cancel", a.CancelRoom())
			r.Post("/answers", a.SubmitAnswer())
		})
	})
	return r
}
