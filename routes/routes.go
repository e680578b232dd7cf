package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/nations-league/handlers"
	"github.com/Dosada05/nations-league/middleware"
	"github.com/Dosada05/nations-league/services"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Team       *handlers.TeamHandler
	Tournament *handlers.TournamentHandler
	Match      *handlers.MatchHandler
	WebSocket  *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	adminOnly := func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret))
		r.Use(middleware.Authorize(services.RoleAdmin))
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health.Health)
		r.With(chiMiddleware.Throttle(5)).Post("/auth/login", h.Auth.Login)

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", h.Team.RegisterTeam)
			r.Get("/", h.Team.ListTeams)
			r.Get("/{teamID}", h.Team.GetTeamByID)
			r.Get("/{teamID}/analytics", h.Team.GetTeamAnalytics)
			r.Group(func(r chi.Router) {
				adminOnly(r)
				r.Delete("/{teamID}", h.Team.DeleteTeam)
			})
		})

		r.Route("/tournament", func(r chi.Router) {
			r.Get("/bracket", h.Tournament.GetBracket)
			r.Group(func(r chi.Router) {
				adminOnly(r)
				r.Post("/start", h.Tournament.StartTournament)
				r.Post("/reset", h.Tournament.ResetTournament)
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/history", h.Match.ListHistory)
			r.Group(func(r chi.Router) {
				adminOnly(r)
				r.With(chiMiddleware.Timeout(30*time.Second)).Post("/simulate", h.Match.SimulateMatch)
				r.With(chiMiddleware.Timeout(60*time.Second)).Post("/play", h.Match.PlayMatch)
				r.Post("/live-stream", h.Match.LiveStream)
			})
		})

		r.Get("/goal-scorers", h.Match.ListGoalScorers)
	})

	router.Get("/ws/tournament", h.WebSocket.ServeWs)
}
