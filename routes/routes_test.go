package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/nations-league/brackets"
	"github.com/Dosada05/nations-league/handlers"
	"github.com/Dosada05/nations-league/middleware"
	"github.com/Dosada05/nations-league/models"
	"github.com/Dosada05/nations-league/services"
)

var secret = []byte("routes-test-secret")

type stubTournament struct {
	services.TournamentService
	resets int
}

func (s *stubTournament) Bracket(context.Context) (*models.Bracket, error) {
	return models.NewBracket(), nil
}

func (s *stubTournament) Reset(context.Context) (*models.Bracket, error) {
	s.resets++
	return models.NewBracket(), nil
}

func newRouter(t *testing.T, tournament services.TournamentService) http.Handler {
	t.Helper()
	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Health:     handlers.NewHealthHandler(nil, "template"),
		Auth:       handlers.NewAuthHandler(services.NewAuthService(""), string(secret)),
		Team:       handlers.NewTeamHandler(nil, nil),
		Tournament: handlers.NewTournamentHandler(tournament),
		Match:      handlers.NewMatchHandler(nil),
		WebSocket:  handlers.NewWebSocketHandler(brackets.NewHub()),
	}, Options{JWTSecret: secret, AllowedOrigins: []string{"*"}})
	return router
}

func token(t *testing.T, role string) string {
	t.Helper()
	signed, _, err := middleware.IssueToken(secret, "tester", role, time.Now())
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestSetupRoutes_PublicEndpoints(t *testing.T) {
	router := newRouter(t, &stubTournament{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tournament/bracket", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bracket"`)
}

func TestSetupRoutes_AdminGuards(t *testing.T) {
	adminPaths := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/tournament/start"},
		{http.MethodPost, "/api/tournament/reset"},
		{http.MethodPost, "/api/matches/simulate"},
		{http.MethodPost, "/api/matches/play"},
		{http.MethodPost, "/api/matches/live-stream"},
		{http.MethodDelete, "/api/teams/abc"},
	}
	router := newRouter(t, &stubTournament{})

	for _, tc := range adminPaths {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", token(t, "spectator"))
			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestSetupRoutes_AdminReachesHandler(t *testing.T) {
	tournament := &stubTournament{}
	router := newRouter(t, tournament)

	req := httptest.NewRequest(http.MethodPost, "/api/tournament/reset", nil)
	req.Header.Set("Authorization", token(t, services.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, tournament.resets)
	assert.Contains(t, rec.Body.String(), "tournament reset")
}

func TestSetupRoutes_LoginDisabled(t *testing.T) {
	router := newRouter(t, &stubTournament{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"letmein"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
