package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/nations-league/models"
)

func newTestTeamService(e *env) *teamService {
	svc := NewTeamService(e.teams, e.tournament, &fakeTx{}).(*teamService)
	svc.seed = func() int64 { return 3 }
	svc.newID = func() string { return "team-spain" }
	return svc
}

func TestTeamService_Register(t *testing.T) {
	e := newEnv(t)
	svc := newTestTeamService(e)

	team, err := svc.Register(context.Background(), RegisterTeamInput{
		Country:        "  Spain ",
		Manager:        "Luis de la Fuente",
		Representative: "Ana",
		Email:          "ana@rfef.example",
		Players:        rosterInput(),
	})
	require.NoError(t, err)

	assert.Equal(t, "team-spain", team.ID)
	assert.Equal(t, "Spain", team.Country)
	assert.Greater(t, team.Rating, 0.0)
	require.Len(t, team.Players, models.RosterSize)
	for _, p := range team.Players {
		require.Len(t, p.Ratings, len(models.Positions))
		assert.GreaterOrEqual(t, p.Skill(), 50)
		assert.LessOrEqual(t, p.Skill(), 100)
	}

	stored, err := svc.GetByID(context.Background(), "team-spain")
	require.NoError(t, err)
	assert.Same(t, team, stored)
}

func TestTeamService_RegisterValidation(t *testing.T) {
	e := newEnv(t)
	svc := newTestTeamService(e)

	_, err := svc.Register(context.Background(), RegisterTeamInput{Country: "Spain", Players: rosterInput()[:20]})
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.ErrorIs(t, err, models.ErrRosterSize)

	_, err = svc.Register(context.Background(), RegisterTeamInput{Country: " ", Players: rosterInput()})
	assert.ErrorIs(t, err, models.ErrCountry)

	players := rosterInput()
	players[0].NaturalPosition = "ST"
	_, err = svc.Register(context.Background(), RegisterTeamInput{Country: "Spain", Players: players})
	assert.ErrorIs(t, err, models.ErrInvalidPosition)

	teams, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestTeamService_RegisterCountryConflict(t *testing.T) {
	e := newEnv(t, testTeam("t1", "Spain", 60))
	svc := newTestTeamService(e)

	_, err := svc.Register(context.Background(), RegisterTeamInput{Country: "Spain", Players: rosterInput()})
	assert.ErrorIs(t, err, ErrTeamCountryConflict)
}

func TestTeamService_GetUnknown(t *testing.T) {
	svc := newTestTeamService(newEnv(t))
	_, err := svc.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestTeamService_Delete(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	svc := newTestTeamService(e)
	e.start(t)

	err := svc.Delete(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrTeamInTournament)

	_, err = e.tournament.Reset(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "t1"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "t1"), ErrTeamNotFound)
}

func TestTeamService_DeleteWaitsForBracketWriter(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	svc := newTestTeamService(e)

	writer := e.tournament.(*tournamentService)
	writer.mu.Lock()

	done := make(chan error, 1)
	go func() { done <- svc.Delete(context.Background(), "t1") }()

	select {
	case err := <-done:
		writer.mu.Unlock()
		t.Fatalf("delete finished while the bracket was being written: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	_, err := e.teams.GetByID(context.Background(), "t1")
	require.NoError(t, err, "team must survive until the writer lock is released")

	writer.mu.Unlock()
	require.NoError(t, <-done)

	_, err = e.tournament.Start(context.Background(), StartTournamentInput{})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
}
