package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/nations-league/brackets"
	"github.com/Dosada05/nations-league/models"
)

func TestTournamentService_Start(t *testing.T) {
	e := newEnv(t, eightTeams()...)

	b := e.start(t)
	assert.Equal(t, models.BracketActive, b.Status)
	assert.Len(t, brackets.PlayableSlots(b), models.QuarterFinalCount)

	stored, err := e.tournament.Bracket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, b.QuarterFinals, stored.QuarterFinals)
	require.Len(t, e.sink.brackets, 1)

	_, err = e.tournament.Start(context.Background(), StartTournamentInput{})
	assert.ErrorIs(t, err, brackets.ErrAlreadyStarted)
}

func TestTournamentService_StartSameSeedSameDraw(t *testing.T) {
	seed := int64(42)
	a := newEnv(t, eightTeams()...)
	b := newEnv(t, eightTeams()...)

	ba, err := a.tournament.Start(context.Background(), StartTournamentInput{Seed: &seed})
	require.NoError(t, err)
	bb, err := b.tournament.Start(context.Background(), StartTournamentInput{Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, ba.QuarterFinals, bb.QuarterFinals)
}

func TestTournamentService_StartTeamCount(t *testing.T) {
	e := newEnv(t, eightTeams()[:7]...)
	_, err := e.tournament.Start(context.Background(), StartTournamentInput{})
	assert.ErrorIs(t, err, ErrNotEnoughTeams)

	b, err := e.tournament.Bracket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BracketNotStarted, b.Status)
}

func TestTournamentService_StartExplicitTeams(t *testing.T) {
	teams := append(eightTeams(), testTeam("t9", "Belgium", 70))
	e := newEnv(t, teams...)

	ids := []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t9"}
	b, err := e.tournament.Start(context.Background(), StartTournamentInput{TeamIDs: ids})
	require.NoError(t, err)
	for _, s := range b.QuarterFinals {
		assert.False(t, s.Holds("t8"))
	}

	e2 := newEnv(t, teams...)
	_, err = e2.tournament.Start(context.Background(), StartTournamentInput{TeamIDs: []string{"t1", "missing"}})
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = e2.tournament.Start(context.Background(), StartTournamentInput{TeamIDs: []string{"t1", "t2"}})
	assert.ErrorIs(t, err, brackets.ErrTeamCount)
}

func TestTournamentService_RecordResultRejected(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)
	qf := b.QuarterFinals[0]

	result := &models.MatchResult{
		MatchType:    models.RoundQuarterFinal,
		Team1:        *qf.Team1,
		Team2:        *qf.Team2,
		Team1Goals:   0,
		Team2Goals:   1,
		GoalEvents:   []models.GoalEvent{{Minute: 10, TeamID: qf.Team2.ID, Team: qf.Team2.Country, Scorer: "X"}},
		WinnerTeamID: qf.Team1.ID,
	}
	_, _, err := e.tournament.RecordResult(context.Background(), qf.Ref, result, nil, false)
	assert.ErrorIs(t, err, brackets.ErrInvalidWinner)
	assert.Empty(t, e.matches.records)

	after, err := e.tournament.Bracket(context.Background())
	require.NoError(t, err)
	assert.True(t, after.QuarterFinals[0].Playable())
	assert.Empty(t, e.sink.records)
}

func TestTournamentService_RecordResultRollsBack(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)
	e.matches.createErr = errors.New("disk full")

	_, err := e.match.Simulate(context.Background(), fixtureAt(b, models.QuarterFinal(0)))
	assert.ErrorContains(t, err, "disk full")

	after, err := e.tournament.Bracket(context.Background())
	require.NoError(t, err)
	assert.True(t, after.QuarterFinals[0].Playable())
	assert.Empty(t, e.sink.records)
}

func TestTournamentService_ResetKeepsHistory(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)

	for i := 0; i < 2; i++ {
		_, err := e.match.Simulate(context.Background(), fixtureAt(b, models.QuarterFinal(i)))
		require.NoError(t, err)
	}

	reset, err := e.tournament.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.BracketNotStarted, reset.Status)
	for _, s := range reset.Slots() {
		assert.Nil(t, s.Team1)
		assert.Nil(t, s.Result)
	}

	history, err := e.match.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = e.tournament.Start(context.Background(), StartTournamentInput{})
	assert.NoError(t, err)
}
