package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/nations-league/brackets"
	"github.com/Dosada05/nations-league/livestream"
	"github.com/Dosada05/nations-league/models"
)

func TestMatchService_FullTournament(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)

	played := 0
	for {
		refs := brackets.PlayableSlots(b)
		if len(refs) == 0 {
			break
		}
		out, err := e.match.Simulate(context.Background(), fixtureAt(b, refs[0]))
		require.NoError(t, err)
		assert.Equal(t, refs[0].String(), out.Slot)
		assert.NotEmpty(t, out.Result.WinnerTeamID)
		b = out.Bracket
		played++
	}

	assert.Equal(t, 7, played)
	assert.Equal(t, models.BracketCompleted, b.Status)
	require.NotNil(t, b.Champion())
	assert.True(t, b.Final.Result.Involves(b.SemiFinals[0].Result.WinnerTeamID, b.SemiFinals[1].Result.WinnerTeamID))

	history, err := e.match.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 7)

	totalGoals := 0
	for _, rec := range history {
		totalGoals += rec.Result.Team1Goals + rec.Result.Team2Goals
		assert.False(t, rec.PlayByPlay)
	}
	scorers, err := e.match.GoalScorers(context.Background())
	require.NoError(t, err)
	sum := 0
	for _, s := range scorers {
		sum += s.Goals
	}
	assert.Equal(t, totalGoals, sum)
	assert.Len(t, e.sink.records, 7)
}

func TestMatchService_SimulateRejections(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	ctx := context.Background()

	_, err := e.match.Simulate(ctx, SimulateMatchInput{Team1ID: "t1", Team2ID: "t2", MatchType: models.RoundQuarterFinal})
	assert.ErrorIs(t, err, brackets.ErrNotActive)

	b := e.start(t)
	in := fixtureAt(b, models.QuarterFinal(0))

	_, err = e.match.Simulate(ctx, SimulateMatchInput{Team1ID: in.Team1ID, Team2ID: "ghost", MatchType: models.RoundQuarterFinal})
	assert.ErrorIs(t, err, ErrTeamNotFound)

	_, err = e.match.Simulate(ctx, SimulateMatchInput{Team1ID: in.Team1ID, Team2ID: in.Team2ID, MatchType: "groupStage"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = e.match.Simulate(ctx, SimulateMatchInput{Team1ID: in.Team1ID, Team2ID: in.Team2ID, MatchType: models.RoundFinal})
	assert.ErrorIs(t, err, brackets.ErrSlotNotFound)

	_, err = e.match.Simulate(ctx, in)
	require.NoError(t, err)
	_, err = e.match.Simulate(ctx, in)
	assert.ErrorIs(t, err, brackets.ErrSlotAlreadyPlayed)
	assert.Len(t, e.matches.records, 1)
}

func TestMatchService_SimulateDeterministicSeed(t *testing.T) {
	seed := int64(99)
	a := newEnv(t, eightTeams()...)
	b := newEnv(t, eightTeams()...)

	in := fixtureAt(a.start(t), models.QuarterFinal(1))
	b.start(t)
	in.Seed = &seed

	ra, err := a.match.Simulate(context.Background(), in)
	require.NoError(t, err)
	rb, err := b.match.Simulate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, ra.Result, rb.Result)
	assert.Equal(t, seed, ra.Result.Seed)
}

func TestMatchService_Play(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)

	out, err := e.match.Play(context.Background(), fixtureAt(b, models.QuarterFinal(2)))
	require.NoError(t, err)
	require.NotEmpty(t, out.Commentary)
	assert.Contains(t, out.Commentary[len(out.Commentary)-1], out.Result.Winner().Country)

	require.Len(t, e.matches.records, 1)
	rec := e.matches.records[0]
	assert.True(t, rec.PlayByPlay)
	assert.Equal(t, out.Commentary, rec.Commentary)
}

func collect(events *[]livestream.Event) func(livestream.Event) error {
	return func(ev livestream.Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestMatchService_RunLive(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)
	in := fixtureAt(b, models.QuarterFinal(0))

	var events []livestream.Event
	require.NoError(t, e.match.RunLive(context.Background(), in, collect(&events)))

	require.NotEmpty(t, events)
	assert.Equal(t, livestream.EventMatchStart, events[0].Type)
	last := events[len(events)-1]
	assert.Equal(t, livestream.EventMatchComplete, last.Type)
	assert.Equal(t, "qf0", last.Slot)

	require.Len(t, e.matches.records, 1)
	rec := e.matches.records[0]
	assert.True(t, rec.PlayByPlay)
	assert.NotEmpty(t, rec.Commentary)
	assert.Equal(t, last.Result, rec.Result)
	assert.Len(t, e.sink.live, len(events))

	after, err := e.tournament.Bracket(context.Background())
	require.NoError(t, err)
	assert.True(t, after.QuarterFinals[0].Terminal())
}

func TestMatchService_RunLiveAbandoned(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)
	in := fixtureAt(b, models.QuarterFinal(3))
	gone := errors.New("client went away")

	var seen []livestream.Event
	err := e.match.RunLive(context.Background(), in, func(ev livestream.Event) error {
		seen = append(seen, ev)
		if ev.Type == livestream.EventTimeUpdate && ev.Minute == 40 {
			return gone
		}
		return nil
	})
	assert.ErrorIs(t, err, gone)
	for _, ev := range seen {
		assert.NotEqual(t, livestream.EventMatchComplete, ev.Type)
	}
	assert.Empty(t, e.matches.records)

	after, err := e.tournament.Bracket(context.Background())
	require.NoError(t, err)
	assert.True(t, after.QuarterFinals[3].Playable())

	var events []livestream.Event
	require.NoError(t, e.match.RunLive(context.Background(), in, collect(&events)))
	assert.Len(t, e.matches.records, 1)
}

func TestMatchService_RunLiveCompleteEmitFails(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)
	in := fixtureAt(b, models.QuarterFinal(0))
	gone := errors.New("client went away")

	err := e.match.RunLive(context.Background(), in, func(ev livestream.Event) error {
		if ev.Type == livestream.EventMatchComplete {
			return gone
		}
		return nil
	})
	assert.ErrorIs(t, err, gone)

	require.Len(t, e.matches.records, 1)
	assert.True(t, e.matches.records[0].PlayByPlay)

	after, err := e.tournament.Bracket(context.Background())
	require.NoError(t, err)
	assert.True(t, after.QuarterFinals[0].Terminal())

	require.NotEmpty(t, e.sink.live)
	last := e.sink.live[len(e.sink.live)-1]
	assert.Equal(t, livestream.EventMatchComplete, last.Type)
	assert.Equal(t, "qf0", last.Slot)
}

func TestMatchService_RunLiveSlotBusy(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)
	in := fixtureAt(b, models.QuarterFinal(1))

	svc := e.match.(*matchService)
	require.True(t, svc.acquire(models.QuarterFinal(1)))

	err := e.match.RunLive(context.Background(), in, collect(new([]livestream.Event)))
	assert.ErrorIs(t, err, ErrSlotBusy)

	svc.release(models.QuarterFinal(1))
	assert.NoError(t, e.match.RunLive(context.Background(), in, collect(new([]livestream.Event))))
}

func TestMatchService_RunLiveCancelledContext(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)
	in := fixtureAt(b, models.QuarterFinal(2))

	ctx, cancel := context.WithCancel(context.Background())
	err := e.match.RunLive(ctx, in, func(ev livestream.Event) error {
		if ev.Type == livestream.EventTimeUpdate && ev.Minute == 10 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.matches.records)
}

func TestMatchService_TeamAnalytics(t *testing.T) {
	e := newEnv(t, eightTeams()...)
	b := e.start(t)
	in := fixtureAt(b, models.QuarterFinal(0))

	out, err := e.match.Simulate(context.Background(), in)
	require.NoError(t, err)

	a, err := e.match.TeamAnalytics(context.Background(), in.Team1ID)
	require.NoError(t, err)
	assert.Equal(t, 1, a.MatchesPlayed)
	scored, conceded := out.Result.GoalsFor(in.Team1ID)
	assert.Equal(t, scored, a.GoalsScored)
	assert.Equal(t, conceded, a.GoalsConceded)
	assert.Equal(t, 1, a.Wins+a.Losses+a.Draws)

	_, err = e.match.TeamAnalytics(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}
