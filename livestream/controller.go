package livestream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/nations-league/commentary"
	"github.com/Dosada05/nations-league/models"
	"github.com/Dosada05/nations-league/simulation"
)

const DefaultTickInterval = 200 * time.Millisecond

var ErrResultInconsistent = errors.New("replayed events do not match the simulated result")

// regularMoments are the minutes that get a general line when nothing else happens.
var regularMoments = map[int]bool{15: true, 30: true, 60: true, 75: true}

var template = commentary.NewTemplate()

// Controller runs live matches: it simulates once, then replays the result
// at wall-clock pace as a stream of events.
type Controller struct {
	sim    *simulation.Simulator
	gen    commentary.Generator
	tick   time.Duration
	logger *slog.Logger
}

// NewController returns a controller pacing one simulated minute per tick. A
// non-positive tick replays without waiting.
func NewController(sim *simulation.Simulator, gen commentary.Generator, tick time.Duration, logger *slog.Logger) *Controller {
	if gen == nil {
		gen = template
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{sim: sim, gen: gen, tick: tick, logger: logger}
}

// Quick simulates synchronously and returns only the result.
func (c *Controller) Quick(team1, team2 *models.Team, matchType models.Round, seed int64) (*models.MatchResult, error) {
	return c.sim.Simulate(team1, team2, matchType, seed)
}

// Start simulates the match up front, returning precondition errors
// synchronously, and then replays it on the returned stream until the
// replay finishes, ctx ends or the stream is cancelled.
func (c *Controller) Start(ctx context.Context, team1, team2 *models.Team, matchType models.Round, seed int64) (*Stream, error) {
	result, err := c.sim.Simulate(team1, team2, matchType, seed)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		events: make(chan Event),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	r := &replay{
		ctx:    ctx,
		stream: s,
		gen:    c.gen,
		tick:   c.tick,
		result: result,
		logger: c.logger.With("team1", result.Team1.Country, "team2", result.Team2.Country, "seed", seed),
	}
	go r.run()
	return s, nil
}

// Stream is a single live match in progress.
type Stream struct {
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	result *models.MatchResult
}

// Events yields the match events in order. It is closed when the replay ends.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Cancel stops the replay and waits for the producer to exit. No event is
// delivered after Cancel returns and no match_complete follows.
func (s *Stream) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed once the producer has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Result returns the final result once match_complete has been delivered.
func (s *Stream) Result() (*models.MatchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.result != nil
}

type replay struct {
	ctx    context.Context
	stream *Stream
	gen    commentary.Generator
	tick   time.Duration
	result *models.MatchResult
	logger *slog.Logger

	ticker *time.Ticker
	score  Scoreline
}

func (r *replay) run() {
	defer close(r.stream.done)
	defer close(r.stream.events)
	defer r.stream.cancel()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("live replay panicked", "panic", p)
			r.fail(fmt.Sprintf("internal error: %v", p))
		}
	}()

	if r.tick > 0 {
		r.ticker = time.NewTicker(r.tick)
		defer r.ticker.Stop()
	}

	if err := r.play(); err != nil {
		if r.ctx.Err() != nil {
			r.logger.Info("live replay cancelled")
			return
		}
		r.logger.Error("live replay failed", "error", err)
		r.fail(err.Error())
	}
}

func (r *replay) play() error {
	res := r.result
	if !r.send(Event{Type: EventMatchStart, Team1: res.Team1, Team2: res.Team2}) {
		return r.ctx.Err()
	}
	if !r.comment(commentary.KindKickoff, 0, nil) {
		return r.ctx.Err()
	}

	goals := make(map[int][]models.GoalEvent)
	for _, g := range res.GoalEvents {
		goals[g.Minute] = append(goals[g.Minute], g)
	}

	last := simulation.RegularMinutes
	if res.WentToExtraTime {
		last = simulation.ExtraTimeMinutes
	}

	for minute := 1; minute <= last; minute++ {
		if !r.wait() || !r.send(Event{Type: EventTimeUpdate, Minute: minute}) {
			return r.ctx.Err()
		}
		if minute == simulation.RegularMinutes+1 && !r.comment(commentary.KindExtraTime, minute, nil) {
			return r.ctx.Err()
		}

		for i := range goals[minute] {
			g := goals[minute][i]
			switch g.TeamID {
			case res.Team1.ID:
				r.score.Team1++
			case res.Team2.ID:
				r.score.Team2++
			default:
				return fmt.Errorf("%w: goal for unknown team %q", ErrResultInconsistent, g.TeamID)
			}
			if !r.send(Event{Type: EventGoal, Minute: minute, Goal: &g, Score: r.score}) {
				return r.ctx.Err()
			}
			if !r.comment(commentary.KindGoal, minute, &g) {
				return r.ctx.Err()
			}
		}

		var kind commentary.Kind
		switch {
		case minute == 45:
			kind = commentary.KindHalftime
		case minute == 46:
			kind = commentary.KindSecondHalf
		case minute == simulation.RegularMinutes:
			kind = commentary.KindFulltime
		case regularMoments[minute] && len(goals[minute]) == 0:
			kind = commentary.KindRegular
		}
		if kind != "" && !r.comment(kind, minute, nil) {
			return r.ctx.Err()
		}
	}

	if r.score.Team1 != res.Team1Goals || r.score.Team2 != res.Team2Goals {
		return fmt.Errorf("%w: replayed %d-%d, result %s", ErrResultInconsistent, r.score.Team1, r.score.Team2, res.Score())
	}

	if res.WentToPenalties {
		if err := r.shootout(); err != nil {
			return err
		}
	}

	if res.Winner() == nil {
		return fmt.Errorf("%w: no winner", ErrResultInconsistent)
	}

	if !r.send(Event{Type: EventMatchComplete, Minute: last, Result: res}) {
		return r.ctx.Err()
	}
	r.stream.mu.Lock()
	r.stream.result = res
	r.stream.mu.Unlock()
	return nil
}

func (r *replay) shootout() error {
	res := r.result
	if !r.comment(commentary.KindPenalties, simulation.ExtraTimeMinutes, nil) {
		return r.ctx.Err()
	}

	var pens Scoreline
	for i := range res.PenaltyKicks {
		k := res.PenaltyKicks[i]
		team := res.Team1.Country
		switch k.TeamID {
		case res.Team1.ID:
			if k.Scored {
				pens.Team1++
			}
		case res.Team2.ID:
			team = res.Team2.Country
			if k.Scored {
				pens.Team2++
			}
		default:
			return fmt.Errorf("%w: penalty for unknown team %q", ErrResultInconsistent, k.TeamID)
		}
		if !r.wait() || !r.send(Event{Type: EventPenalty, Minute: simulation.ExtraTimeMinutes, Kick: &k, KickTeam: team, Penalties: pens}) {
			return r.ctx.Err()
		}
	}
	if res.PenaltyScore == nil || pens.Team1 != res.PenaltyScore.Team1 || pens.Team2 != res.PenaltyScore.Team2 {
		return fmt.Errorf("%w: shoot-out replay %d-%d", ErrResultInconsistent, pens.Team1, pens.Team2)
	}
	return nil
}

func (r *replay) comment(kind commentary.Kind, minute int, g *models.GoalEvent) bool {
	m := commentary.Moment{
		Kind:   kind,
		Minute: minute,
		Team1:  r.result.Team1.Country,
		Team2:  r.result.Team2.Country,
		Score1: r.score.Team1,
		Score2: r.score.Team2,
	}
	if g != nil {
		m.Scorer, m.ScoringTeam = g.Scorer, g.Team
	}
	text, err := r.gen.Line(r.ctx, m)
	if err != nil {
		if r.ctx.Err() != nil {
			return false
		}
		r.logger.Warn("commentary line failed, using template", "kind", kind, "minute", minute, "error", err)
		text, _ = template.Line(r.ctx, m)
	}
	return r.send(Event{Type: EventCommentary, Minute: minute, Text: text, CommentaryType: kind})
}

// wait blocks for one tick. It reports false when the replay was cancelled.
func (r *replay) wait() bool {
	if r.ticker == nil {
		return r.ctx.Err() == nil
	}
	select {
	case <-r.ctx.Done():
		return false
	case <-r.ticker.C:
		return true
	}
}

// send hands ev to the consumer. It reports false when the replay was cancelled.
func (r *replay) send(ev Event) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case <-r.ctx.Done():
		return false
	case r.stream.events <- ev:
		return true
	}
}

// fail delivers a terminal error event unless the consumer has gone away.
func (r *replay) fail(msg string) {
	r.send(Event{Type: EventError, Err: msg})
}
