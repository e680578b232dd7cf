package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/nations-league/brackets"
	"github.com/Dosada05/nations-league/commentary"
	"github.com/Dosada05/nations-league/livestream"
	"github.com/Dosada05/nations-league/models"
	"github.com/Dosada05/nations-league/repositories"
)

type SimulateMatchInput struct {
	Team1ID   string       `json:"team1_id"`
	Team2ID   string       `json:"team2_id"`
	MatchType models.Round `json:"match_type"`
	Seed      *int64       `json:"seed,omitempty"`
}

type MatchOutcome struct {
	MatchID    int                 `json:"match_id"`
	Slot       string              `json:"slot"`
	Result     *models.MatchResult `json:"match_result"`
	Bracket    *models.Bracket     `json:"bracket"`
	Commentary []string            `json:"commentary,omitempty"`
}

type MatchService interface {
	// Simulate plays the bracket match between the two teams instantly.
	Simulate(ctx context.Context, input SimulateMatchInput) (*MatchOutcome, error)
	// Play is Simulate plus a full-match commentary.
	Play(ctx context.Context, input SimulateMatchInput) (*MatchOutcome, error)
	// RunLive replays the match at wall-clock pace, handing every event to
	// emit. The result is recorded as soon as match_complete is produced,
	// before that event reaches emit, so a failed emit of match_complete
	// still leaves the match recorded. An emit error or a cancelled ctx
	// before that point abandons the match without recording it.
	RunLive(ctx context.Context, input SimulateMatchInput, emit func(livestream.Event) error) error

	History(ctx context.Context) ([]*models.MatchRecord, error)
	GoalScorers(ctx context.Context) ([]models.GoalScorer, error)
	TeamAnalytics(ctx context.Context, teamID string) (*models.TeamAnalytics, error)
}

type matchService struct {
	teamRepo   repositories.TeamRepository
	matchRepo  repositories.MatchRepository
	tournament TournamentService
	controller *livestream.Controller
	gen        commentary.Generator
	sink       ResultSink
	logger     *slog.Logger

	seed func() int64

	liveMu sync.Mutex
	live   map[string]bool
}

func NewMatchService(
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	tournament TournamentService,
	controller *livestream.Controller,
	gen commentary.Generator,
	sink ResultSink,
	logger *slog.Logger,
) MatchService {
	if gen == nil {
		gen = commentary.NewTemplate()
	}
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &matchService{
		teamRepo:   teamRepo,
		matchRepo:  matchRepo,
		tournament: tournament,
		controller: controller,
		gen:        gen,
		sink:       sink,
		logger:     logger,
		seed:       rand.Int64,
		live:       make(map[string]bool),
	}
}

// fixture is a bracket match ready to be played.
type fixture struct {
	team1 *models.Team
	team2 *models.Team
	ref   models.SlotRef
	seed  int64
}

func (s *matchService) prepare(ctx context.Context, input SimulateMatchInput) (*fixture, error) {
	if input.Team1ID == "" || input.Team2ID == "" {
		return nil, fmt.Errorf("%w: team1_id and team2_id are required", ErrValidationFailed)
	}
	if !input.MatchType.Valid() {
		return nil, fmt.Errorf("%w: unknown match_type %q", ErrValidationFailed, input.MatchType)
	}

	f := &fixture{seed: s.seed()}
	if input.Seed != nil {
		f.seed = *input.Seed
	}

	var b *models.Bracket
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		team, err := s.teamRepo.GetByID(gCtx, input.Team1ID)
		if err != nil {
			return handleTeamRepoError(err, input.Team1ID)
		}
		f.team1 = team
		return nil
	})
	g.Go(func() error {
		team, err := s.teamRepo.GetByID(gCtx, input.Team2ID)
		if err != nil {
			return handleTeamRepoError(err, input.Team2ID)
		}
		f.team2 = team
		return nil
	})
	g.Go(func() error {
		var err error
		b, err = s.tournament.Bracket(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if b.Status != models.BracketActive {
		return nil, brackets.ErrNotActive
	}
	ref, err := brackets.FindSlot(b, input.MatchType, input.Team1ID, input.Team2ID)
	if err != nil {
		return nil, err
	}
	if slot := b.Slot(ref); slot.Terminal() {
		return nil, fmt.Errorf("%w: %s", brackets.ErrSlotAlreadyPlayed, ref)
	}
	f.ref = ref
	return f, nil
}

func (s *matchService) Simulate(ctx context.Context, input SimulateMatchInput) (*MatchOutcome, error) {
	f, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	result, err := s.controller.Quick(f.team1, f.team2, input.MatchType, f.seed)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, f.ref, result, nil, false)
}

func (s *matchService) Play(ctx context.Context, input SimulateMatchInput) (*MatchOutcome, error) {
	f, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	result, err := s.controller.Quick(f.team1, f.team2, input.MatchType, f.seed)
	if err != nil {
		return nil, err
	}
	lines, err := s.gen.Summary(ctx, result)
	if err != nil {
		s.logger.Warn("match summary failed", "generator", s.gen.Name(), "error", err)
		lines = nil
	}
	return s.record(ctx, f.ref, result, lines, true)
}

func (s *matchService) record(ctx context.Context, ref models.SlotRef, result *models.MatchResult, lines []string, playByPlay bool) (*MatchOutcome, error) {
	rec, b, err := s.tournament.RecordResult(ctx, ref, result, lines, playByPlay)
	if err != nil {
		return nil, err
	}
	return &MatchOutcome{
		MatchID:    rec.ID,
		Slot:       rec.Slot,
		Result:     result,
		Bracket:    b,
		Commentary: lines,
	}, nil
}

func (s *matchService) RunLive(ctx context.Context, input SimulateMatchInput, emit func(livestream.Event) error) error {
	f, err := s.prepare(ctx, input)
	if err != nil {
		return err
	}
	if !s.acquire(f.ref) {
		return fmt.Errorf("%w: %s", ErrSlotBusy, f.ref)
	}
	defer s.release(f.ref)

	stream, err := s.controller.Start(ctx, f.team1, f.team2, input.MatchType, f.seed)
	if err != nil {
		return err
	}
	defer stream.Cancel()

	logger := s.logger.With("slot", f.ref.String(), "seed", f.seed)
	logger.Info("live match started")

	var lines []string
	for ev := range stream.Events() {
		switch ev.Type {
		case livestream.EventCommentary:
			lines = append(lines, ev.Text)
		case livestream.EventMatchComplete:
			ev.Slot = f.ref.String()
			if _, _, err := s.tournament.RecordResult(ctx, f.ref, ev.Result, lines, true); err != nil {
				logger.Error("live result not recorded", "error", err)
				_ = emit(livestream.Event{Type: livestream.EventError, Err: "failed to record match result"})
				return err
			}
		case livestream.EventError:
			logger.Error("live match failed", "error", ev.Err)
		}

		s.sink.LiveEvent(ctx, ev)
		if err := emit(ev); err != nil {
			logger.Info("live match abandoned", "error", err)
			return err
		}
		if ev.Type == livestream.EventError {
			return errors.New(ev.Err)
		}
	}

	if _, ok := stream.Result(); !ok {
		if ctx.Err() != nil {
			logger.Info("live match cancelled")
			return ctx.Err()
		}
		return errors.New("live stream ended without a result")
	}
	return nil
}

func (s *matchService) acquire(ref models.SlotRef) bool {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if s.live[ref.String()] {
		return false
	}
	s.live[ref.String()] = true
	return true
}

func (s *matchService) release(ref models.SlotRef) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	delete(s.live, ref.String())
}

func (s *matchService) History(ctx context.Context) ([]*models.MatchRecord, error) {
	records, err := s.matchRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load match history: %w", err)
	}
	if records == nil {
		records = []*models.MatchRecord{}
	}
	return records, nil
}

func (s *matchService) GoalScorers(ctx context.Context) ([]models.GoalScorer, error) {
	records, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	return GoalScorers(records), nil
}

func (s *matchService) TeamAnalytics(ctx context.Context, teamID string) (*models.TeamAnalytics, error) {
	var (
		team    *models.Team
		records []*models.MatchRecord
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		team, err = s.teamRepo.GetByID(gCtx, teamID)
		if err != nil {
			return handleTeamRepoError(err, teamID)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = s.History(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a := TeamAnalyticsFor(team, records)
	return &a, nil
}
