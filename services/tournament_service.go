package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/Dosada05/nations-league/brackets"
	"github.com/Dosada05/nations-league/models"
	"github.com/Dosada05/nations-league/repositories"
	"github.com/Dosada05/nations-league/simulation"
)

type StartTournamentInput struct {
	TeamIDs []string `json:"team_ids,omitempty"`
	Seed    *int64   `json:"seed,omitempty"`
}

// TournamentService owns the bracket. Every mutation is serialised behind a
// single mutex and persisted before it is published.
type TournamentService interface {
	Bracket(ctx context.Context) (*models.Bracket, error)
	Start(ctx context.Context, input StartTournamentInput) (*models.Bracket, error)
	Reset(ctx context.Context) (*models.Bracket, error)
	RecordResult(ctx context.Context, ref models.SlotRef, result *models.MatchResult, lines []string, playByPlay bool) (*models.MatchRecord, *models.Bracket, error)
	// WithdrawTeam runs remove under the writer lock once teamID is known not
	// to sit in an active bracket.
	WithdrawTeam(ctx context.Context, teamID string, remove func(ctx context.Context) error) error
}

type tournamentService struct {
	mu sync.Mutex

	teamRepo    repositories.TeamRepository
	bracketRepo repositories.BracketRepository
	matchRepo   repositories.MatchRepository
	tx          repositories.Transactor
	sink        ResultSink
	logger      *slog.Logger

	seed func() int64
}

func NewTournamentService(
	teamRepo repositories.TeamRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	tx repositories.Transactor,
	sink ResultSink,
	logger *slog.Logger,
) TournamentService {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &tournamentService{
		teamRepo:    teamRepo,
		bracketRepo: bracketRepo,
		matchRepo:   matchRepo,
		tx:          tx,
		sink:        sink,
		logger:      logger,
		seed:        rand.Int64,
	}
}

func (s *tournamentService) Bracket(ctx context.Context) (*models.Bracket, error) {
	b, err := s.bracketRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bracket: %w", err)
	}
	return b, nil
}

// Start draws the quarter finals. Without explicit team ids every registered
// team takes part, which requires exactly eight of them.
func (s *tournamentService) Start(ctx context.Context, input StartTournamentInput) (*models.Bracket, error) {
	seed := s.seed()
	if input.Seed != nil {
		seed = *input.Seed
	}

	b, err := s.mutate(ctx, func(b *models.Bracket) error {
		refs, err := s.participants(ctx, input.TeamIDs)
		if err != nil {
			return err
		}
		return brackets.Initialize(b, refs, simulation.NewRand(seed))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament started", "seed", seed)
	s.sink.BracketUpdated(ctx, b)
	return b, nil
}

// Reset empties the bracket. Teams and match history are kept.
func (s *tournamentService) Reset(ctx context.Context) (*models.Bracket, error) {
	b, err := s.mutate(ctx, func(b *models.Bracket) error {
		brackets.Reset(b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament reset")
	s.sink.BracketUpdated(ctx, b)
	return b, nil
}

// RecordResult applies result to the slot at ref and appends it to the match
// history in one transaction. Nothing is stored when the bracket rejects it.
func (s *tournamentService) RecordResult(ctx context.Context, ref models.SlotRef, result *models.MatchResult, lines []string, playByPlay bool) (*models.MatchRecord, *models.Bracket, error) {
	rec := &models.MatchRecord{
		Slot:       ref.String(),
		Result:     result,
		PlayByPlay: playByPlay,
		Commentary: lines,
	}

	s.mu.Lock()
	current, err := s.bracketRepo.Get(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("failed to load bracket: %w", err)
	}
	next := current.Clone()
	if err := brackets.ApplyResult(next, ref, result); err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.bracketRepo.Save(ctx, exec, next); err != nil {
			return err
		}
		return s.matchRepo.Create(ctx, exec, rec)
	})
	s.mu.Unlock()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to record %s result: %w", ref, err)
	}

	s.logger.Info("match recorded",
		"slot", rec.Slot,
		"match_id", rec.ID,
		"score", result.ScoreDisplay(),
		"winner", result.Winner().Country,
	)
	s.sink.MatchRecorded(ctx, rec, next)
	return rec, next, nil
}

func (s *tournamentService) WithdrawTeam(ctx context.Context, teamID string, remove func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.bracketRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load bracket: %w", err)
	}
	if b.Status == models.BracketActive {
		for _, slot := range b.Slots() {
			if slot.Holds(teamID) {
				return fmt.Errorf("%w: %s", ErrTeamInTournament, teamID)
			}
		}
	}
	return remove(ctx)
}

// mutate loads the bracket, applies fn to a copy and saves the copy, all
// under the writer lock.
func (s *tournamentService) mutate(ctx context.Context, fn func(b *models.Bracket) error) (*models.Bracket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.bracketRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bracket: %w", err)
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := s.bracketRepo.Save(ctx, nil, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *tournamentService) participants(ctx context.Context, ids []string) ([]models.TeamRef, error) {
	if len(ids) == 0 {
		teams, err := s.teamRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list teams: %w", err)
		}
		if len(teams) != models.BracketTeams {
			return nil, fmt.Errorf("%w: %d registered, exactly %d required", ErrNotEnoughTeams, len(teams), models.BracketTeams)
		}
		refs := make([]models.TeamRef, len(teams))
		for i, t := range teams {
			refs[i] = t.Ref()
		}
		return refs, nil
	}

	refs := make([]models.TeamRef, 0, len(ids))
	for _, id := range ids {
		team, err := s.teamRepo.GetByID(ctx, id)
		if err != nil {
			return nil, handleTeamRepoError(err, id)
		}
		refs = append(refs, team.Ref())
	}
	return refs, nil
}
