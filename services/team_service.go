package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/Dosada05/nations-league/models"
	"github.com/Dosada05/nations-league/repositories"
	"github.com/Dosada05/nations-league/simulation"
)

type PlayerInput struct {
	Name            string          `json:"name"`
	NaturalPosition models.Position `json:"naturalPosition"`
	IsCaptain       bool            `json:"isCaptain"`
}

type RegisterTeamInput struct {
	Country        string        `json:"country"`
	Manager        string        `json:"manager"`
	Representative string        `json:"representative"`
	Email          string        `json:"email"`
	Players        []PlayerInput `json:"players"`
}

type TeamService interface {
	Register(ctx context.Context, input RegisterTeamInput) (*models.Team, error)
	GetByID(ctx context.Context, id string) (*models.Team, error)
	List(ctx context.Context) ([]*models.Team, error)
	Delete(ctx context.Context, id string) error
}

type teamService struct {
	teamRepo   repositories.TeamRepository
	tournament TournamentService
	tx         repositories.Transactor

	seed  func() int64
	newID func() string
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	tournament TournamentService,
	tx repositories.Transactor,
) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		tournament: tournament,
		tx:         tx,
		seed:       rand.Int64,
		newID:      uuid.NewString,
	}
}

// Register validates the roster, draws per-position skills for every player
// and stores the team with its computed rating.
func (s *teamService) Register(ctx context.Context, input RegisterTeamInput) (*models.Team, error) {
	rng := simulation.NewRand(s.seed())

	players := make([]models.Player, len(input.Players))
	for i, p := range input.Players {
		players[i] = models.Player{
			Name:            p.Name,
			NaturalPosition: p.NaturalPosition,
			IsCaptain:       p.IsCaptain,
		}
		if p.NaturalPosition.Valid() {
			players[i].Ratings = simulation.GenerateRatings(rng, p.NaturalPosition)
		}
	}

	team, err := models.NewTeam(input.Country, input.Manager, input.Representative, input.Email, players)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	team.ID = s.newID()
	team.Rating = simulation.Rating(team)

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.teamRepo.Create(ctx, exec, team)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTeamCountryConflict) {
			return nil, ErrTeamCountryConflict
		}
		return nil, fmt.Errorf("failed to register team %s: %w", team.Country, err)
	}
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, id string) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleTeamRepoError(err, id)
	}
	return team, nil
}

func (s *teamService) List(ctx context.Context) ([]*models.Team, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	if teams == nil {
		teams = []*models.Team{}
	}
	return teams, nil
}

// Delete removes a team that is not seated in an unfinished bracket. The
// check and the removal run under the tournament's writer lock, so a
// concurrent Start cannot seat the team in between.
func (s *teamService) Delete(ctx context.Context, id string) error {
	return s.tournament.WithdrawTeam(ctx, id, func(ctx context.Context) error {
		if err := s.teamRepo.Delete(ctx, id); err != nil {
			return handleTeamRepoError(err, id)
		}
		return nil
	})
}

func handleTeamRepoError(err error, id string) error {
	if errors.Is(err, repositories.ErrTeamNotFound) {
		return fmt.Errorf("%w: %s", ErrTeamNotFound, id)
	}
	return fmt.Errorf("team %s: %w", id, err)
}
