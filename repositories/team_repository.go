package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/nations-league/models"
	"github.com/lib/pq"
)

var (
	ErrTeamNotFound        = errors.New("team not found")
	ErrTeamCountryConflict = errors.New("team country conflict")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id string) (*models.Team, error)
	List(ctx context.Context) ([]*models.Team, error)
	Delete(ctx context.Context, id string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

// Create inserts the team row and its whole roster. Pass a transaction as
// exec so that a failing player insert does not leave a half-registered team.
func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO teams (id, country, manager, representative, email, rating)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING registered_at`

	err := exec.QueryRowContext(ctx, query,
		team.ID,
		team.Country,
		team.Manager,
		team.Representative,
		team.Email,
		team.Rating,
	).Scan(&team.RegisteredAt)
	if err != nil {
		return r.handleTeamError(err)
	}

	playerQuery := `
		INSERT INTO players (team_id, squad_number, name, natural_position, is_captain, rating_gk, rating_df, rating_md, rating_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i, p := range team.Players {
		_, err := exec.ExecContext(ctx, playerQuery,
			team.ID,
			i+1,
			p.Name,
			p.NaturalPosition,
			p.IsCaptain,
			p.Ratings[models.PositionGK],
			p.Ratings[models.PositionDF],
			p.Ratings[models.PositionMD],
			p.Ratings[models.PositionAT],
		)
		if err != nil {
			return fmt.Errorf("failed to insert player %q of %s: %w", p.Name, team.Country, err)
		}
	}
	return nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	query := `
		SELECT id, country, manager, representative, email, rating, registered_at
		FROM teams
		WHERE id = $1`

	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID,
		&team.Country,
		&team.Manager,
		&team.Representative,
		&team.Email,
		&team.Rating,
		&team.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team %s: %w", id, err)
	}

	rosters, err := r.loadPlayers(ctx, `WHERE team_id = $1`, id)
	if err != nil {
		return nil, err
	}
	team.Players = rosters[team.ID]
	return team, nil
}

func (r *postgresTeamRepository) List(ctx context.Context) ([]*models.Team, error) {
	query := `
		SELECT id, country, manager, representative, email, rating, registered_at
		FROM teams
		ORDER BY registered_at, country`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team := &models.Team{}
		if err := rows.Scan(
			&team.ID,
			&team.Country,
			&team.Manager,
			&team.Representative,
			&team.Email,
			&team.Rating,
			&team.RegisteredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	if len(teams) == 0 {
		return teams, nil
	}

	rosters, err := r.loadPlayers(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, team := range teams {
		team.Players = rosters[team.ID]
	}
	return teams, nil
}

func (r *postgresTeamRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

// loadPlayers returns rosters keyed by team id, in squad order.
func (r *postgresTeamRepository) loadPlayers(ctx context.Context, where string, args ...interface{}) (map[string][]models.Player, error) {
	query := `
		SELECT team_id, name, natural_position, is_captain, rating_gk, rating_df, rating_md, rating_at
		FROM players ` + where + `
		ORDER BY team_id, squad_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	defer rows.Close()

	rosters := make(map[string][]models.Player)
	for rows.Next() {
		var (
			teamID         string
			p              models.Player
			gk, df, md, at int
		)
		if err := rows.Scan(&teamID, &p.Name, &p.NaturalPosition, &p.IsCaptain, &gk, &df, &md, &at); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		p.Ratings = map[models.Position]int{
			models.PositionGK: gk,
			models.PositionDF: df,
			models.PositionMD: md,
			models.PositionAT: at,
		}
		rosters[teamID] = append(rosters[teamID], p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return rosters, nil
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "teams_country_key" {
				return ErrTeamCountryConflict
			}
		}
	}
	return fmt.Errorf("failed to insert team: %w", err)
}
