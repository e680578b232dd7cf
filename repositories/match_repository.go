package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/nations-league/models"
	"github.com/lib/pq"
)

// MatchRepository is the append-only match history.
type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, rec *models.MatchRecord) error
	List(ctx context.Context) ([]*models.MatchRecord, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, rec *models.MatchRecord) error {
	if exec == nil {
		exec = r.db
	}
	res := rec.Result
	if res == nil {
		return fmt.Errorf("match record for slot %s has no result", rec.Slot)
	}

	var penaltyTeam1, penaltyTeam2 sql.NullInt64
	if res.PenaltyScore != nil {
		penaltyTeam1 = sql.NullInt64{Int64: int64(res.PenaltyScore.Team1), Valid: true}
		penaltyTeam2 = sql.NullInt64{Int64: int64(res.PenaltyScore.Team2), Valid: true}
	}
	var kicks interface{}
	if len(res.PenaltyKicks) > 0 {
		encoded, err := json.Marshal(res.PenaltyKicks)
		if err != nil {
			return fmt.Errorf("failed to encode penalty kicks: %w", err)
		}
		kicks = string(encoded)
	}
	commentary := rec.Commentary
	if commentary == nil {
		commentary = []string{}
	}

	query := `
		INSERT INTO match_results
			(slot, match_type, seed, team1_id, team1_country, team2_id, team2_country,
			 team1_goals, team2_goals, winner_team_id, went_to_extra_time, went_to_penalties,
			 penalty_team1, penalty_team2, penalty_kicks, play_by_play, commentary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, played_at`

	err := exec.QueryRowContext(ctx, query,
		rec.Slot,
		res.MatchType,
		res.Seed,
		res.Team1.ID,
		res.Team1.Country,
		res.Team2.ID,
		res.Team2.Country,
		res.Team1Goals,
		res.Team2Goals,
		res.WinnerTeamID,
		res.WentToExtraTime,
		res.WentToPenalties,
		penaltyTeam1,
		penaltyTeam2,
		kicks,
		rec.PlayByPlay,
		pq.Array(commentary),
	).Scan(&rec.ID, &rec.PlayedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match result for slot %s: %w", rec.Slot, err)
	}

	goalQuery := `INSERT INTO goal_events (match_id, minute, team_id, team, scorer) VALUES ($1, $2, $3, $4, $5)`
	for _, g := range res.GoalEvents {
		if _, err := exec.ExecContext(ctx, goalQuery, rec.ID, g.Minute, g.TeamID, g.Team, g.Scorer); err != nil {
			return fmt.Errorf("failed to insert goal event of match %d: %w", rec.ID, err)
		}
	}
	return nil
}

// List returns every recorded match, oldest first, with goals attached.
func (r *postgresMatchRepository) List(ctx context.Context) ([]*models.MatchRecord, error) {
	query := `
		SELECT id, slot, match_type, seed, team1_id, team1_country, team2_id, team2_country,
		       team1_goals, team2_goals, winner_team_id, went_to_extra_time, went_to_penalties,
		       penalty_team1, penalty_team2, penalty_kicks, play_by_play, commentary, played_at
		FROM match_results
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list match results: %w", err)
	}
	defer rows.Close()

	var records []*models.MatchRecord
	byID := make(map[int]*models.MatchRecord)
	for rows.Next() {
		rec := &models.MatchRecord{Result: &models.MatchResult{GoalEvents: []models.GoalEvent{}}}
		res := rec.Result
		var (
			penaltyTeam1, penaltyTeam2 sql.NullInt64
			kicks                      []byte
			commentary                 pq.StringArray
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Slot,
			&res.MatchType,
			&res.Seed,
			&res.Team1.ID,
			&res.Team1.Country,
			&res.Team2.ID,
			&res.Team2.Country,
			&res.Team1Goals,
			&res.Team2Goals,
			&res.WinnerTeamID,
			&res.WentToExtraTime,
			&res.WentToPenalties,
			&penaltyTeam1,
			&penaltyTeam2,
			&kicks,
			&rec.PlayByPlay,
			&commentary,
			&rec.PlayedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match result row: %w", err)
		}
		if penaltyTeam1.Valid && penaltyTeam2.Valid {
			res.PenaltyScore = &models.PenaltyScore{Team1: int(penaltyTeam1.Int64), Team2: int(penaltyTeam2.Int64)}
		}
		if len(kicks) > 0 {
			if err := json.Unmarshal(kicks, &res.PenaltyKicks); err != nil {
				return nil, fmt.Errorf("failed to decode penalty kicks of match %d: %w", rec.ID, err)
			}
		}
		rec.Commentary = []string(commentary)
		records = append(records, rec)
		byID[rec.ID] = rec
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match result rows: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	goalRows, err := r.db.QueryContext(ctx, `SELECT match_id, minute, team_id, team, scorer FROM goal_events ORDER BY match_id, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list goal events: %w", err)
	}
	defer goalRows.Close()

	for goalRows.Next() {
		var matchID int
		var g models.GoalEvent
		if err := goalRows.Scan(&matchID, &g.Minute, &g.TeamID, &g.Team, &g.Scorer); err != nil {
			return nil, fmt.Errorf("failed to scan goal event row: %w", err)
		}
		if rec, ok := byID[matchID]; ok {
			rec.Result.GoalEvents = append(rec.Result.GoalEvents, g)
		}
	}
	if err = goalRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goal event rows: %w", err)
	}
	return records, nil
}
