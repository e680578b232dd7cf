package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id             TEXT PRIMARY KEY,
		country        TEXT NOT NULL,
		manager        TEXT NOT NULL DEFAULT '',
		representative TEXT NOT NULL DEFAULT '',
		email          TEXT NOT NULL DEFAULT '',
		rating         DOUBLE PRECISION NOT NULL DEFAULT 0,
		registered_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT teams_country_key UNIQUE (country)
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id               SERIAL PRIMARY KEY,
		team_id          TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		squad_number     INT NOT NULL,
		name             TEXT NOT NULL,
		natural_position TEXT NOT NULL CHECK (natural_position IN ('GK', 'DF', 'MD', 'AT')),
		is_captain       BOOLEAN NOT NULL DEFAULT FALSE,
		rating_gk        INT NOT NULL DEFAULT 0,
		rating_df        INT NOT NULL DEFAULT 0,
		rating_md        INT NOT NULL DEFAULT 0,
		rating_at        INT NOT NULL DEFAULT 0,
		CONSTRAINT players_team_squad_key UNIQUE (team_id, squad_number)
	)`,
	`CREATE TABLE IF NOT EXISTS tournament_brackets (
		id         INT PRIMARY KEY CHECK (id = 1),
		state      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS match_results (
		id                 SERIAL PRIMARY KEY,
		slot               TEXT NOT NULL,
		match_type         TEXT NOT NULL,
		seed               BIGINT NOT NULL,
		team1_id           TEXT NOT NULL,
		team1_country      TEXT NOT NULL,
		team2_id           TEXT NOT NULL,
		team2_country      TEXT NOT NULL,
		team1_goals        INT NOT NULL,
		team2_goals        INT NOT NULL,
		winner_team_id     TEXT NOT NULL,
		went_to_extra_time BOOLEAN NOT NULL DEFAULT FALSE,
		went_to_penalties  BOOLEAN NOT NULL DEFAULT FALSE,
		penalty_team1      INT,
		penalty_team2      INT,
		penalty_kicks      JSONB,
		play_by_play       BOOLEAN NOT NULL DEFAULT FALSE,
		commentary         TEXT[] NOT NULL DEFAULT '{}',
		played_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS goal_events (
		id       SERIAL PRIMARY KEY,
		match_id INT NOT NULL REFERENCES match_results(id) ON DELETE CASCADE,
		minute   INT NOT NULL CHECK (minute >= 1),
		team_id  TEXT NOT NULL,
		team     TEXT NOT NULL,
		scorer   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS goal_events_match_id_idx ON goal_events (match_id)`,
	`CREATE INDEX IF NOT EXISTS players_team_id_idx ON players (team_id)`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}
