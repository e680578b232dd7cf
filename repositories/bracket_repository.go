package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/nations-league/models"
)

// BracketRepository persists the single tournament bracket as one JSONB document.
type BracketRepository interface {
	Get(ctx context.Context) (*models.Bracket, error)
	Save(ctx context.Context, exec SQLExecutor, b *models.Bracket) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

// Get returns the stored bracket, or a fresh not started one when none was saved yet.
func (r *postgresBracketRepository) Get(ctx context.Context) (*models.Bracket, error) {
	var state []byte
	err := r.db.QueryRowContext(ctx, `SELECT state FROM tournament_brackets WHERE id = 1`).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewBracket(), nil
		}
		return nil, fmt.Errorf("failed to load bracket: %w", err)
	}

	b := models.NewBracket()
	if err := json.Unmarshal(state, b); err != nil {
		return nil, fmt.Errorf("failed to decode stored bracket: %w", err)
	}
	return b, nil
}

func (r *postgresBracketRepository) Save(ctx context.Context, exec SQLExecutor, b *models.Bracket) error {
	if exec == nil {
		exec = r.db
	}
	state, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bracket: %w", err)
	}

	query := `
		INSERT INTO tournament_brackets (id, state, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`
	if _, err := exec.ExecContext(ctx, query, state); err != nil {
		return fmt.Errorf("failed to save bracket: %w", err)
	}
	return nil
}
