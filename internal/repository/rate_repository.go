package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/exchango/backend/internal/model"
)

var ErrRateNotFound = errors.New("rate not found")

// RateRepository is the office_rates store.
type RateRepository struct {
	db *sqlx.DB
}

func NewRateRepository(db *sqlx.DB) *RateRepository {
	return &RateRepository{db: db}
}

func (r *RateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Rate, error) {
	var rate model.Rate
	err := r.db.GetContext(ctx, &rate, `SELECT * FROM office_rates WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rate: %w", err)
	}
	return &rate, nil
}

// Update persists buy, sell and active flag. There is no version check; the
// last writer wins.
func (r *RateRepository) Update(ctx context.Context, rate *model.Rate) error {
	query := `
		UPDATE office_rates
		SET buy_rate = $2, sell_rate = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		rate.ID, rate.BuyRate, rate.SellRate, rate.IsActive,
	).Scan(&rate.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRateNotFound
	}
	if err != nil {
		return fmt.Errorf("update rate: %w", err)
	}
	return nil
}
