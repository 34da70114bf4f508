package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/exchango/backend/internal/model"
)

var (
	ErrCurrencyNotFound = errors.New("currency not found")
	ErrCityNotFound     = errors.New("city not found")
	ErrOfficeNotFound   = errors.New("office not found")
)

// DirectoryRepository reads the currency, city and office reference tables.
type DirectoryRepository struct {
	db *sqlx.DB
}

func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) GetCurrency(ctx context.Context, id uuid.UUID) (*model.Currency, error) {
	var c model.Currency
	err := r.db.GetContext(ctx, &c, `SELECT * FROM currencies WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCurrencyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get currency: %w", err)
	}
	return &c, nil
}

func (r *DirectoryRepository) GetCity(ctx context.Context, id uuid.UUID) (*model.City, error) {
	var c model.City
	err := r.db.GetContext(ctx, &c, `SELECT * FROM cities WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get city: %w", err)
	}
	return &c, nil
}

type officeRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"office_name"`
	CityID    uuid.UUID `db:"city_id"`
	CreatedAt time.Time `db:"created_at"`
	CityName  string    `db:"city_name"`
}

// GetOffice returns an office with its city attached.
func (r *DirectoryRepository) GetOffice(ctx context.Context, id uuid.UUID) (*model.Office, error) {
	var row officeRow
	err := r.db.GetContext(ctx, &row, `
		SELECT o.id, o.office_name, o.city_id, o.created_at, c.name AS city_name
		FROM offices o
		JOIN cities c ON c.id = o.city_id
		WHERE o.id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfficeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get office: %w", err)
	}
	return &model.Office{
		ID:        row.ID,
		Name:      row.Name,
		CityID:    row.CityID,
		CreatedAt: row.CreatedAt,
		City:      &model.City{ID: row.CityID, Name: row.CityName},
	}, nil
}
