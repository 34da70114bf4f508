package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/exchango/backend/internal/model"
)

var ErrAlertNotFound = errors.New("alert not found")

// MatchQuery selects active alerts satisfied by a rate.
type MatchQuery struct {
	TriggerType      model.TriggerType
	ScopeID          uuid.UUID // city id for CITY, office id for OFFICE
	BaseCurrencyID   uuid.UUID
	TargetCurrencyID uuid.UUID
	MinTargetRate    decimal.Decimal
}

type AlertRepository struct {
	db *sqlx.DB
}

func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts the alert and its scope rows in one transaction.
func (r *AlertRepository) Create(ctx context.Context, alert *model.Alert) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin alert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	alert.ID = uuid.New()
	alert.IsActive = true

	query := `
		INSERT INTO alerts (
			id, trigger_type, recipient_contact, base_currency_id, target_currency_id,
			base_currency_amount, target_currency_threshold, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		alert.ID, alert.TriggerType, alert.RecipientContact, alert.BaseCurrencyID, alert.TargetCurrencyID,
		alert.BaseCurrencyAmount, alert.TargetCurrencyThreshold, alert.IsActive,
	).Scan(&alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	for _, cityID := range alert.CityIDs() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO alert_cities (alert_id, city_id) VALUES ($1, $2)`, alert.ID, cityID); err != nil {
			return fmt.Errorf("insert alert city %s: %w", cityID, err)
		}
	}
	for _, officeID := range alert.OfficeIDs() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO alert_offices (alert_id, office_id) VALUES ($1, $2)`, alert.ID, officeID); err != nil {
			return fmt.Errorf("insert alert office %s: %w", officeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit alert: %w", err)
	}
	return nil
}

// GetByID returns an alert with its scope and currencies resolved.
func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	var alert model.Alert
	err := r.db.GetContext(ctx, &alert, `SELECT * FROM alerts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}

	alerts := []model.Alert{alert}
	if err := r.loadReferences(ctx, alerts); err != nil {
		return nil, err
	}
	return &alerts[0], nil
}

// ListByContact returns a requester's alerts, newest first.
func (r *AlertRepository) ListByContact(ctx context.Context, contact string) ([]model.Alert, error) {
	var alerts []model.Alert
	err := r.db.SelectContext(ctx, &alerts, `
		SELECT * FROM alerts WHERE recipient_contact = $1 ORDER BY created_at DESC
	`, contact)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	if err := r.loadReferences(ctx, alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Update changes the mutable fields of an alert. Scope and currencies are fixed at creation.
func (r *AlertRepository) Update(ctx context.Context, alert *model.Alert) error {
	query := `
		UPDATE alerts
		SET recipient_contact = $2, base_currency_amount = $3, target_currency_threshold = $4,
			is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		alert.ID, alert.RecipientContact, alert.BaseCurrencyAmount, alert.TargetCurrencyThreshold, alert.IsActive,
	).Scan(&alert.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAlertNotFound
	}
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	return nil
}

// Delete removes an alert; scope rows cascade.
func (r *AlertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// FindMatching returns active alerts whose scope contains q.ScopeID, whose
// currencies equal the pair, and whose threshold is at most q.MinTargetRate.
// Order is unspecified.
func (r *AlertRepository) FindMatching(ctx context.Context, q MatchQuery) ([]model.Alert, error) {
	var join string
	switch q.TriggerType {
	case model.TriggerTypeCity:
		join = `JOIN alert_cities s ON s.alert_id = a.id AND s.city_id = $2`
	case model.TriggerTypeOffice:
		join = `JOIN alert_offices s ON s.alert_id = a.id AND s.office_id = $2`
	default:
		return nil, fmt.Errorf("find matching alerts: unknown trigger type %q", q.TriggerType)
	}

	query := `
		SELECT a.* FROM alerts a
		` + join + `
		WHERE a.is_active = TRUE
		AND a.trigger_type = $1
		AND a.base_currency_id = $3
		AND a.target_currency_id = $4
		AND a.target_currency_threshold <= $5`

	var alerts []model.Alert
	err := r.db.SelectContext(ctx, &alerts, query,
		q.TriggerType, q.ScopeID, q.BaseCurrencyID, q.TargetCurrencyID, q.MinTargetRate)
	if err != nil {
		return nil, fmt.Errorf("find matching %s alerts: %w", q.TriggerType, err)
	}
	if err := r.loadReferences(ctx, alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// loadReferences fills scope sets and currencies for a batch of alerts.
func (r *AlertRepository) loadReferences(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	ids := make([]string, len(alerts))
	currencyIDs := make([]string, 0, len(alerts)*2)
	index := make(map[uuid.UUID]int, len(alerts))
	for i, a := range alerts {
		ids[i] = a.ID.String()
		index[a.ID] = i
		currencyIDs = append(currencyIDs, a.BaseCurrencyID.String(), a.TargetCurrencyID.String())
		alerts[i].Cities = []model.City{}
		alerts[i].Offices = []model.Office{}
	}

	var cities []model.AlertScope
	err := r.db.SelectContext(ctx, &cities, `
		SELECT ac.alert_id, c.id AS scope_id, c.name, c.id AS city_id
		FROM alert_cities ac
		JOIN cities c ON c.id = ac.city_id
		WHERE ac.alert_id = ANY($1)
		ORDER BY c.name
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load alert cities: %w", err)
	}
	for _, s := range cities {
		if i, ok := index[s.AlertID]; ok {
			alerts[i].Cities = append(alerts[i].Cities, model.City{ID: s.ScopeID, Name: s.Name})
		}
	}

	var offices []model.AlertScope
	err = r.db.SelectContext(ctx, &offices, `
		SELECT ao.alert_id, o.id AS scope_id, o.office_name AS name, o.city_id
		FROM alert_offices ao
		JOIN offices o ON o.id = ao.office_id
		WHERE ao.alert_id = ANY($1)
		ORDER BY o.office_name
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load alert offices: %w", err)
	}
	for _, s := range offices {
		if i, ok := index[s.AlertID]; ok {
			alerts[i].Offices = append(alerts[i].Offices, model.Office{ID: s.ScopeID, Name: s.Name, CityID: s.CityID})
		}
	}

	var currencies []model.Currency
	err = r.db.SelectContext(ctx, &currencies, `
		SELECT * FROM currencies WHERE id = ANY($1)
	`, pq.Array(currencyIDs))
	if err != nil {
		return fmt.Errorf("load alert currencies: %w", err)
	}
	byID := make(map[uuid.UUID]model.Currency, len(currencies))
	for _, c := range currencies {
		byID[c.ID] = c
	}
	for i := range alerts {
		if c, ok := byID[alerts[i].BaseCurrencyID]; ok {
			c := c
			alerts[i].BaseCurrency = &c
		}
		if c, ok := byID[alerts[i].TargetCurrencyID]; ok {
			c := c
			alerts[i].TargetCurrency = &c
		}
	}

	return nil
}
