package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TriggerType is the scope an alert monitors.
type TriggerType string

const (
	TriggerTypeCity   TriggerType = "CITY"
	TriggerTypeOffice TriggerType = "OFFICE"
)

// IsValid reports whether t is a known trigger type.
func (t TriggerType) IsValid() bool {
	return t == TriggerTypeCity || t == TriggerTypeOffice
}

// Alert is a standing subscription that fires once a tracked rate reaches
// the requester's threshold.
type Alert struct {
	ID                      uuid.UUID       `db:"id" json:"id"`
	TriggerType             TriggerType     `db:"trigger_type" json:"triggerType"`
	RecipientContact        string          `db:"recipient_contact" json:"recipientContact"`
	BaseCurrencyID          uuid.UUID       `db:"base_currency_id" json:"baseCurrencyId"`
	TargetCurrencyID        uuid.UUID       `db:"target_currency_id" json:"targetCurrencyId"`
	BaseCurrencyAmount      decimal.Decimal `db:"base_currency_amount" json:"baseCurrencyAmount"`
	TargetCurrencyThreshold decimal.Decimal `db:"target_currency_threshold" json:"targetCurrencyThreshold"`
	IsActive                bool            `db:"is_active" json:"isActive"`
	CreatedAt               time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt               time.Time       `db:"updated_at" json:"updatedAt"`

	// Resolved references, loaded by the repository.
	BaseCurrency   *Currency `db:"-" json:"baseCurrency,omitempty"`
	TargetCurrency *Currency `db:"-" json:"targetCurrency,omitempty"`
	Cities         []City    `db:"-" json:"cities"`
	Offices        []Office  `db:"-" json:"offices"`
}

// CityIDs returns the ids of the alert's city scope.
func (a *Alert) CityIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(a.Cities))
	for i, c := range a.Cities {
		ids[i] = c.ID
	}
	return ids
}

// OfficeIDs returns the ids of the alert's office scope.
func (a *Alert) OfficeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(a.Offices))
	for i, o := range a.Offices {
		ids[i] = o.ID
	}
	return ids
}

// AlertScope is one row of alert_cities or alert_offices.
type AlertScope struct {
	AlertID uuid.UUID `db:"alert_id"`
	ScopeID uuid.UUID `db:"scope_id"`
	Name    string    `db:"name"`
	CityID  uuid.UUID `db:"city_id"`
}
