package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rate is an office's buy and sell price for a currency pair.
type Rate struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	OfficeID         uuid.UUID       `db:"office_id" json:"officeId"`
	BaseCurrencyID   uuid.UUID       `db:"base_currency_id" json:"baseCurrencyId"`
	TargetCurrencyID uuid.UUID       `db:"target_currency_id" json:"targetCurrencyId"`
	BuyRate          decimal.Decimal `db:"buy_rate" json:"buyRate"`
	SellRate         decimal.Decimal `db:"sell_rate" json:"sellRate"`
	IsActive         bool            `db:"is_active" json:"isActive"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

// PricesChanged reports whether buy or sell differs from other.
func (r Rate) PricesChanged(other Rate) bool {
	return !r.BuyRate.Equal(other.BuyRate) || !r.SellRate.Equal(other.SellRate)
}

// RateDirection selects which side of a rate alerts compare against.
type RateDirection string

const (
	DirectionBuy  RateDirection = "BUY"
	DirectionSell RateDirection = "SELL"
)

type CityRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type OfficeRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	City CityRef   `json:"city"`
}

type CurrencyRef struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}

// RateChangeEvent is emitted after a committed rate update changed buy or sell.
type RateChangeEvent struct {
	RateID         uuid.UUID       `json:"rateId"`
	Office         OfficeRef       `json:"office"`
	BaseCurrency   CurrencyRef     `json:"baseCurrency"`
	TargetCurrency CurrencyRef     `json:"targetCurrency"`
	OldBuyRate     decimal.Decimal `json:"oldBuyRate"`
	OldSellRate    decimal.Decimal `json:"oldSellRate"`
	NewBuyRate     decimal.Decimal `json:"newBuyRate"`
	NewSellRate    decimal.Decimal `json:"newSellRate"`
	IsActive       bool            `json:"isActive"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

// Direction returns BUY when the event's base currency is the reference
// currency, SELL otherwise.
func (e RateChangeEvent) Direction(referenceCurrency string) RateDirection {
	if e.BaseCurrency.Code == referenceCurrency {
		return DirectionBuy
	}
	return DirectionSell
}

// TargetRate returns the new rate on the given side.
func (e RateChangeEvent) TargetRate(d RateDirection) decimal.Decimal {
	if d == DirectionBuy {
		return e.NewBuyRate
	}
	return e.NewSellRate
}
