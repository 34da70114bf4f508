// Package currency provides standardized currency handling across the application.
// All monetary amounts are stored as decimal.Decimal to avoid floating-point errors.
package currency

import "github.com/shopspring/decimal"

// Currency represents an ISO 4217 currency code.
type Currency string

// Currencies commonly traded at exchange offices.
const (
	MAD Currency = "MAD" // Moroccan Dirham
	EUR Currency = "EUR" // Euro
	USD Currency = "USD" // US Dollar
	GBP Currency = "GBP" // British Pound
	CAD Currency = "CAD" // Canadian Dollar
	CHF Currency = "CHF" // Swiss Franc
	SAR Currency = "SAR" // Saudi Riyal
	AED Currency = "AED" // UAE Dirham
	JPY Currency = "JPY" // Japanese Yen
)

// CurrencyInfo contains metadata about a currency.
type CurrencyInfo struct {
	Code          Currency
	Name          string
	Symbol        string
	DecimalPlaces int  // Number of decimal places (e.g., 2 for EUR, 0 for JPY)
	SymbolBefore  bool // Whether symbol appears before amount
}

var currencies = map[Currency]CurrencyInfo{
	MAD: {Code: MAD, Name: "Moroccan Dirham", Symbol: "DH", DecimalPlaces: 2},
	EUR: {Code: EUR, Name: "Euro", Symbol: "€", DecimalPlaces: 2},
	USD: {Code: USD, Name: "US Dollar", Symbol: "$", DecimalPlaces: 2, SymbolBefore: true},
	GBP: {Code: GBP, Name: "British Pound", Symbol: "£", DecimalPlaces: 2, SymbolBefore: true},
	CAD: {Code: CAD, Name: "Canadian Dollar", Symbol: "$", DecimalPlaces: 2, SymbolBefore: true},
	CHF: {Code: CHF, Name: "Swiss Franc", Symbol: "CHF", DecimalPlaces: 2, SymbolBefore: true},
	SAR: {Code: SAR, Name: "Saudi Riyal", Symbol: "SR", DecimalPlaces: 2},
	AED: {Code: AED, Name: "UAE Dirham", Symbol: "AED", DecimalPlaces: 2},
	JPY: {Code: JPY, Name: "Japanese Yen", Symbol: "¥", DecimalPlaces: 0, SymbolBefore: true},
}

// unknownDecimalPlaces is used for codes missing from the table.
const unknownDecimalPlaces = 2

// IsValid checks if a currency code is known.
func IsValid(code string) bool {
	_, ok := currencies[Currency(code)]
	return ok
}

// GetInfo returns metadata for a currency code.
func GetInfo(code Currency) (CurrencyInfo, bool) {
	info, ok := currencies[code]
	return info, ok
}

// Money represents a monetary amount with currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// NewMoney creates a new Money value.
func NewMoney(amount decimal.Decimal, curr Currency) Money {
	return Money{Amount: amount, Currency: curr}
}

// Convert returns the amount in target at the given rate (units of target per
// unit of m's currency).
func (m Money) Convert(rate decimal.Decimal, target Currency) Money {
	return NewMoney(m.Amount.Mul(rate), target)
}

func (m Money) decimalPlaces() int32 {
	if info, ok := GetInfo(m.Currency); ok {
		return int32(info.DecimalPlaces)
	}
	return unknownDecimalPlaces
}

// Round rounds the amount to the currency's decimal places.
func (m Money) Round() Money {
	return NewMoney(m.Amount.Round(m.decimalPlaces()), m.Currency)
}

// String returns the rounded amount without trailing zeros.
func (m Money) String() string {
	return m.Round().Amount.String()
}
