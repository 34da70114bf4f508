package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/exchango/backend/internal/model"
)

func TestComposeMessage(t *testing.T) {
	t.Parallel()

	rate := decimal.RequireFromString("10.60")
	contextOffice := &model.OfficeRef{ID: officeA, Name: "Bureau Agdal", City: model.CityRef{ID: rabatID, Name: "Rabat"}}
	casablanca := model.City{Name: "Casablanca"}

	officeAlert := func(offices ...model.Office) model.Alert {
		return model.Alert{
			TriggerType:             model.TriggerTypeOffice,
			BaseCurrency:            mad,
			TargetCurrency:          eur,
			BaseCurrencyAmount:      decimal.NewFromInt(100),
			TargetCurrencyThreshold: decimal.RequireFromString("10.50"),
			Offices:                 offices,
		}
	}

	tests := []struct {
		name        string
		locale      string
		alert       model.Alert
		trigger     model.TriggerType
		office      *model.OfficeRef
		contains    []string
		notContains []string
	}{
		{
			name:     "office with context",
			locale:   "en",
			alert:    officeAlert(*agdal, *hassan),
			trigger:  model.TriggerTypeOffice,
			office:   contextOffice,
			contains: []string{"Bureau Agdal now offers MAD/EUR at 10.6", "your target: 10.5", "100 MAD now gets you 1060 EUR"},
		},
		{
			name:        "several offices without context",
			locale:      "en",
			alert:       officeAlert(*agdal, *hassan),
			trigger:     model.TriggerTypeOffice,
			contains:    []string{"2 of your offices", "10.6"},
			notContains: []string{"Bureau Agdal", "Change Hassan"},
		},
		{
			name:     "single office without context",
			locale:   "en",
			alert:    officeAlert(*hassan),
			trigger:  model.TriggerTypeOffice,
			contains: []string{"Change Hassan now offers"},
		},
		{
			name:     "city with context office",
			locale:   "en",
			alert:    cityAlert("x", mad, eur, "10.50"),
			trigger:  model.TriggerTypeCity,
			office:   contextOffice,
			contains: []string{"Bureau Agdal in Rabat", "10.6"},
		},
		{
			name: "city list without context",
			alert: func() model.Alert {
				a := cityAlert("x", mad, eur, "10.50")
				a.Cities = []model.City{*rabat, casablanca}
				return a
			}(),
			trigger:  model.TriggerTypeCity,
			contains: []string{"an office in Rabat, Casablanca", "10.6"},
		},
		{
			name:        "generic fallback",
			locale:      "en",
			alert:       model.Alert{TargetCurrencyThreshold: decimal.RequireFromString("10.5")},
			trigger:     model.TriggerTypeOffice,
			contains:    []string{"your currency pair has reached 10.6"},
			notContains: []string{"gets you"},
		},
		{
			name:     "french office",
			locale:   "fr",
			alert:    officeAlert(*agdal),
			trigger:  model.TriggerTypeOffice,
			office:   contextOffice,
			contains: []string{"Alerte ExchanGo", "Bureau Agdal propose maintenant MAD/EUR à 10.6", "votre objectif : 10.5"},
		},
		{
			name:     "french several offices",
			locale:   "FR",
			alert:    officeAlert(*agdal, *hassan),
			trigger:  model.TriggerTypeOffice,
			contains: []string{"2 de vos bureaux"},
		},
		{
			name:     "unknown locale falls back to english",
			locale:   "ar",
			alert:    cityAlert("x", mad, eur, "10.50"),
			trigger:  model.TriggerTypeCity,
			office:   contextOffice,
			contains: []string{"ExchanGo alert: "},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := ComposeMessage(tt.locale, tt.alert, tt.trigger, rate, tt.office)

			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, msg, s)
			}
		})
	}
}

func TestComposeMessage_Deterministic(t *testing.T) {
	t.Parallel()

	alert := cityAlert("x", mad, eur, "10.50")
	rate := decimal.RequireFromString("10.6")

	first := ComposeMessage(LocaleEnglish, alert, model.TriggerTypeCity, rate, nil)
	second := ComposeMessage(LocaleEnglish, alert, model.TriggerTypeCity, rate, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, "ExchanGo alert: an office in Rabat now offers MAD/EUR at 10.6 (your target: 10.5). 1 MAD now gets you 10.6 EUR.", first)
}

func TestComposeMessage_ConversionRoundsToTargetCurrency(t *testing.T) {
	t.Parallel()

	alert := model.Alert{
		TriggerType:             model.TriggerTypeCity,
		BaseCurrency:            mad,
		TargetCurrency:          eur,
		BaseCurrencyAmount:      decimal.NewFromInt(3),
		TargetCurrencyThreshold: decimal.RequireFromString("10"),
		Cities:                  []model.City{{Name: "Rabat"}},
	}

	msg := ComposeMessage("en", alert, model.TriggerTypeCity, decimal.RequireFromString("10.6543"), nil)

	assert.Contains(t, msg, "at 10.6543")
	assert.Contains(t, msg, "3 MAD now gets you 31.96 EUR.")
}
