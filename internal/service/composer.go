package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/pkg/currency"
)

const (
	LocaleEnglish = "en"
	LocaleFrench  = "fr"
)

type messageTemplates struct {
	prefix     string
	office     string // office name, pair, rate, threshold
	offices    string // count, pair, rate, threshold
	cityOffice string // office name, city, pair, rate, threshold
	city       string // city list, pair, rate, threshold
	generic    string // pair, rate, threshold
	conversion string // amount, base, converted, target
	anyPair    string
}

var templates = map[string]messageTemplates{
	LocaleEnglish: {
		prefix:     "ExchanGo alert: ",
		office:     "%s now offers %s at %s (your target: %s).",
		offices:    "%d of your offices now offer %s at %s (your target: %s).",
		cityOffice: "%s in %s now offers %s at %s (your target: %s).",
		city:       "an office in %s now offers %s at %s (your target: %s).",
		generic:    "%s has reached %s (your target: %s).",
		conversion: " %s %s now gets you %s %s.",
		anyPair:    "your currency pair",
	},
	LocaleFrench: {
		prefix:     "Alerte ExchanGo : ",
		office:     "%s propose maintenant %s à %s (votre objectif : %s).",
		offices:    "%d de vos bureaux proposent maintenant %s à %s (votre objectif : %s).",
		cityOffice: "%s à %s propose maintenant %s à %s (votre objectif : %s).",
		city:       "un bureau à %s propose maintenant %s à %s (votre objectif : %s).",
		generic:    "%s a atteint %s (votre objectif : %s).",
		conversion: " %s %s vous rapportent maintenant %s %s.",
		anyPair:    "votre paire de devises",
	},
}

// ComposeMessage renders the notification for alert at rate. contextOffice is
// the office whose rate changed and may be nil for alerts matched without
// one. Unknown locales fall back to English.
func ComposeMessage(locale string, alert model.Alert, trigger model.TriggerType, rate decimal.Decimal, contextOffice *model.OfficeRef) string {
	t, ok := templates[strings.ToLower(locale)]
	if !ok {
		t = templates[LocaleEnglish]
	}

	pair := t.anyPair
	if alert.BaseCurrency != nil && alert.TargetCurrency != nil {
		pair = alert.BaseCurrency.Code + "/" + alert.TargetCurrency.Code
	}
	r := rate.String()
	threshold := alert.TargetCurrencyThreshold.String()

	var b strings.Builder
	b.WriteString(t.prefix)

	switch {
	case trigger == model.TriggerTypeOffice && contextOffice != nil && contextOffice.Name != "":
		fmt.Fprintf(&b, t.office, contextOffice.Name, pair, r, threshold)
	case trigger == model.TriggerTypeOffice && len(alert.Offices) > 1:
		fmt.Fprintf(&b, t.offices, len(alert.Offices), pair, r, threshold)
	case trigger == model.TriggerTypeOffice && len(alert.Offices) == 1 && alert.Offices[0].Name != "":
		fmt.Fprintf(&b, t.office, alert.Offices[0].Name, pair, r, threshold)
	case trigger == model.TriggerTypeCity && contextOffice != nil && contextOffice.City.Name != "":
		if contextOffice.Name != "" {
			fmt.Fprintf(&b, t.cityOffice, contextOffice.Name, contextOffice.City.Name, pair, r, threshold)
		} else {
			fmt.Fprintf(&b, t.city, contextOffice.City.Name, pair, r, threshold)
		}
	case trigger == model.TriggerTypeCity && len(cityNames(alert.Cities)) > 0:
		fmt.Fprintf(&b, t.city, strings.Join(cityNames(alert.Cities), ", "), pair, r, threshold)
	default:
		fmt.Fprintf(&b, t.generic, pair, r, threshold)
	}

	if alert.BaseCurrency != nil && alert.TargetCurrency != nil && alert.BaseCurrencyAmount.IsPositive() {
		amount := currency.NewMoney(alert.BaseCurrencyAmount, currency.Currency(alert.BaseCurrency.Code))
		converted := amount.Convert(rate, currency.Currency(alert.TargetCurrency.Code))
		fmt.Fprintf(&b, t.conversion, amount.Amount.String(), alert.BaseCurrency.Code,
			converted.String(), alert.TargetCurrency.Code)
	}

	return b.String()
}

func cityNames(cities []model.City) []string {
	names := make([]string, 0, len(cities))
	for _, c := range cities {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}
