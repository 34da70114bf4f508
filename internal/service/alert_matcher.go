package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"

	"github.com/exchango/backend/internal/logger"
	"github.com/exchango/backend/internal/metrics"
	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/internal/repository"
)

// DefaultReferenceCurrency is the platform's local currency.
const DefaultReferenceCurrency = "MAD"

// AlertFinder looks up alerts satisfied by a rate.
type AlertFinder interface {
	FindMatching(ctx context.Context, q repository.MatchQuery) ([]model.Alert, error)
}

// Notifier delivers one matched alert.
type Notifier interface {
	Notify(ctx context.Context, match Match, contextOffice *model.OfficeRef) error
}

// Match is an alert satisfied by a rate change.
type Match struct {
	Alert       model.Alert
	TriggerType model.TriggerType
	Direction   model.RateDirection
	Rate        decimal.Decimal
}

// AlertMatcher consumes rate change events, finds the alerts they satisfy
// and hands each one to the notifier.
type AlertMatcher struct {
	alerts            AlertFinder
	notifier          Notifier
	referenceCurrency string
	logger            *slog.Logger
}

func NewAlertMatcher(alerts AlertFinder, notifier Notifier, referenceCurrency string, log *slog.Logger) *AlertMatcher {
	referenceCurrency = strings.ToUpper(strings.TrimSpace(referenceCurrency))
	if referenceCurrency == "" {
		referenceCurrency = DefaultReferenceCurrency
	}
	return &AlertMatcher{
		alerts:            alerts,
		notifier:          notifier,
		referenceCurrency: referenceCurrency,
		logger:            log,
	}
}

// Handle is the event bus subscriber. A failed lookup or delivery never
// stops the remaining alerts; all failures are returned together.
func (m *AlertMatcher) Handle(ctx context.Context, event model.RateChangeEvent) error {
	ctx = logger.WithOfficeID(ctx, event.Office.ID.String())
	log := logger.With(ctx, m.logger)

	if !event.IsActive {
		log.Debug("skipping change on inactive rate", slog.String("rate_id", event.RateID.String()))
		return nil
	}

	matches, err := m.Match(ctx, event)
	var result *multierror.Error
	if err != nil {
		result = multierror.Append(result, err)
	}

	office := event.Office
	for _, match := range matches {
		if err := m.notifier.Notify(ctx, match, &office); err != nil {
			log.Warn("alert notification failed",
				slog.String("alert_id", match.Alert.ID.String()),
				slog.String("recipient", match.Alert.RecipientContact),
				slog.String("error", err.Error()),
			)
			result = multierror.Append(result, err)
		}
	}

	log.Info("rate change processed",
		slog.String("rate_id", event.RateID.String()),
		slog.String("pair", event.BaseCurrency.Code+"/"+event.TargetCurrency.Code),
		slog.Int("matched", len(matches)),
	)
	return result.ErrorOrNil()
}

// Match returns the alerts satisfied by event without notifying anyone.
// Results of a successful lookup are returned even when the other failed.
func (m *AlertMatcher) Match(ctx context.Context, event model.RateChangeEvent) ([]Match, error) {
	direction := event.Direction(m.referenceCurrency)
	rate := event.TargetRate(direction)

	lookups := []struct {
		trigger model.TriggerType
		scope   repository.MatchQuery
	}{
		{model.TriggerTypeCity, repository.MatchQuery{ScopeID: event.Office.City.ID}},
		{model.TriggerTypeOffice, repository.MatchQuery{ScopeID: event.Office.ID}},
	}

	var matches []Match
	var result *multierror.Error
	for _, l := range lookups {
		q := l.scope
		q.TriggerType = l.trigger
		q.BaseCurrencyID = event.BaseCurrency.ID
		q.TargetCurrencyID = event.TargetCurrency.ID
		q.MinTargetRate = rate

		alerts, err := m.alerts.FindMatching(ctx, q)
		if err != nil {
			metrics.MatchQueryErrors.WithLabelValues(string(l.trigger)).Inc()
			result = multierror.Append(result, fmt.Errorf("find %s alerts: %w", l.trigger, err))
			continue
		}
		metrics.AlertsMatched.WithLabelValues(string(l.trigger)).Add(float64(len(alerts)))
		for _, a := range alerts {
			matches = append(matches, Match{Alert: a, TriggerType: l.trigger, Direction: direction, Rate: rate})
		}
	}
	return matches, result.ErrorOrNil()
}
