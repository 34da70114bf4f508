package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/exchango/backend/internal/apperror"
	"github.com/exchango/backend/internal/eventbus"
	"github.com/exchango/backend/internal/logger"
	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/internal/repository"
)

// RateRepositoryInterface is the rate store the detector wraps.
type RateRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Rate, error)
	Update(ctx context.Context, rate *model.Rate) error
}

// RateService updates office rates and announces buy or sell changes on
// the event bus.
type RateService struct {
	rates     RateRepositoryInterface
	directory DirectoryInterface
	publisher eventbus.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewRateService(rates RateRepositoryInterface, directory DirectoryInterface, publisher eventbus.Publisher, log *slog.Logger) *RateService {
	return &RateService{
		rates:     rates,
		directory: directory,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// UpdateRateInput is a partial update; nil fields keep their value.
type UpdateRateInput struct {
	BuyRate  *decimal.Decimal `json:"buyRate"`
	SellRate *decimal.Decimal `json:"sellRate"`
	IsActive *bool            `json:"isActive"`
}

// UpdateRate persists the change and, when buy or sell moved, publishes a
// RateChangeEvent. If publishing fails the committed rate is still returned,
// together with an *apperror.EventPublicationError.
func (s *RateService) UpdateRate(ctx context.Context, id uuid.UUID, input UpdateRateInput) (*model.Rate, error) {
	if input.BuyRate != nil && !input.BuyRate.IsPositive() {
		return nil, apperror.ValidationError("buyRate", "must be positive")
	}
	if input.SellRate != nil && !input.SellRate.IsPositive() {
		return nil, apperror.ValidationError("sellRate", "must be positive")
	}

	rate, err := s.rates.GetByID(ctx, id)
	if errors.Is(err, repository.ErrRateNotFound) {
		return nil, apperror.NotFound("rate")
	}
	if err != nil {
		return nil, fmt.Errorf("load rate: %w", err)
	}

	before := *rate
	if input.BuyRate != nil {
		rate.BuyRate = *input.BuyRate
	}
	if input.SellRate != nil {
		rate.SellRate = *input.SellRate
	}
	if input.IsActive != nil {
		rate.IsActive = *input.IsActive
	}

	if err := s.rates.Update(ctx, rate); err != nil {
		if errors.Is(err, repository.ErrRateNotFound) {
			return nil, apperror.NotFound("rate")
		}
		return nil, fmt.Errorf("save rate: %w", err)
	}

	if !before.PricesChanged(*rate) {
		return rate, nil
	}

	log := logger.With(logger.WithOfficeID(ctx, rate.OfficeID.String()), s.logger)
	if err := s.publish(ctx, before, *rate); err != nil {
		log.Warn("rate updated but change event was not published",
			slog.String("rate_id", rate.ID.String()),
			slog.String("error", err.Error()),
		)
		return rate, &apperror.EventPublicationError{RateID: rate.ID, Err: err}
	}

	log.Debug("rate change published",
		slog.String("rate_id", rate.ID.String()),
		slog.String("buy", rate.BuyRate.String()),
		slog.String("sell", rate.SellRate.String()),
	)
	return rate, nil
}

func (s *RateService) publish(ctx context.Context, before, after model.Rate) error {
	event, err := s.buildEvent(ctx, before, after)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, event)
}

func (s *RateService) buildEvent(ctx context.Context, before, after model.Rate) (model.RateChangeEvent, error) {
	office, err := s.directory.GetOffice(ctx, after.OfficeID)
	if err != nil {
		return model.RateChangeEvent{}, fmt.Errorf("resolve office %s: %w", after.OfficeID, err)
	}
	base, err := s.directory.GetCurrency(ctx, after.BaseCurrencyID)
	if err != nil {
		return model.RateChangeEvent{}, fmt.Errorf("resolve base currency %s: %w", after.BaseCurrencyID, err)
	}
	target, err := s.directory.GetCurrency(ctx, after.TargetCurrencyID)
	if err != nil {
		return model.RateChangeEvent{}, fmt.Errorf("resolve target currency %s: %w", after.TargetCurrencyID, err)
	}

	city := model.CityRef{ID: office.CityID}
	if office.City != nil {
		city.Name = office.City.Name
	}

	return model.RateChangeEvent{
		RateID:         after.ID,
		Office:         model.OfficeRef{ID: office.ID, Name: office.Name, City: city},
		BaseCurrency:   model.CurrencyRef{ID: base.ID, Code: base.Code},
		TargetCurrency: model.CurrencyRef{ID: target.ID, Code: target.Code},
		OldBuyRate:     before.BuyRate,
		OldSellRate:    before.SellRate,
		NewBuyRate:     after.BuyRate,
		NewSellRate:    after.SellRate,
		IsActive:       after.IsActive,
		OccurredAt:     s.now().UTC(),
	}, nil
}
