package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/exchango/backend/internal/apperror"
	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/internal/repository"
	"github.com/exchango/backend/pkg/currency"
)

// AlertRepositoryInterface defines the contract for alert data access.
// Implementations must be safe for concurrent use.
type AlertRepositoryInterface interface {
	Create(ctx context.Context, alert *model.Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Alert, error)
	ListByContact(ctx context.Context, contact string) ([]model.Alert, error)
	Update(ctx context.Context, alert *model.Alert) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindMatching(ctx context.Context, q repository.MatchQuery) ([]model.Alert, error)
}

// DirectoryInterface resolves currency, city and office references.
type DirectoryInterface interface {
	GetCurrency(ctx context.Context, id uuid.UUID) (*model.Currency, error)
	GetCity(ctx context.Context, id uuid.UUID) (*model.City, error)
	GetOffice(ctx context.Context, id uuid.UUID) (*model.Office, error)
}

// AlertService validates and stores rate alerts.
type AlertService struct {
	repo      AlertRepositoryInterface
	directory DirectoryInterface
}

func NewAlertService(repo AlertRepositoryInterface, directory DirectoryInterface) *AlertService {
	return &AlertService{repo: repo, directory: directory}
}

type CreateAlertInput struct {
	TriggerType             model.TriggerType `json:"triggerType" validate:"required,oneof=CITY OFFICE"`
	RecipientContact        string            `json:"recipientContact" validate:"required,min=3,max=255"`
	Cities                  []uuid.UUID       `json:"cities" validate:"omitempty,unique"`
	Offices                 []uuid.UUID       `json:"offices" validate:"omitempty,unique"`
	BaseCurrencyID          uuid.UUID         `json:"baseCurrencyId" validate:"required"`
	TargetCurrencyID        uuid.UUID         `json:"targetCurrencyId" validate:"required"`
	BaseCurrencyAmount      decimal.Decimal   `json:"baseCurrencyAmount"`
	TargetCurrencyThreshold decimal.Decimal   `json:"targetCurrencyThreshold"`
}

type UpdateAlertInput struct {
	RecipientContact        *string          `json:"recipientContact" validate:"omitempty,min=3,max=255"`
	BaseCurrencyAmount      *decimal.Decimal `json:"baseCurrencyAmount"`
	TargetCurrencyThreshold *decimal.Decimal `json:"targetCurrencyThreshold"`
	IsActive                *bool            `json:"isActive"`
}

// Create validates the input, resolves every reference and stores the alert.
// Nothing is written unless the whole input is valid.
func (s *AlertService) Create(ctx context.Context, input CreateAlertInput) (*model.Alert, error) {
	input.RecipientContact = strings.TrimSpace(input.RecipientContact)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if err := validateScope(input.TriggerType, input.Cities, input.Offices); err != nil {
		return nil, err
	}
	if input.BaseCurrencyAmount.IsZero() {
		input.BaseCurrencyAmount = decimal.NewFromInt(1)
	}
	if !input.BaseCurrencyAmount.IsPositive() {
		return nil, apperror.ValidationError("baseCurrencyAmount", "must be positive")
	}
	if !input.TargetCurrencyThreshold.IsPositive() {
		return nil, apperror.ValidationError("targetCurrencyThreshold", "must be positive")
	}
	if input.BaseCurrencyID == input.TargetCurrencyID {
		return nil, apperror.ValidationError("targetCurrencyId", "must differ from baseCurrencyId")
	}

	alert := &model.Alert{
		TriggerType:             input.TriggerType,
		RecipientContact:        input.RecipientContact,
		BaseCurrencyID:          input.BaseCurrencyID,
		TargetCurrencyID:        input.TargetCurrencyID,
		BaseCurrencyAmount:      input.BaseCurrencyAmount,
		TargetCurrencyThreshold: input.TargetCurrencyThreshold,
		Cities:                  []model.City{},
		Offices:                 []model.Office{},
	}

	var err error
	if alert.BaseCurrency, err = s.resolveCurrency(ctx, "baseCurrencyId", input.BaseCurrencyID); err != nil {
		return nil, err
	}
	if alert.TargetCurrency, err = s.resolveCurrency(ctx, "targetCurrencyId", input.TargetCurrencyID); err != nil {
		return nil, err
	}

	for _, id := range input.Cities {
		city, err := s.directory.GetCity(ctx, id)
		if err != nil {
			return nil, referenceError("city", id, err)
		}
		alert.Cities = append(alert.Cities, *city)
	}
	for _, id := range input.Offices {
		office, err := s.directory.GetOffice(ctx, id)
		if err != nil {
			return nil, referenceError("office", id, err)
		}
		alert.Offices = append(alert.Offices, *office)
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	return alert, nil
}

// validateScope enforces that exactly the scope matching the trigger type
// is populated.
func validateScope(trigger model.TriggerType, cities, offices []uuid.UUID) error {
	switch trigger {
	case model.TriggerTypeCity:
		if len(cities) == 0 {
			return apperror.ValidationError("cities", "at least one city is required for a CITY alert")
		}
		if len(offices) > 0 {
			return apperror.ValidationError("offices", "must be empty for a CITY alert")
		}
	case model.TriggerTypeOffice:
		if len(offices) == 0 {
			return apperror.ValidationError("offices", "at least one office is required for an OFFICE alert")
		}
		if len(cities) > 0 {
			return apperror.ValidationError("cities", "must be empty for an OFFICE alert")
		}
	default:
		return apperror.ValidationError("triggerType", "must be one of CITY OFFICE")
	}
	return nil
}

// resolveCurrency loads a currency and rejects codes no office trades.
func (s *AlertService) resolveCurrency(ctx context.Context, field string, id uuid.UUID) (*model.Currency, error) {
	c, err := s.directory.GetCurrency(ctx, id)
	if err != nil {
		return nil, referenceError("currency", id, err)
	}
	if !currency.IsValid(c.Code) {
		return nil, apperror.ValidationError(field, fmt.Sprintf("unsupported currency %q", c.Code))
	}
	return c, nil
}

func referenceError(kind string, id uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrCurrencyNotFound) ||
		errors.Is(err, repository.ErrCityNotFound) ||
		errors.Is(err, repository.ErrOfficeNotFound) {
		return apperror.NotFound(fmt.Sprintf("%s %s", kind, id))
	}
	return fmt.Errorf("resolve %s %s: %w", kind, id, err)
}

func (s *AlertService) Get(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	alert, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrAlertNotFound) {
		return nil, apperror.NotFound("alert")
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return alert, nil
}

func (s *AlertService) ListByContact(ctx context.Context, contact string) ([]model.Alert, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return nil, apperror.ValidationError("contact", "is required")
	}
	alerts, err := s.repo.ListByContact(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// Update changes contact, amount, threshold or the active flag. Scope and
// currencies cannot change; create a new alert instead.
func (s *AlertService) Update(ctx context.Context, id uuid.UUID, input UpdateAlertInput) (*model.Alert, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.RecipientContact != nil {
		alert.RecipientContact = strings.TrimSpace(*input.RecipientContact)
	}
	if input.BaseCurrencyAmount != nil {
		if !input.BaseCurrencyAmount.IsPositive() {
			return nil, apperror.ValidationError("baseCurrencyAmount", "must be positive")
		}
		alert.BaseCurrencyAmount = *input.BaseCurrencyAmount
	}
	if input.TargetCurrencyThreshold != nil {
		if !input.TargetCurrencyThreshold.IsPositive() {
			return nil, apperror.ValidationError("targetCurrencyThreshold", "must be positive")
		}
		alert.TargetCurrencyThreshold = *input.TargetCurrencyThreshold
	}
	if input.IsActive != nil {
		alert.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, alert); err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return nil, apperror.NotFound("alert")
		}
		return nil, fmt.Errorf("update alert: %w", err)
	}
	return alert, nil
}

func (s *AlertService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return apperror.NotFound("alert")
		}
		return fmt.Errorf("delete alert: %w", err)
	}
	return nil
}

// FindMatching exposes the matcher's lookup for diagnostics.
func (s *AlertService) FindMatching(ctx context.Context, q repository.MatchQuery) ([]model.Alert, error) {
	if !q.TriggerType.IsValid() {
		return nil, apperror.ValidationError("triggerType", "must be one of CITY OFFICE")
	}
	alerts, err := s.repo.FindMatching(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find matching alerts: %w", err)
	}
	return alerts, nil
}
