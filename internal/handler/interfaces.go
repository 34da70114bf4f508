package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/internal/repository"
	"github.com/exchango/backend/internal/service"
)

// AlertServiceInterface for handler testing
type AlertServiceInterface interface {
	Create(ctx context.Context, input service.CreateAlertInput) (*model.Alert, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Alert, error)
	ListByContact(ctx context.Context, contact string) ([]model.Alert, error)
	Update(ctx context.Context, id uuid.UUID, input service.UpdateAlertInput) (*model.Alert, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindMatching(ctx context.Context, q repository.MatchQuery) ([]model.Alert, error)
}

// RateServiceInterface for handler testing
type RateServiceInterface interface {
	UpdateRate(ctx context.Context, id uuid.UUID, input service.UpdateRateInput) (*model.Rate, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}
