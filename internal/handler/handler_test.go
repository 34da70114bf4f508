package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/internal/repository"
	"github.com/exchango/backend/internal/service"
)

// MockAlertService implements AlertServiceInterface for testing
type MockAlertService struct {
	mock.Mock
}

func (m *MockAlertService) Create(ctx context.Context, input service.CreateAlertInput) (*model.Alert, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alert), args.Error(1)
}

func (m *MockAlertService) Get(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alert), args.Error(1)
}

func (m *MockAlertService) ListByContact(ctx context.Context, contact string) ([]model.Alert, error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alert), args.Error(1)
}

func (m *MockAlertService) Update(ctx context.Context, id uuid.UUID, input service.UpdateAlertInput) (*model.Alert, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alert), args.Error(1)
}

func (m *MockAlertService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAlertService) FindMatching(ctx context.Context, q repository.MatchQuery) ([]model.Alert, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alert), args.Error(1)
}

// MockRateService implements RateServiceInterface for testing
type MockRateService struct {
	mock.Mock
}

func (m *MockRateService) UpdateRate(ctx context.Context, id uuid.UUID, input service.UpdateRateInput) (*model.Rate, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Rate), args.Error(1)
}

// withURLParam attaches a chi route param to the request.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
