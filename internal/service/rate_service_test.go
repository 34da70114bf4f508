package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/exchango/backend/internal/apperror"
	"github.com/exchango/backend/internal/eventbus"
	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/internal/repository"
)

func storedRate(id uuid.UUID) *model.Rate {
	return &model.Rate{
		ID:               id,
		OfficeID:         officeA,
		BaseCurrencyID:   madID,
		TargetCurrencyID: eurID,
		BuyRate:          decimal.RequireFromString("10.40"),
		SellRate:         decimal.RequireFromString("10.90"),
		IsActive:         true,
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestRateService_UpdateRate(t *testing.T) {
	t.Parallel()

	inactive := false
	active := true
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		input       UpdateRateInput
		wantPublish bool
		check       func(*testing.T, model.RateChangeEvent)
	}{
		{
			name:        "identical payload",
			input:       UpdateRateInput{BuyRate: dec("10.4"), SellRate: dec("10.90"), IsActive: &active},
			wantPublish: false,
		},
		{
			name:        "empty payload",
			input:       UpdateRateInput{},
			wantPublish: false,
		},
		{
			name:        "active flag only",
			input:       UpdateRateInput{IsActive: &inactive},
			wantPublish: false,
		},
		{
			name:        "buy changed",
			input:       UpdateRateInput{BuyRate: dec("10.60")},
			wantPublish: true,
			check: func(t *testing.T, e model.RateChangeEvent) {
				assert.Equal(t, "10.4", e.OldBuyRate.String())
				assert.Equal(t, "10.6", e.NewBuyRate.String())
				assert.Equal(t, "10.9", e.OldSellRate.String())
				assert.Equal(t, "10.9", e.NewSellRate.String())
				assert.Equal(t, officeA, e.Office.ID)
				assert.Equal(t, "Bureau Agdal", e.Office.Name)
				assert.Equal(t, rabatID, e.Office.City.ID)
				assert.Equal(t, "Rabat", e.Office.City.Name)
				assert.Equal(t, "MAD", e.BaseCurrency.Code)
				assert.Equal(t, "EUR", e.TargetCurrency.Code)
				assert.True(t, e.IsActive)
				assert.Equal(t, fixed, e.OccurredAt)
			},
		},
		{
			name:        "sell changed with deactivation",
			input:       UpdateRateInput{SellRate: dec("11.00"), IsActive: &inactive},
			wantPublish: true,
			check: func(t *testing.T, e model.RateChangeEvent) {
				assert.Equal(t, "11", e.NewSellRate.String())
				assert.False(t, e.IsActive)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id := uuid.New()
			rates := &MockRateRepo{}
			rates.On("GetByID", mock.Anything, id).Return(storedRate(id), nil)
			rates.On("Update", mock.Anything, mock.AnythingOfType("*model.Rate")).Return(nil)

			publisher := &MockPublisher{}
			var published model.RateChangeEvent
			publisher.On("Publish", mock.Anything, mock.AnythingOfType("model.RateChangeEvent")).
				Run(func(args mock.Arguments) { published = args.Get(1).(model.RateChangeEvent) }).
				Return(nil).Maybe()

			svc := NewRateService(rates, seededDirectory(), publisher, testLogger())
			svc.now = func() time.Time { return fixed }

			rate, err := svc.UpdateRate(context.Background(), id, tt.input)

			require.NoError(t, err)
			require.NotNil(t, rate)
			rates.AssertCalled(t, "Update", mock.Anything, mock.Anything)
			if tt.wantPublish {
				publisher.AssertNumberOfCalls(t, "Publish", 1)
				assert.Equal(t, id, published.RateID)
				tt.check(t, published)
			} else {
				publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRateService_UpdateRate_PublicationFailureKeepsUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		directory func() *MockDirectory
		publisher func() *MockPublisher
		cause     error
	}{
		{
			name:      "bus full",
			directory: seededDirectory,
			publisher: func() *MockPublisher {
				p := &MockPublisher{}
				p.On("Publish", mock.Anything, mock.Anything).Return(eventbus.ErrBusFull)
				return p
			},
			cause: eventbus.ErrBusFull,
		},
		{
			name: "office cannot be resolved",
			directory: func() *MockDirectory {
				d := &MockDirectory{}
				d.On("GetOffice", mock.Anything, officeA).Return(nil, repository.ErrOfficeNotFound)
				return d
			},
			publisher: func() *MockPublisher { return &MockPublisher{} },
			cause:     repository.ErrOfficeNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id := uuid.New()
			rates := &MockRateRepo{}
			rates.On("GetByID", mock.Anything, id).Return(storedRate(id), nil)
			rates.On("Update", mock.Anything, mock.Anything).Return(nil)

			svc := NewRateService(rates, tt.directory(), tt.publisher(), testLogger())

			rate, err := svc.UpdateRate(context.Background(), id, UpdateRateInput{BuyRate: dec("10.6")})

			require.NotNil(t, rate)
			assert.Equal(t, "10.6", rate.BuyRate.String())
			assert.ErrorIs(t, err, apperror.ErrEventPublication)
			assert.ErrorIs(t, err, tt.cause)

			var pubErr *apperror.EventPublicationError
			require.True(t, errors.As(err, &pubErr))
			assert.Equal(t, id, pubErr.RateID)
			rates.AssertNumberOfCalls(t, "Update", 1)
		})
	}
}

func TestRateService_UpdateRate_Errors(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		rates := &MockRateRepo{}
		rates.On("GetByID", mock.Anything, id).Return(nil, repository.ErrRateNotFound)
		svc := NewRateService(rates, &MockDirectory{}, &MockPublisher{}, testLogger())

		_, err := svc.UpdateRate(context.Background(), id, UpdateRateInput{BuyRate: dec("10")})

		assert.ErrorIs(t, err, apperror.ErrNotFound)
		rates.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("non positive rate", func(t *testing.T) {
		t.Parallel()

		rates := &MockRateRepo{}
		svc := NewRateService(rates, &MockDirectory{}, &MockPublisher{}, testLogger())

		_, err := svc.UpdateRate(context.Background(), uuid.New(), UpdateRateInput{SellRate: dec("0")})

		assert.ErrorIs(t, err, apperror.ErrValidation)
		assert.Equal(t, "sellRate", apperror.GetField(err))
		rates.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("save fails", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		rates := &MockRateRepo{}
		rates.On("GetByID", mock.Anything, id).Return(storedRate(id), nil)
		rates.On("Update", mock.Anything, mock.Anything).Return(errors.New("deadlock detected"))
		publisher := &MockPublisher{}
		svc := NewRateService(rates, seededDirectory(), publisher, testLogger())

		rate, err := svc.UpdateRate(context.Background(), id, UpdateRateInput{BuyRate: dec("10.6")})

		assert.Error(t, err)
		assert.NotErrorIs(t, err, apperror.ErrEventPublication)
		assert.Nil(t, rate)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}
