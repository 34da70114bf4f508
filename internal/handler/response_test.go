package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exchango/backend/internal/apperror"
	"github.com/exchango/backend/internal/repository"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       interface{}
		expectBody bool
	}{
		{
			name:       "success with data",
			status:     http.StatusOK,
			data:       map[string]string{"message": "success"},
			expectBody: true,
		},
		{
			name:       "created with data",
			status:     http.StatusCreated,
			data:       map[string]int{"id": 123},
			expectBody: true,
		},
		{
			name:       "no content",
			status:     http.StatusNoContent,
			data:       nil,
			expectBody: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			respondJSON(w, tt.status, tt.data)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			if tt.expectBody {
				assert.NotEmpty(t, w.Body.String())
			} else {
				assert.Empty(t, w.Body.String())
			}
		})
	}
}

func TestRespondAppError(t *testing.T) {
	w := httptest.NewRecorder()

	respondAppError(w, apperror.ValidationError("targetCurrencyThreshold", "must be positive"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "must be positive", resp.Error)
	assert.Equal(t, "targetCurrencyThreshold", resp.Field)
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantField  string
	}{
		{
			name:       "validation",
			err:        apperror.ValidationError("cities", "CITY alerts need at least one city"),
			wantStatus: http.StatusBadRequest,
			wantError:  "CITY alerts need at least one city",
			wantField:  "cities",
		},
		{
			name:       "not found",
			err:        apperror.NotFound("alert"),
			wantStatus: http.StatusNotFound,
			wantError:  "alert not found",
		},
		{
			name:       "unmapped repository error",
			err:        fmt.Errorf("get alert: %w", repository.ErrAlertNotFound),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "joined apperror sentinel",
			err:        errors.Join(apperror.ErrNotFound, errors.New("office gone")),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unexpected error hides cause",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
			w := httptest.NewRecorder()
			respondServiceError(w, req, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp.Error)
			}
			assert.Equal(t, tt.wantField, resp.Field)
			assert.NotContains(t, resp.Error, "pq:")
		})
	}
}

func TestParseDecimal(t *testing.T) {
	d, err := parseDecimal("10.55")
	require.NoError(t, err)
	assert.Equal(t, "10.55", d.String())

	_, err = parseDecimal("ten")
	assert.Error(t, err)
}
