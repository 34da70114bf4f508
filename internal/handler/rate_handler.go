package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/exchango/backend/internal/apperror"
	"github.com/exchango/backend/internal/logger"
	"github.com/exchango/backend/internal/service"
)

// WarningHeader carries non-fatal problems on an otherwise successful response.
const WarningHeader = "X-Warning"

type RateHandler struct {
	service RateServiceInterface
}

func NewRateHandler(service RateServiceInterface) *RateHandler {
	return &RateHandler{service: service}
}

// Update applies a partial rate change and feeds the alert pipeline.
// PATCH /api/office-rates/{id}
func (h *RateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, apperror.BadRequest("invalid rate ID"))
		return
	}

	var input service.UpdateRateInput
	if err := decodeJSON(r, &input); err != nil {
		respondServiceError(w, r, err)
		return
	}

	rate, err := h.service.UpdateRate(r.Context(), id, input)

	// The rate is committed even when the change could not be announced.
	var pubErr *apperror.EventPublicationError
	if errors.As(err, &pubErr) && rate != nil {
		logger.FromContext(r.Context()).Warn("rate updated without alert notification",
			"rate_id", id.String(),
			"error", pubErr.Err.Error(),
		)
		w.Header().Set(WarningHeader, "rate saved but alert notifications could not be triggered")
		respondJSON(w, http.StatusOK, rate)
		return
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, rate)
}
