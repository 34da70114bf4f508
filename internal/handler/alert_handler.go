package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/exchango/backend/internal/apperror"
	"github.com/exchango/backend/internal/model"
	"github.com/exchango/backend/internal/repository"
	"github.com/exchango/backend/internal/service"
)

type AlertHandler struct {
	service AlertServiceInterface
}

func NewAlertHandler(service AlertServiceInterface) *AlertHandler {
	return &AlertHandler{service: service}
}

// Create registers a new rate alert.
// POST /api/alerts
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateAlertInput
	if err := decodeJSON(r, &input); err != nil {
		respondServiceError(w, r, err)
		return
	}

	alert, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, alert)
}

// Get returns one alert with its references.
// GET /api/alerts/{id}
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}

	alert, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

// List returns the alerts registered for a contact.
// GET /api/alerts?contact=
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	contact := strings.TrimSpace(r.URL.Query().Get("contact"))
	if contact == "" {
		respondAppError(w, apperror.ValidationError("contact", "contact parameter is required"))
		return
	}

	alerts, err := h.service.ListByContact(r.Context(), contact)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}

	respondJSON(w, http.StatusOK, alerts)
}

// Update changes contact, amount, threshold or active flag.
// PUT /api/alerts/{id}
func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}

	var input service.UpdateAlertInput
	if err := decodeJSON(r, &input); err != nil {
		respondServiceError(w, r, err)
		return
	}

	alert, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

// Delete removes an alert and its scope rows.
// DELETE /api/alerts/{id}
func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Matching lists the active alerts a given rate would satisfy.
// GET /api/alerts/matching?triggerType=&scopeId=&baseCurrencyId=&targetCurrencyId=&rate=
func (h *AlertHandler) Matching(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	trigger := model.TriggerType(strings.ToUpper(q.Get("triggerType")))
	if !trigger.IsValid() {
		respondAppError(w, apperror.ValidationError("triggerType", "triggerType must be CITY or OFFICE"))
		return
	}

	ids := make(map[string]uuid.UUID, 3)
	for _, name := range []string{"scopeId", "baseCurrencyId", "targetCurrencyId"} {
		id, err := uuid.Parse(q.Get(name))
		if err != nil {
			respondAppError(w, apperror.ValidationError(name, name+" must be a valid id"))
			return
		}
		ids[name] = id
	}

	rate, err := parseDecimal(q.Get("rate"))
	if err != nil || !rate.IsPositive() {
		respondAppError(w, apperror.ValidationError("rate", "rate must be a positive number"))
		return
	}

	alerts, err := h.service.FindMatching(r.Context(), repository.MatchQuery{
		TriggerType:      trigger,
		ScopeID:          ids["scopeId"],
		BaseCurrencyID:   ids["baseCurrencyId"],
		TargetCurrencyID: ids["targetCurrencyId"],
		MinTargetRate:    rate,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}

	respondJSON(w, http.StatusOK, alerts)
}

func alertID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, apperror.BadRequest("invalid alert ID"))
		return uuid.Nil, false
	}
	return id, true
}
