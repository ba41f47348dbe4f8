package form

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/moneyboard/moneyboard/internal/rest"
	"github.com/moneyboard/moneyboard/pkg/picker"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	forms *Service
}

type QueryDTO struct {
	Query string `json:"query"`
}

type ValueDTO struct {
	Key string `json:"key"`
}

func NewHandler(s *Service) *Handler {
	return &Handler{s}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrUnknownAction), errors.Is(err, picker.ErrUnknownOption):
		return http.StatusBadRequest
	case errors.Is(err, ErrIncomplete):
		return http.StatusUnprocessableEntity
	}
	return rest.StatusFor(err)
}

func fail(w http.ResponseWriter, message string, err error) {
	rest.WriteError(w, statusFor(err), message, err)
}

func draftId(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["formId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid form id", err)
		return uuid.Nil, false
	}
	return id, true
}

func fieldOf(w http.ResponseWriter, r *http.Request) (Field, bool) {
	field, err := ParseField(mux.Vars(r)["field"])
	if err != nil {
		fail(w, "Invalid field", err)
		return "", false
	}
	return field, true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating transaction form")
	d, err := h.forms.Create(r.Context())
	if err != nil {
		fail(w, "Failed to create form", err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, d.View())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting transaction form")
	id, ok := draftId(w, r)
	if !ok {
		return
	}
	d, err := h.forms.Get(r.Context(), id)
	if err != nil {
		fail(w, "Failed to get form", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, d.View())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log.Debug("Deleting transaction form")
	id, ok := draftId(w, r)
	if !ok {
		return
	}
	if err := h.forms.Delete(r.Context(), id); err != nil {
		fail(w, "Failed to delete form", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) FieldAction(w http.ResponseWriter, r *http.Request) {
	log.Debug("Applying form field action")
	id, ok := draftId(w, r)
	if !ok {
		return
	}
	field, ok := fieldOf(w, r)
	if !ok {
		return
	}
	d, err := h.forms.Act(r.Context(), id, field, Action(mux.Vars(r)["action"]))
	if err != nil {
		fail(w, "Failed to apply field action", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, d.View())
}

func (h *Handler) SetQuery(w http.ResponseWriter, r *http.Request) {
	log.Debug("Setting form field query")
	id, ok := draftId(w, r)
	if !ok {
		return
	}
	field, ok := fieldOf(w, r)
	if !ok {
		return
	}
	var dto QueryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}
	d, err := h.forms.Type(r.Context(), id, field, dto.Query)
	if err != nil {
		fail(w, "Failed to set query", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, d.View())
}

func (h *Handler) SetValue(w http.ResponseWriter, r *http.Request) {
	log.Debug("Setting form field value")
	id, ok := draftId(w, r)
	if !ok {
		return
	}
	field, ok := fieldOf(w, r)
	if !ok {
		return
	}
	var dto ValueDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid value", err)
		return
	}
	d, err := h.forms.Select(r.Context(), id, field, dto.Key)
	if err != nil {
		fail(w, "Failed to set value", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, d.View())
}

func (h *Handler) SetDetails(w http.ResponseWriter, r *http.Request) {
	log.Debug("Setting form details")
	id, ok := draftId(w, r)
	if !ok {
		return
	}
	var details Details
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid details", err)
		return
	}
	d, err := h.forms.SetDetails(r.Context(), id, details)
	if err != nil {
		fail(w, "Failed to set details", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, d.View())
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	log.Debug("Submitting transaction form")
	id, ok := draftId(w, r)
	if !ok {
		return
	}
	tx, err := h.forms.Submit(r.Context(), id)
	if err != nil {
		fail(w, "Failed to submit form", err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, tx)
}
