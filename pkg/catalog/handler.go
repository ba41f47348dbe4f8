package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/moneyboard/moneyboard/internal/rest"
	"github.com/moneyboard/moneyboard/pkg/finance"
	"github.com/moneyboard/moneyboard/pkg/picker"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	catalog Service
}

type OptionsDTO struct {
	Kind     finance.Kind         `json:"kind"`
	Query    string               `json:"query"`
	Sections []picker.SectionView `json:"sections"`
}

func NewHandler(s Service) *Handler {
	return &Handler{s}
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	status := rest.StatusFor(err)
	if errors.Is(err, ErrUnknownKind) {
		status = http.StatusBadRequest
	}
	rest.WriteError(w, status, message, err)
}

func (h *Handler) kind(w http.ResponseWriter, r *http.Request) (finance.Kind, bool) {
	kind, err := ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		h.fail(w, "Invalid kind", err)
		return "", false
	}
	return kind, true
}

func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting picker options")
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")
	if r.URL.Query().Get("search") == "true" && query != "" {
		if err := h.catalog.Search(r.Context(), kind, query); err != nil {
			// The local options are still worth showing.
			log.Warnf("search of %s failed: %v", kind, err)
		}
	}

	options, err := h.catalog.Options(r.Context(), kind, query)
	if err != nil {
		h.fail(w, "Failed to load options", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, OptionsDTO{
		Kind:     kind,
		Query:    query,
		Sections: picker.Render(picker.Group(options), r.URL.Query().Get("selected")),
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting picker status")
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	status, err := h.catalog.Status(r.Context(), kind)
	if err != nil {
		h.fail(w, "Failed to get status", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	log.Debug("Resetting picker")
	kind, ok := h.kind(w, r)
	if !ok {
		return
	}
	resetErr := h.catalog.Reset(r.Context(), kind)
	status, err := h.catalog.Status(r.Context(), kind)
	if err != nil {
		h.fail(w, "Failed to get status", err)
		return
	}
	if resetErr != nil {
		log.Warnf("reset of %s failed: %v", kind, resetErr)
	}
	rest.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting transactions")
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			rest.WriteError(w, http.StatusBadRequest, "Invalid page", err)
			return
		}
		page = parsed
	}
	list, err := h.catalog.Transactions(r.Context(), page)
	if err != nil {
		h.fail(w, "Failed to get transactions", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating category")
	var category finance.Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid category", err)
		return
	}
	category.Id = 0
	saved, err := h.catalog.SaveCategory(r.Context(), category)
	if err != nil {
		h.fail(w, "Failed to create category", err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, saved)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating category")
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	var category finance.Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid category", err)
		return
	}
	category.Id = id
	saved, err := h.catalog.SaveCategory(r.Context(), category)
	if err != nil {
		h.fail(w, "Failed to update category", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	log.Debug("Deleting category")
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating account")
	var account finance.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid account", err)
		return
	}
	account.Id = 0
	saved, err := h.catalog.SaveAccount(r.Context(), account)
	if err != nil {
		h.fail(w, "Failed to create account", err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, saved)
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating account")
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	var account finance.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid account", err)
		return
	}
	account.Id = id
	saved, err := h.catalog.SaveAccount(r.Context(), account)
	if err != nil {
		h.fail(w, "Failed to update account", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	log.Debug("Deleting account")
	id, ok := pathId(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteAccount(r.Context(), id); err != nil {
		h.fail(w, "Failed to delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathId(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}
