package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/moneyboard/moneyboard/internal/rest"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Pickers
	r.HandleFunc("/api/picker/{kind}/options", deps.CatalogHandler.GetOptions).Methods("GET")
	r.HandleFunc("/api/picker/{kind}/status", deps.CatalogHandler.GetStatus).Methods("GET")
	r.HandleFunc("/api/picker/{kind}/reset", deps.CatalogHandler.Reset).Methods("POST")

	// Transactions
	r.HandleFunc("/api/transactions", deps.CatalogHandler.GetTransactions).Methods("GET")

	// Categories
	r.HandleFunc("/api/categories", deps.CatalogHandler.CreateCategory).Methods("POST")
	r.HandleFunc("/api/categories/{id}", deps.CatalogHandler.UpdateCategory).Methods("PUT")
	r.HandleFunc("/api/categories/{id}", deps.CatalogHandler.DeleteCategory).Methods("DELETE")

	// Accounts
	r.HandleFunc("/api/accounts", deps.CatalogHandler.CreateAccount).Methods("POST")
	r.HandleFunc("/api/accounts/{id}", deps.CatalogHandler.UpdateAccount).Methods("PUT")
	r.HandleFunc("/api/accounts/{id}", deps.CatalogHandler.DeleteAccount).Methods("DELETE")

	// Transaction forms
	r.HandleFunc("/api/forms/transaction", deps.FormHandler.Create).Methods("POST")
	r.HandleFunc("/api/forms/{formId}", deps.FormHandler.Get).Methods("GET")
	r.HandleFunc("/api/forms/{formId}", deps.FormHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/forms/{formId}/fields/{field}/query", deps.FormHandler.SetQuery).Methods("PUT")
	r.HandleFunc("/api/forms/{formId}/fields/{field}/value", deps.FormHandler.SetValue).Methods("PUT")
	r.HandleFunc("/api/forms/{formId}/fields/{field}/{action}", deps.FormHandler.FieldAction).Methods("POST")
	r.HandleFunc("/api/forms/{formId}/details", deps.FormHandler.SetDetails).Methods("PUT")
	r.HandleFunc("/api/forms/{formId}/submit", deps.FormHandler.Submit).Methods("POST")

	// Cache
	r.HandleFunc("/api/cache", deps.SnapshotHandler.Forget).Methods("DELETE")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		rest.WriteJSON(w, http.StatusOK, map[string]int{"sessions": deps.Sessions.Len()})
	}).Methods("GET")
}
