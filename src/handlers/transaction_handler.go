package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/username/portfoliotracker/backend/src/logger"
	"github.com/username/portfoliotracker/backend/src/models"
	"github.com/username/portfoliotracker/backend/src/services"
	"github.com/username/portfoliotracker/backend/src/utils"
)

type TransactionHandler struct {
	taxService services.TaxService
}

func NewTransactionHandler(taxService services.TaxService) *TransactionHandler {
	return &TransactionHandler{taxService: taxService}
}

// HandleGetTransactions serves GET /api/transactions: the stored normalized
// transactions, in the order the engine consumes them.
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.taxService.GetTransactions()
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("error loading transactions: %v", err), http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(transactions); err != nil {
		logger.L.Error("Error encoding transactions response", "error", err)
	}
}
