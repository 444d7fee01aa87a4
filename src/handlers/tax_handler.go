package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/username/portfoliotracker/backend/src/config"
	"github.com/username/portfoliotracker/backend/src/logger"
	"github.com/username/portfoliotracker/backend/src/processors"
	"github.com/username/portfoliotracker/backend/src/services"
	"github.com/username/portfoliotracker/backend/src/utils"
)

type TaxHandler struct {
	taxService services.TaxService
}

func NewTaxHandler(taxService services.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

// HandleGetRomaniaTaxReport serves GET /api/tax/romania.
// Query params: year (required), assetStrategy, cashStrategy (FIFO/LIFO/HIFO/LOFO,
// default from config), usdToRonRate (optional override).
func (h *TaxHandler) HandleGetRomaniaTaxReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	year, err := strconv.Atoi(query.Get("year"))
	if err != nil || year < 2009 || year > 2100 {
		utils.SendJSONError(w, fmt.Sprintf("invalid or missing year parameter: %q", query.Get("year")), http.StatusBadRequest)
		return
	}

	assetStrategyStr := query.Get("assetStrategy")
	if assetStrategyStr == "" {
		assetStrategyStr = config.Cfg.DefaultAssetStrategy
	}
	assetStrategy, err := processors.ParseStrategy(assetStrategyStr)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cashStrategyStr := query.Get("cashStrategy")
	if cashStrategyStr == "" {
		cashStrategyStr = config.Cfg.DefaultCashStrategy
	}
	cashStrategy, err := processors.ParseStrategy(cashStrategyStr)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var usdToRon float64
	if rateStr := query.Get("usdToRonRate"); rateStr != "" {
		usdToRon, err = strconv.ParseFloat(rateStr, 64)
		if err != nil || usdToRon <= 0 {
			utils.SendJSONError(w, fmt.Sprintf("invalid usdToRonRate parameter: %q", rateStr), http.StatusBadRequest)
			return
		}
	}

	report, err := h.taxService.GetRomaniaTaxReport(services.TaxReportParams{
		Year:          year,
		AssetStrategy: assetStrategy,
		CashStrategy:  cashStrategy,
		UsdToRonRate:  usdToRon,
	})
	if err != nil {
		if errors.Is(err, processors.ErrMissingFxRate) {
			// No partial report on a missing rate.
			utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		utils.SendJSONError(w, fmt.Sprintf("error generating tax report: %v", err), http.StatusInternalServerError)
		return
	}

	etag, err := utils.GenerateETag(report)
	if err == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.L.Error("Error encoding tax report response", "year", year, "error", err)
	}
}
