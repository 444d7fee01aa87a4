package services

import (
	"github.com/username/portfoliotracker/backend/src/models"
	"github.com/username/portfoliotracker/backend/src/processors"
)

// TaxReportParams are the caller-controlled knobs of one report request.
// A zero UsdToRonRate means "resolve from config or the historical FX table".
type TaxReportParams struct {
	Year          int
	AssetStrategy processors.Strategy
	CashStrategy  processors.Strategy
	UsdToRonRate  float64
}

// TransactionSource supplies the normalized transactions a report runs over.
type TransactionSource func() ([]models.Transaction, error)

// TaxService defines the interface for serving tax reports.
type TaxService interface {
	GetRomaniaTaxReport(params TaxReportParams) (*models.RomaniaTaxReport, error)
	GetTransactions() ([]models.Transaction, error)
	InvalidateCache()
}
