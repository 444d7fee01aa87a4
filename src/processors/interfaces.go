package processors

import (
	"github.com/username/portfoliotracker/backend/src/models"
)

// TaxCalculator defines the interface for running a full tax calculation.
type TaxCalculator interface {
	Calculate(txs []models.Transaction, year int, usdToRon float64, opts StrategyOptions, rates RateLookup) (*models.RomaniaTaxReport, error)
}

// NewTaxCalculator returns the engine-backed calculator.
func NewTaxCalculator() TaxCalculator {
	return taxCalculator{}
}

type taxCalculator struct{}

func (taxCalculator) Calculate(txs []models.Transaction, year int, usdToRon float64, opts StrategyOptions, rates RateLookup) (*models.RomaniaTaxReport, error) {
	return CalculateTax(txs, year, usdToRon, opts, rates)
}
