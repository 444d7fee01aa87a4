package processors

import (
	"time"

	"github.com/username/portfoliotracker/backend/src/logger"
	"github.com/username/portfoliotracker/backend/src/models"
)

// CalculateTax runs the full Romania tax calculation for one year: a single
// deterministic pass over the transactions, taxable-event extraction for
// withdrawals inside the year, provenance expansion and totals.
//
// The function is pure with respect to its inputs: it owns all intermediate
// state, touches nothing outside it, and the same inputs always produce the
// same report. The only fatal condition is a rate lookup failure; every other
// anomaly is recorded in report.Warnings.
func CalculateTax(
	txs []models.Transaction,
	year int,
	usdToRon float64,
	opts StrategyOptions,
	rates RateLookup,
) (*models.RomaniaTaxReport, error) {
	if opts.AssetStrategy == "" {
		opts.AssetStrategy = StrategyFIFO
	}
	if opts.CashStrategy == "" {
		opts.CashStrategy = StrategyFIFO
	}
	if rates == nil {
		rates = func(from, to string, _ time.Time) (float64, error) {
			if from == to {
				return 1.0, nil
			}
			return 0, ErrMissingFxRate
		}
	}

	start := time.Now()
	logger.L.Info("Tax calculation START", "year", year,
		"assetStrategy", opts.AssetStrategy, "cashStrategy", opts.CashStrategy,
		"transactionCount", len(txs))

	run := newLedgerRun(year, usdToRon, opts, rates)
	for _, o := range run.orderTransactions(txs) {
		if err := run.process(o); err != nil {
			logger.L.Error("Tax calculation aborted", "year", year, "error", err)
			return nil, err
		}
	}

	report := run.buildReport()
	logger.L.Info("Tax calculation END", "year", year,
		"taxableEvents", len(report.TaxableEvents),
		"totalGainLossUsd", report.TotalGainLossUsd,
		"warnings", len(report.Warnings),
		"duration", time.Since(start))
	return report, nil
}

// buildReport sums the per-event amounts and attaches diagnostics.
func (run *ledgerRun) buildReport() *models.RomaniaTaxReport {
	report := &models.RomaniaTaxReport{
		Year:          run.year,
		AssetStrategy: string(run.opts.AssetStrategy),
		CashStrategy:  string(run.opts.CashStrategy),
		TaxableEvents: run.events,
		UsdToRonRate:  run.usdToRon,
		Warnings:      run.warnings,
	}
	if report.TaxableEvents == nil {
		report.TaxableEvents = []models.TaxableEvent{}
	}
	if report.Warnings == nil {
		report.Warnings = []string{}
	}

	for _, event := range report.TaxableEvents {
		report.TotalWithdrawalsUsd += event.FiatAmountUsd
		report.TotalWithdrawalsRon += event.FiatAmountRon
		report.TotalCostBasisUsd += event.CostBasisUsd
		report.TotalCostBasisRon += event.CostBasisRon
		report.TotalGainLossUsd += event.GainLossUsd
		report.TotalGainLossRon += event.GainLossRon
	}

	report.RemainingCashUsd, report.RemainingCashCostBasisUsd = run.remainingCash()
	return report
}
