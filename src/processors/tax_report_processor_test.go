package processors

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/username/portfoliotracker/backend/src/models"
	"github.com/username/portfoliotracker/backend/src/utils"
)

func TestCalculateTaxTotalsAndRonConversion(t *testing.T) {
	txs := []models.Transaction{
		depositTx(1, "2024-01-01T10:00:00Z", "USD", 1000),
		swapTx(2, "2024-01-10T10:00:00Z", "USDC", 1000, "BTC", 1),
		swapTx(3, "2024-02-10T10:00:00Z", "BTC", 0.5, "USDC", 700),
		withdrawalTx(4, "2024-03-01T10:00:00Z", 700),
		swapTx(5, "2024-04-10T10:00:00Z", "BTC", 0.5, "USDC", 800),
		withdrawalTx(6, "2024-05-01T10:00:00Z", 800),
	}
	report, err := CalculateTax(txs, 2024, 4.5, StrategyOptions{}, nil)
	if err != nil {
		t.Fatalf("CalculateTax: %v", err)
	}

	if len(report.TaxableEvents) != 2 {
		t.Fatalf("expected 2 taxable events, got %d", len(report.TaxableEvents))
	}
	if !utils.ApproxEqual(report.TotalWithdrawalsUsd, 1500) {
		t.Errorf("total withdrawals = %g, want 1500", report.TotalWithdrawalsUsd)
	}
	if !utils.ApproxEqual(report.TotalCostBasisUsd, 1000) {
		t.Errorf("total cost basis = %g, want 1000", report.TotalCostBasisUsd)
	}
	if !utils.ApproxEqual(report.TotalGainLossUsd, 500) {
		t.Errorf("total gain = %g, want 500", report.TotalGainLossUsd)
	}
	if !utils.ApproxEqual(report.TotalGainLossRon, 2250) {
		t.Errorf("total gain RON = %g, want 2250", report.TotalGainLossRon)
	}
	if !utils.ApproxEqual(report.UsdToRonRate, 4.5) {
		t.Errorf("report rate = %g, want 4.5", report.UsdToRonRate)
	}
	for _, event := range report.TaxableEvents {
		if !utils.ApproxEqual(event.GainLossRon, event.GainLossUsd*4.5) {
			t.Errorf("event %d RON gain = %g, want %g",
				event.TransactionID, event.GainLossRon, event.GainLossUsd*4.5)
		}
	}
}

// The same inputs must always produce the byte-identical report, including
// map-backed sections like traces.
func TestCalculateTaxIsDeterministic(t *testing.T) {
	txs := []models.Transaction{
		depositTx(1, "2024-01-01T10:00:00Z", "USD", 3000),
		swapTx(2, "2024-01-10T10:00:00Z", "USDC", 2000, "BTC", 1),
		swapTx(3, "2024-01-15T10:00:00Z", "USDC", 1000, "ETH", 5),
		swapTx(4, "2024-02-10T10:00:00Z", "BTC", 1, "USDC", 2600),
		swapTx(5, "2024-02-20T10:00:00Z", "USDC", 2600, "SOL", 100),
		swapTx(6, "2024-03-10T10:00:00Z", "SOL", 100, "USDC", 3100),
		swapTx(7, "2024-03-15T10:00:00Z", "ETH", 5, "USDC", 1400),
		withdrawalTx(8, "2024-04-01T10:00:00Z", 4500),
	}

	first := mustCalculate(t, txs, 2024, StrategyOptions{})
	second := mustCalculate(t, txs, 2024, StrategyOptions{})

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(firstJSON, secondJSON) {
		t.Error("two runs over identical inputs produced different reports")
	}
}

func TestCalculateTaxDefaultsToFifo(t *testing.T) {
	report := mustCalculate(t, nil, 2024, StrategyOptions{})
	if report.AssetStrategy != string(StrategyFIFO) || report.CashStrategy != string(StrategyFIFO) {
		t.Errorf("default strategies = (%s, %s), want FIFO/FIFO",
			report.AssetStrategy, report.CashStrategy)
	}
	if report.TaxableEvents == nil || report.Warnings == nil {
		t.Error("report slices must be non-nil even when empty")
	}
}

func TestCalculateTaxReportsRemainingCash(t *testing.T) {
	txs := []models.Transaction{
		depositTx(1, "2024-01-01T10:00:00Z", "USD", 1000),
		withdrawalTx(2, "2024-02-01T10:00:00Z", 400),
	}
	report := mustCalculate(t, txs, 2024, StrategyOptions{})

	if !utils.ApproxEqual(report.RemainingCashUsd, 600) {
		t.Errorf("remaining cash = %g, want 600", report.RemainingCashUsd)
	}
	if !utils.ApproxEqual(report.RemainingCashCostBasisUsd, 600) {
		t.Errorf("remaining cash basis = %g, want 600", report.RemainingCashCostBasisUsd)
	}
}
