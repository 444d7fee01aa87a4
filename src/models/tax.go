package models

import "time"

// Contribution records a fiat deposit (or a proportional slice of one) that
// funded a cash lot. AmountUsd slices are scaled whenever the owning lot is
// split, so summing contributions always reproduces the lot's cost basis.
type Contribution struct {
	DepositTxID     int64     `json:"depositTxId"`
	DepositDatetime time.Time `json:"depositDatetime"`
	DepositCurrency string    `json:"depositCurrency"`
	AmountUsd       float64   `json:"amountUsd"`
	FxRateToUsd     float64   `json:"fxRateToUsd"`
}

// FundingSell records that UsedProceedsUsd of a sale's proceeds were spent to
// fund a later buy. The provenance expansion follows these edges backwards.
type FundingSell struct {
	SaleTxID        int64   `json:"saleTxId"`
	Asset           string  `json:"asset"`
	UsedProceedsUsd float64 `json:"usedProceedsUsd"`
}

// BuyLotRecord is the provenance of a single acquired asset lot: the buy
// transaction, what it cost, and which deposits and prior sales paid for it.
// For lots created by a crypto-to-crypto swap, the SwappedFrom fields keep the
// original pre-swap buy lots at their already-consumed scale.
type BuyLotRecord struct {
	BuyTxID             int64          `json:"buyTxId"`
	BuyDatetime         time.Time      `json:"buyDatetime"`
	Asset               string         `json:"asset"`
	Quantity            float64        `json:"quantity"`
	CostBasisUsd        float64        `json:"costBasisUsd"`
	CashSpentUsd        float64        `json:"cashSpentUsd,omitempty"`
	FundingDeposits     []Contribution `json:"fundingDeposits,omitempty"`
	FundingSells        []FundingSell  `json:"fundingSells,omitempty"`
	SwappedFromAsset    string         `json:"swappedFromAsset,omitempty"`
	SwappedFromQuantity float64        `json:"swappedFromQuantity,omitempty"`
	SwappedFromBuyLots  []BuyLotRecord `json:"swappedFromBuyLots,omitempty"`
}

// SaleTraceEntry is a (possibly scaled) view of one crypto-to-stablecoin sale
// that funded a withdrawal, directly or through a chain of re-buys.
type SaleTraceEntry struct {
	SaleTxID     int64          `json:"saleTxId"`
	SaleDatetime time.Time      `json:"saleDatetime"`
	Asset        string         `json:"asset"`
	ProceedsUsd  float64        `json:"proceedsUsd"`
	CostBasisUsd float64        `json:"costBasisUsd"`
	BuyLots      []BuyLotRecord `json:"buyLots,omitempty"`
}

// SourceTraceEntry is one original buy transaction backing a withdrawal,
// deduplicated and scaled to the portion that actually reached it.
type SourceTraceEntry struct {
	BuyTxID          int64     `json:"buyTxId"`
	BuyDatetime      time.Time `json:"buyDatetime"`
	Asset            string    `json:"asset"`
	Quantity         float64   `json:"quantity"`
	CostBasisUsd     float64   `json:"costBasisUsd"`
	SwappedFromAsset string    `json:"swappedFromAsset,omitempty"`
}

// TaxableEvent is one fiat withdrawal inside the reporting year.
type TaxableEvent struct {
	TransactionID int64     `json:"transactionId"`
	Datetime      time.Time `json:"datetime"`
	FiatAmountUsd float64   `json:"fiatAmountUsd"`
	FiatAmountRon float64   `json:"fiatAmountRon"`
	CostBasisUsd  float64   `json:"costBasisUsd"`
	CostBasisRon  float64   `json:"costBasisRon"`
	GainLossUsd   float64   `json:"gainLossUsd"`
	GainLossRon   float64   `json:"gainLossRon"`

	// Trace views for the visualization layer.
	SourceTrace   []SourceTraceEntry `json:"sourceTrace"`
	SaleTrace     []SaleTraceEntry   `json:"saleTrace"`
	SaleTraceDeep []SaleTraceEntry   `json:"saleTraceDeep"`
	DepositTrace  []Contribution     `json:"depositTrace"`
}

// RomaniaTaxReport is the full output of one tax calculation run.
type RomaniaTaxReport struct {
	Year          int            `json:"year"`
	AssetStrategy string         `json:"assetStrategy"`
	CashStrategy  string         `json:"cashStrategy"`
	TaxableEvents []TaxableEvent `json:"taxableEvents"`

	TotalWithdrawalsUsd float64 `json:"totalWithdrawalsUsd"`
	TotalWithdrawalsRon float64 `json:"totalWithdrawalsRon"`
	TotalCostBasisUsd   float64 `json:"totalCostBasisUsd"`
	TotalCostBasisRon   float64 `json:"totalCostBasisRon"`
	TotalGainLossUsd    float64 `json:"totalGainLossUsd"`
	TotalGainLossRon    float64 `json:"totalGainLossRon"`
	UsdToRonRate        float64 `json:"usdToRonRate"`

	// Diagnostics.
	RemainingCashUsd          float64  `json:"remainingCashUsd"`
	RemainingCashCostBasisUsd float64  `json:"remainingCashCostBasisUsd"`
	Warnings                  []string `json:"warnings"`
}
