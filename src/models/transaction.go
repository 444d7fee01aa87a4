package models

import (
	"time"

	"github.com/username/portfoliotracker/backend/src/utils"
)

// TransactionType classifies a normalized transaction.
type TransactionType string

const (
	TxDeposit    TransactionType = "Deposit"
	TxSwap       TransactionType = "Swap"
	TxWithdrawal TransactionType = "Withdrawal"
)

// Transaction is a normalized exchange transaction as produced by the import
// layer. Datetime is either an ISO-8601 string or epoch milliseconds; the
// engine never mutates a Transaction.
type Transaction struct {
	ID           int64           `json:"id"`
	Type         TransactionType `json:"type"`
	Datetime     string          `json:"datetime"`
	FromAsset    string          `json:"fromAsset,omitempty"`
	FromQuantity float64         `json:"fromQuantity,omitempty"`
	FromPriceUsd float64         `json:"fromPriceUsd,omitempty"`
	ToAsset      string          `json:"toAsset"`
	ToQuantity   float64         `json:"toQuantity"`
	ToPriceUsd   float64         `json:"toPriceUsd,omitempty"`
}

// Time parses the transaction datetime into UTC.
func (t Transaction) Time() (time.Time, error) {
	return utils.ParseDatetime(t.Datetime)
}

var stablecoins = map[string]bool{
	"USD":   true,
	"USDC":  true,
	"USDT":  true,
	"DAI":   true,
	"BUSD":  true,
	"TUSD":  true,
	"FDUSD": true,
	"USDP":  true,
}

// IsStablecoin reports whether the asset is tracked as USD-equivalent cash.
// Stablecoins are valued at exactly 1.0 USD per unit throughout the engine.
func IsStablecoin(asset string) bool {
	return stablecoins[asset]
}
