package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTransactionTime(t *testing.T) {
	tx := Transaction{Datetime: "2024-03-15T14:30:00Z"}
	got, err := tx.Time()
	if err != nil {
		t.Fatalf("Time(): %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("Time() = %v", got)
	}

	if _, err := (Transaction{Datetime: "bogus"}).Time(); err == nil {
		t.Error("expected error for bogus datetime")
	}
}

func TestIsStablecoin(t *testing.T) {
	for _, asset := range []string{"USD", "USDC", "USDT", "DAI"} {
		if !IsStablecoin(asset) {
			t.Errorf("IsStablecoin(%q) = false, want true", asset)
		}
	}
	for _, asset := range []string{"BTC", "ETH", "usdc", ""} {
		if IsStablecoin(asset) {
			t.Errorf("IsStablecoin(%q) = true, want false", asset)
		}
	}
}

func TestTransactionJSONShape(t *testing.T) {
	raw := `{"id": 7, "type": "Swap", "datetime": "2024-01-10T10:00:00Z",
		"fromAsset": "USDC", "fromQuantity": 1000, "toAsset": "BTC", "toQuantity": 0.5}`
	var tx Transaction
	if err := json.Unmarshal([]byte(raw), &tx); err != nil {
		t.Fatal(err)
	}
	if tx.ID != 7 || tx.Type != TxSwap || tx.FromAsset != "USDC" || tx.ToQuantity != 0.5 {
		t.Errorf("decoded transaction = %+v", tx)
	}

	out, err := json.Marshal(tx)
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"fromAsset"`, `"toQuantity"`} {
		if !strings.Contains(string(out), field) {
			t.Errorf("encoded transaction missing %s: %s", field, out)
		}
	}
}
