package processors

import (
	"testing"
	"time"

	"github.com/username/portfoliotracker/backend/src/models"
	"github.com/username/portfoliotracker/backend/src/utils"
)

func nestedSaleMeta() SaleMeta {
	return SaleMeta{
		SaleTxID:     7,
		SaleDatetime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Asset:        "BTC",
		ProceedsUsd:  1000,
		CostBasisUsd: 700,
		BuyLots: []models.BuyLotRecord{{
			BuyTxID:      3,
			Asset:        "BTC",
			Quantity:     2,
			CostBasisUsd: 700,
			CashSpentUsd: 700,
			FundingDeposits: []models.Contribution{
				{DepositTxID: 1, AmountUsd: 500},
				{DepositTxID: 2, AmountUsd: 200},
			},
			FundingSells:        []models.FundingSell{{SaleTxID: 5, UsedProceedsUsd: 150}},
			SwappedFromAsset:    "SOL",
			SwappedFromQuantity: 4,
			SwappedFromBuyLots: []models.BuyLotRecord{{
				BuyTxID:         6,
				Asset:           "SOL",
				Quantity:        4,
				CostBasisUsd:    300,
				FundingDeposits: []models.Contribution{{DepositTxID: 1, AmountUsd: 300}},
			}},
		}},
	}
}

// Splitting metadata must conserve every numeric field, recursively: the used
// and remaining halves always add back up to the original.
func TestSplitMetadataConservation(t *testing.T) {
	original := nestedSaleMeta()
	usedMeta, remainingMeta := SplitMetadata(original, 0.3)
	used := usedMeta.(SaleMeta)
	remaining := remainingMeta.(SaleMeta)

	check := func(name string, u, r, total float64) {
		t.Helper()
		if !utils.ApproxEqual(u+r, total) {
			t.Errorf("%s not conserved: %g + %g != %g", name, u, r, total)
		}
	}

	check("proceeds", used.ProceedsUsd, remaining.ProceedsUsd, original.ProceedsUsd)
	check("costBasis", used.CostBasisUsd, remaining.CostBasisUsd, original.CostBasisUsd)

	ub, rb, ob := used.BuyLots[0], remaining.BuyLots[0], original.BuyLots[0]
	check("buyLot.quantity", ub.Quantity, rb.Quantity, ob.Quantity)
	check("buyLot.costBasis", ub.CostBasisUsd, rb.CostBasisUsd, ob.CostBasisUsd)
	check("buyLot.cashSpent", ub.CashSpentUsd, rb.CashSpentUsd, ob.CashSpentUsd)
	check("buyLot.swappedFromQuantity", ub.SwappedFromQuantity, rb.SwappedFromQuantity, ob.SwappedFromQuantity)
	for i := range ob.FundingDeposits {
		check("fundingDeposit.amount", ub.FundingDeposits[i].AmountUsd,
			rb.FundingDeposits[i].AmountUsd, ob.FundingDeposits[i].AmountUsd)
	}
	check("fundingSell.usedProceeds", ub.FundingSells[0].UsedProceedsUsd,
		rb.FundingSells[0].UsedProceedsUsd, ob.FundingSells[0].UsedProceedsUsd)

	un, rn, on := ub.SwappedFromBuyLots[0], rb.SwappedFromBuyLots[0], ob.SwappedFromBuyLots[0]
	check("nested.quantity", un.Quantity, rn.Quantity, on.Quantity)
	check("nested.costBasis", un.CostBasisUsd, rn.CostBasisUsd, on.CostBasisUsd)
	check("nested.fundingDeposit", un.FundingDeposits[0].AmountUsd,
		rn.FundingDeposits[0].AmountUsd, on.FundingDeposits[0].AmountUsd)

	if un.BuyTxID != on.BuyTxID || used.SaleTxID != original.SaleTxID {
		t.Error("identity fields must survive splitting unchanged")
	}
}

func TestSplitMetadataVariants(t *testing.T) {
	usedMeta, remainingMeta := SplitMetadata(DepositMeta{Contributions: []models.Contribution{{AmountUsd: 80}}}, 0.25)
	if got := usedMeta.(DepositMeta).Contributions[0].AmountUsd; !utils.ApproxEqual(got, 20) {
		t.Errorf("deposit used contribution = %g, want 20", got)
	}
	if got := remainingMeta.(DepositMeta).Contributions[0].AmountUsd; !utils.ApproxEqual(got, 60) {
		t.Errorf("deposit remaining contribution = %g, want 60", got)
	}

	usedMeta, remainingMeta = SplitMetadata(AssetMeta{BuyLots: []models.BuyLotRecord{{Quantity: 8, CostBasisUsd: 400}}}, 0.5)
	if got := usedMeta.(AssetMeta).BuyLots[0].CostBasisUsd; !utils.ApproxEqual(got, 200) {
		t.Errorf("asset used cost basis = %g, want 200", got)
	}
	if got := remainingMeta.(AssetMeta).BuyLots[0].Quantity; !utils.ApproxEqual(got, 4) {
		t.Errorf("asset remaining quantity = %g, want 4", got)
	}

	if u, r := SplitMetadata(nil, 0.5); u != nil || r != nil {
		t.Error("nil metadata must split into nil halves")
	}
}

func TestMetadataContributions(t *testing.T) {
	sale := nestedSaleMeta()
	contributions := metadataContributions(sale)
	if len(contributions) != 2 {
		t.Fatalf("expected 2 flattened contributions, got %d", len(contributions))
	}
	var total float64
	for _, c := range contributions {
		total += c.AmountUsd
	}
	if !utils.ApproxEqual(total, 700) {
		t.Errorf("flattened contribution total = %g, want 700", total)
	}

	deposit := DepositMeta{Contributions: []models.Contribution{{DepositTxID: 9, AmountUsd: 42}}}
	if got := metadataContributions(deposit); len(got) != 1 || got[0].DepositTxID != 9 {
		t.Errorf("deposit contributions = %+v", got)
	}
}

func TestLotQueueTotals(t *testing.T) {
	q := NewLotQueue("BTC")
	if !utils.IsZero(q.TotalQuantity()) || !utils.IsZero(q.TotalCostBasis()) {
		t.Error("empty queue should have zero totals")
	}
	q.Push(lotOn(1, 2, 100))
	q.Push(lotOn(2, 3, 600))
	if !utils.ApproxEqual(q.TotalQuantity(), 5) {
		t.Errorf("total quantity = %g, want 5", q.TotalQuantity())
	}
	if !utils.ApproxEqual(q.TotalCostBasis(), 700) {
		t.Errorf("total cost basis = %g, want 700", q.TotalCostBasis())
	}
	if got := q.Entries[1].UnitCost(); !utils.ApproxEqual(got, 200) {
		t.Errorf("unit cost = %g, want 200", got)
	}
}
