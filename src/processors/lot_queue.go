package processors

import (
	"fmt"
	"time"

	"github.com/username/portfoliotracker/backend/src/models"
)

// Lot is a quantity of one pool's asset (or USD-equivalent cash) with the cost
// basis originally paid for it and the provenance metadata describing how it
// was funded. Quantity and CostBasisUsd are never negative.
type Lot struct {
	SourceTxID   int64
	Quantity     float64
	CostBasisUsd float64
	Datetime     time.Time
	Label        string
	Meta         LotMetadata
}

// UnitCost returns the per-unit cost basis, 0 for empty lots.
func (l Lot) UnitCost() float64 {
	if l.Quantity > 0 {
		return l.CostBasisUsd / l.Quantity
	}
	return 0
}

// LotQueue holds the open lots of one pool. The sum of entry quantities is the
// pool's tracked balance at all times.
type LotQueue struct {
	PoolID  string
	Entries []Lot
}

func NewLotQueue(poolID string) *LotQueue {
	return &LotQueue{PoolID: poolID}
}

func (q *LotQueue) Push(lot Lot) {
	q.Entries = append(q.Entries, lot)
}

// TotalQuantity returns the pool balance.
func (q *LotQueue) TotalQuantity() float64 {
	var total float64
	for _, lot := range q.Entries {
		total += lot.Quantity
	}
	return total
}

// TotalCostBasis returns the summed cost basis of all open lots.
func (q *LotQueue) TotalCostBasis() float64 {
	var total float64
	for _, lot := range q.Entries {
		total += lot.CostBasisUsd
	}
	return total
}

// LotMetadata is the closed set of provenance payloads a lot can carry:
// DepositMeta for cash from fiat deposits, SaleMeta for cash from
// crypto-to-stablecoin sales, AssetMeta for asset lots from buys and swaps.
type LotMetadata interface {
	lotMetadata()
}

// DepositMeta traces a cash lot back to the fiat deposits that created it.
type DepositMeta struct {
	Contributions []models.Contribution
}

// SaleMeta traces a cash lot back to the sale that produced it and, through
// BuyLots, to everything that funded the sold asset. The full SaleMeta created
// at sale time is also kept in the run's side-table so later withdrawals can
// expand it after the cash lot itself is gone.
type SaleMeta struct {
	SaleTxID     int64
	SaleDatetime time.Time
	Asset        string
	ProceedsUsd  float64
	CostBasisUsd float64
	BuyLots      []models.BuyLotRecord
}

// AssetMeta traces an asset lot back to the buy (or crypto-to-crypto swap)
// that acquired it.
type AssetMeta struct {
	BuyLots []models.BuyLotRecord
}

func (DepositMeta) lotMetadata() {}
func (SaleMeta) lotMetadata()    {}
func (AssetMeta) lotMetadata()   {}

// SplitMetadata splits metadata at ratio r into the portion consumed and the
// portion left behind, mirroring the split of the owning lot. Every numeric
// field is divided so that used + remaining reproduces the original exactly:
// the remaining side is always computed by subtraction, never by scaling.
func SplitMetadata(meta LotMetadata, r float64) (used, remaining LotMetadata) {
	switch m := meta.(type) {
	case nil:
		return nil, nil
	case DepositMeta:
		u, rem := splitContributions(m.Contributions, r)
		return DepositMeta{Contributions: u}, DepositMeta{Contributions: rem}
	case SaleMeta:
		u, rem := m, m
		u.ProceedsUsd = m.ProceedsUsd * r
		rem.ProceedsUsd = m.ProceedsUsd - u.ProceedsUsd
		u.CostBasisUsd = m.CostBasisUsd * r
		rem.CostBasisUsd = m.CostBasisUsd - u.CostBasisUsd
		u.BuyLots, rem.BuyLots = splitBuyLots(m.BuyLots, r)
		return u, rem
	case AssetMeta:
		u, rem := splitBuyLots(m.BuyLots, r)
		return AssetMeta{BuyLots: u}, AssetMeta{BuyLots: rem}
	default:
		// The union above is closed; a new variant must be handled here.
		panic(fmt.Sprintf("unhandled lot metadata type %T", meta))
	}
}

func splitContributions(cs []models.Contribution, r float64) (used, remaining []models.Contribution) {
	if len(cs) == 0 {
		return nil, nil
	}
	used = make([]models.Contribution, len(cs))
	remaining = make([]models.Contribution, len(cs))
	for i, c := range cs {
		u, rem := c, c
		u.AmountUsd = c.AmountUsd * r
		rem.AmountUsd = c.AmountUsd - u.AmountUsd
		used[i], remaining[i] = u, rem
	}
	return used, remaining
}

func splitFundingSells(fs []models.FundingSell, r float64) (used, remaining []models.FundingSell) {
	if len(fs) == 0 {
		return nil, nil
	}
	used = make([]models.FundingSell, len(fs))
	remaining = make([]models.FundingSell, len(fs))
	for i, f := range fs {
		u, rem := f, f
		u.UsedProceedsUsd = f.UsedProceedsUsd * r
		rem.UsedProceedsUsd = f.UsedProceedsUsd - u.UsedProceedsUsd
		used[i], remaining[i] = u, rem
	}
	return used, remaining
}

func splitBuyLot(b models.BuyLotRecord, r float64) (used, remaining models.BuyLotRecord) {
	used, remaining = b, b
	used.Quantity = b.Quantity * r
	remaining.Quantity = b.Quantity - used.Quantity
	used.CostBasisUsd = b.CostBasisUsd * r
	remaining.CostBasisUsd = b.CostBasisUsd - used.CostBasisUsd
	used.CashSpentUsd = b.CashSpentUsd * r
	remaining.CashSpentUsd = b.CashSpentUsd - used.CashSpentUsd
	used.FundingDeposits, remaining.FundingDeposits = splitContributions(b.FundingDeposits, r)
	used.FundingSells, remaining.FundingSells = splitFundingSells(b.FundingSells, r)
	used.SwappedFromQuantity = b.SwappedFromQuantity * r
	remaining.SwappedFromQuantity = b.SwappedFromQuantity - used.SwappedFromQuantity
	used.SwappedFromBuyLots, remaining.SwappedFromBuyLots = splitBuyLots(b.SwappedFromBuyLots, r)
	return used, remaining
}

func splitBuyLots(bs []models.BuyLotRecord, r float64) (used, remaining []models.BuyLotRecord) {
	if len(bs) == 0 {
		return nil, nil
	}
	used = make([]models.BuyLotRecord, len(bs))
	remaining = make([]models.BuyLotRecord, len(bs))
	for i, b := range bs {
		used[i], remaining[i] = splitBuyLot(b, r)
	}
	return used, remaining
}

// metadataContributions returns the deposit contributions reachable from a
// lot's metadata. For sale- and asset-backed lots this flattens the nested buy
// lots' funding deposits, already scaled by any earlier splits.
func metadataContributions(meta LotMetadata) []models.Contribution {
	switch m := meta.(type) {
	case DepositMeta:
		return m.Contributions
	case SaleMeta:
		return flattenBuyLotDeposits(m.BuyLots)
	case AssetMeta:
		return flattenBuyLotDeposits(m.BuyLots)
	}
	return nil
}

func flattenBuyLotDeposits(bs []models.BuyLotRecord) []models.Contribution {
	var out []models.Contribution
	for _, b := range bs {
		out = append(out, b.FundingDeposits...)
	}
	return out
}

func flattenBuyLotSells(bs []models.BuyLotRecord) []models.FundingSell {
	var out []models.FundingSell
	for _, b := range bs {
		out = append(out, b.FundingSells...)
	}
	return out
}
