package processors

import (
	"math"
	"sort"

	"github.com/username/portfoliotracker/backend/src/models"
	"github.com/username/portfoliotracker/backend/src/utils"
)

// buildDeepTrace expands a withdrawal's immediate sale trace through the whole
// chain of funding sells: sales whose proceeds bought assets that were later
// sold again, recursively back to the first acquisitions.
//
// The expansion is a fixed-point worklist, not a recursion. wantedBySale
// tracks, per sale, the cumulative USD of that sale's proceeds requested so
// far, capped at the sale's actual total. Each time a sale's requested amount
// grows, only the delta ratio is pushed to the sale's upstream funding sells.
// A sale reached through two paths is therefore expanded once at the combined
// ratio instead of twice, which prevents double counting; the per-sale amounts
// are monotonically non-decreasing and bounded by the sale totals, so the
// worklist always drains.
func (run *ledgerRun) buildDeepTrace(saleTrace []models.SaleTraceEntry) []models.SaleTraceEntry {
	type workItem struct {
		saleID    int64
		amountUsd float64
	}

	wantedBySale := make(map[int64]float64)
	worklist := make([]workItem, 0, len(saleTrace))
	for _, entry := range saleTrace {
		worklist = append(worklist, workItem{saleID: entry.SaleTxID, amountUsd: entry.ProceedsUsd})
	}

	for len(worklist) > 0 {
		item := worklist[0]
		worklist = worklist[1:]

		meta, ok := run.saleMetaByID[item.saleID]
		if !ok || meta.ProceedsUsd <= utils.Epsilon {
			continue
		}

		previous := wantedBySale[item.saleID]
		wanted := math.Min(meta.ProceedsUsd, previous+item.amountUsd)
		delta := wanted - previous
		if delta <= utils.Epsilon {
			continue
		}
		wantedBySale[item.saleID] = wanted

		deltaRatio := delta / meta.ProceedsUsd
		for _, buyLot := range meta.BuyLots {
			for _, fs := range buyLot.FundingSells {
				worklist = append(worklist, workItem{
					saleID:    fs.SaleTxID,
					amountUsd: fs.UsedProceedsUsd * deltaRatio,
				})
			}
		}
	}

	out := make([]models.SaleTraceEntry, 0, len(wantedBySale))
	for saleID, wanted := range wantedBySale {
		meta := run.saleMetaByID[saleID]
		ratio := math.Min(1, wanted/meta.ProceedsUsd)
		out = append(out, scaleSaleMeta(meta, ratio))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SaleDatetime.Equal(out[j].SaleDatetime) {
			return out[i].SaleDatetime.Before(out[j].SaleDatetime)
		}
		return out[i].SaleTxID < out[j].SaleTxID
	})
	return out
}

// scaleSaleMeta materializes the included portion of a sale: every numeric
// field, down through nested buy lots, contributions and funding sells, is
// scaled by the same ratio.
func scaleSaleMeta(meta SaleMeta, ratio float64) models.SaleTraceEntry {
	scaledBuyLots, _ := splitBuyLots(meta.BuyLots, ratio)
	return models.SaleTraceEntry{
		SaleTxID:     meta.SaleTxID,
		SaleDatetime: meta.SaleDatetime,
		Asset:        meta.Asset,
		ProceedsUsd:  meta.ProceedsUsd * ratio,
		CostBasisUsd: meta.CostBasisUsd * ratio,
		BuyLots:      scaledBuyLots,
	}
}

// buildSourceTrace reduces the deep trace to the actual buy transactions that
// ultimately back the withdrawal: deduplicated by buy transaction (summing the
// scaled portions reached through different paths) and sorted chronologically.
// For crypto-to-crypto swap lots the original pre-swap buy lots are included
// as well, at their already-consumed scale, so a half-swapped purchase shows
// up as half.
func buildSourceTrace(deep []models.SaleTraceEntry) []models.SourceTraceEntry {
	byBuyTx := make(map[int64]*models.SourceTraceEntry)

	var visit func(lots []models.BuyLotRecord)
	visit = func(lots []models.BuyLotRecord) {
		for _, lot := range lots {
			entry, ok := byBuyTx[lot.BuyTxID]
			if !ok {
				entry = &models.SourceTraceEntry{
					BuyTxID:          lot.BuyTxID,
					BuyDatetime:      lot.BuyDatetime,
					Asset:            lot.Asset,
					SwappedFromAsset: lot.SwappedFromAsset,
				}
				byBuyTx[lot.BuyTxID] = entry
			}
			entry.Quantity += lot.Quantity
			entry.CostBasisUsd += lot.CostBasisUsd
			if len(lot.SwappedFromBuyLots) > 0 {
				visit(lot.SwappedFromBuyLots)
			}
		}
	}
	for _, sale := range deep {
		visit(sale.BuyLots)
	}

	out := make([]models.SourceTraceEntry, 0, len(byBuyTx))
	for _, entry := range byBuyTx {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BuyDatetime.Equal(out[j].BuyDatetime) {
			return out[i].BuyDatetime.Before(out[j].BuyDatetime)
		}
		return out[i].BuyTxID < out[j].BuyTxID
	})
	return out
}
