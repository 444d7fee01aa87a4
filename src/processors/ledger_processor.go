package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/username/portfoliotracker/backend/src/logger"
	"github.com/username/portfoliotracker/backend/src/models"
	"github.com/username/portfoliotracker/backend/src/utils"
)

// RateLookup resolves a historical FX rate. It must already be warmed with
// every (pair, date) the calculation will ask for; an error aborts the whole
// run. Identical currencies always resolve to 1.0.
type RateLookup func(from, to string, date time.Time) (float64, error)

// clusterWindow groups transactions whose timestamps are close enough that
// exchange log ordering cannot be trusted. Within a cluster, deposits are
// applied before swaps and swaps before withdrawals, regardless of the raw
// timestamps, because exchanges sometimes log a withdrawal fractionally before
// the sale that funded it.
const clusterWindow = 5 * time.Minute

func typePriority(t models.TransactionType) int {
	switch t {
	case models.TxDeposit:
		return 0
	case models.TxSwap:
		return 1
	default:
		return 2
	}
}

// ledgerRun owns all mutable state of one calculation: the cash queue, one
// queue per asset, and the append-only sale side-table. Nothing here is shared
// between runs.
type ledgerRun struct {
	year  int
	opts  StrategyOptions
	rates RateLookup

	cashQueue    *LotQueue
	assetQueues  map[string]*LotQueue
	saleMetaByID map[int64]SaleMeta

	usdToRon float64
	events   []models.TaxableEvent
	warnings []string
}

func newLedgerRun(year int, usdToRon float64, opts StrategyOptions, rates RateLookup) *ledgerRun {
	return &ledgerRun{
		year:         year,
		opts:         opts,
		rates:        rates,
		cashQueue:    NewLotQueue("USD"),
		assetQueues:  make(map[string]*LotQueue),
		saleMetaByID: make(map[int64]SaleMeta),
		usdToRon:     usdToRon,
	}
}

func (run *ledgerRun) assetQueue(asset string) *LotQueue {
	q, ok := run.assetQueues[asset]
	if !ok {
		q = NewLotQueue(asset)
		run.assetQueues[asset] = q
	}
	return q
}

func (run *ledgerRun) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	run.warnings = append(run.warnings, msg)
	logger.L.Warn("Tax calculation warning", "warning", msg)
}

type orderedTx struct {
	tx   models.Transaction
	time time.Time
}

// orderTransactions sorts transactions chronologically, then re-orders each
// small time cluster by transaction-type priority (Deposit < Swap <
// Withdrawal) and id. Transactions with an unparseable datetime are dropped
// with a warning.
func (run *ledgerRun) orderTransactions(txs []models.Transaction) []orderedTx {
	ordered := make([]orderedTx, 0, len(txs))
	for _, tx := range txs {
		t, err := tx.Time()
		if err != nil {
			run.warnf("skipping transaction %d: %v", tx.ID, err)
			continue
		}
		ordered = append(ordered, orderedTx{tx: tx, time: t})
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].time.Equal(ordered[j].time) {
			return ordered[i].time.Before(ordered[j].time)
		}
		return ordered[i].tx.ID < ordered[j].tx.ID
	})

	for start := 0; start < len(ordered); {
		end := start + 1
		for end < len(ordered) && ordered[end].time.Sub(ordered[start].time) <= clusterWindow {
			end++
		}
		cluster := ordered[start:end]
		sort.SliceStable(cluster, func(i, j int) bool {
			pi, pj := typePriority(cluster[i].tx.Type), typePriority(cluster[j].tx.Type)
			if pi != pj {
				return pi < pj
			}
			return cluster[i].tx.ID < cluster[j].tx.ID
		})
		start = end
	}

	return ordered
}

// process applies one transaction to the ledger state. Only a missing FX rate
// is fatal; every other anomaly is clamped or skipped with a warning.
func (run *ledgerRun) process(o orderedTx) error {
	tx, t := o.tx, o.time
	switch tx.Type {
	case models.TxDeposit:
		return run.processDeposit(tx, t)
	case models.TxSwap:
		return run.processSwap(tx, t)
	case models.TxWithdrawal:
		run.processWithdrawal(tx, t)
		return nil
	default:
		run.warnf("skipping transaction %d: unknown type %q", tx.ID, tx.Type)
		return nil
	}
}

// processDeposit handles fiat -> stablecoin: a new cash lot worth exactly the
// received stablecoin quantity, with the deposit currency and its historical
// FX rate recorded for audit.
func (run *ledgerRun) processDeposit(tx models.Transaction, t time.Time) error {
	if !models.IsStablecoin(tx.ToAsset) {
		run.warnf("skipping deposit %d: received asset %q is not a stablecoin", tx.ID, tx.ToAsset)
		return nil
	}
	amountUsd := tx.ToQuantity
	if amountUsd <= utils.Epsilon {
		run.warnf("skipping deposit %d: non-positive amount", tx.ID)
		return nil
	}

	currency := tx.FromAsset
	if currency == "" {
		currency = "USD"
	}
	fxRate, err := run.rates(currency, "USD", t)
	if err != nil {
		return fmt.Errorf("deposit %d: %w", tx.ID, err)
	}

	run.cashQueue.Push(Lot{
		SourceTxID:   tx.ID,
		Quantity:     amountUsd,
		CostBasisUsd: amountUsd,
		Datetime:     t,
		Label:        "deposit",
		Meta: DepositMeta{Contributions: []models.Contribution{{
			DepositTxID:     tx.ID,
			DepositDatetime: t,
			DepositCurrency: currency,
			AmountUsd:       amountUsd,
			FxRateToUsd:     fxRate,
		}}},
	})
	logger.L.Debug("Deposit processed", "txID", tx.ID, "amountUsd", amountUsd, "currency", currency)
	return nil
}

func (run *ledgerRun) processSwap(tx models.Transaction, t time.Time) error {
	if tx.FromAsset == "" || tx.ToAsset == "" || tx.FromQuantity <= 0 || tx.ToQuantity <= 0 {
		run.warnf("skipping swap %d: missing leg (from %q %g to %q %g)",
			tx.ID, tx.FromAsset, tx.FromQuantity, tx.ToAsset, tx.ToQuantity)
		return nil
	}

	fromStable := models.IsStablecoin(tx.FromAsset)
	toStable := models.IsStablecoin(tx.ToAsset)
	switch {
	case fromStable && toStable:
		run.warnf("skipping swap %d: stablecoin-to-stablecoin (%s -> %s) carries no gain or loss",
			tx.ID, tx.FromAsset, tx.ToAsset)
		return nil
	case fromStable:
		run.processBuy(tx, t)
	case toStable:
		run.processSell(tx, t)
	default:
		run.processCryptoSwap(tx, t)
	}
	return nil
}

// processBuy handles stablecoin -> crypto. Cash spent is clamped to the cash
// balance; the acquired quantity is scaled by the same ratio rather than
// fabricating cash that was never deposited.
func (run *ledgerRun) processBuy(tx models.Transaction, t time.Time) {
	price := tx.FromPriceUsd
	if price == 0 {
		price = 1.0 // stablecoins are valued at exactly 1 USD
	}
	spendUsd := tx.FromQuantity * price
	acquired := tx.ToQuantity

	cashBalance := run.cashQueue.TotalQuantity()
	if utils.IsZero(cashBalance) {
		run.warnf("skipping buy %d: no cash balance to spend (wanted %.2f USD)", tx.ID, spendUsd)
		return
	}
	if spendUsd > cashBalance+utils.Epsilon {
		ratio := cashBalance / spendUsd
		run.warnf("buy %d: wanted %.2f USD but only %.2f available; scaling acquired %s from %g to %g",
			tx.ID, spendUsd, cashBalance, tx.ToAsset, acquired, acquired*ratio)
		acquired *= ratio
		spendUsd = cashBalance
	}

	removed, costBasis := run.cashQueue.RemoveFromLots(spendUsd, run.opts.CashStrategy)

	record := models.BuyLotRecord{
		BuyTxID:         tx.ID,
		BuyDatetime:     t,
		Asset:           tx.ToAsset,
		Quantity:        acquired,
		CostBasisUsd:    costBasis,
		CashSpentUsd:    spendUsd,
		FundingDeposits: lotContributions(removed),
		FundingSells:    lotFundingSells(removed),
	}

	run.assetQueue(tx.ToAsset).Push(Lot{
		SourceTxID:   tx.ID,
		Quantity:     acquired,
		CostBasisUsd: costBasis,
		Datetime:     t,
		Label:        "buy",
		Meta:         AssetMeta{BuyLots: []models.BuyLotRecord{record}},
	})
	logger.L.Debug("Buy processed", "txID", tx.ID, "asset", tx.ToAsset,
		"quantity", acquired, "spendUsd", spendUsd, "costBasisUsd", costBasis)
}

// processSell handles crypto -> stablecoin. The sale quantity is clamped to
// holdings; proceeds scale with it. The SaleMeta is attached to the new cash
// lot and cached in the side-table for later provenance expansion.
func (run *ledgerRun) processSell(tx models.Transaction, t time.Time) {
	sellQty := tx.FromQuantity
	proceeds := tx.ToQuantity // stablecoin units, 1.0 USD each

	queue := run.assetQueue(tx.FromAsset)
	available := queue.TotalQuantity()
	if utils.IsZero(available) {
		run.warnf("skipping sell %d: no %s holdings to sell (wanted %g)", tx.ID, tx.FromAsset, sellQty)
		return
	}
	if sellQty > available+utils.Epsilon {
		ratio := available / sellQty
		run.warnf("sell %d: wanted %g %s but only %g held; scaling proceeds from %.2f to %.2f USD",
			tx.ID, sellQty, tx.FromAsset, available, proceeds, proceeds*ratio)
		proceeds *= ratio
		sellQty = available
	}

	removed, costBasis := queue.RemoveFromLots(sellQty, run.opts.AssetStrategy)

	meta := SaleMeta{
		SaleTxID:     tx.ID,
		SaleDatetime: t,
		Asset:        tx.FromAsset,
		ProceedsUsd:  proceeds,
		CostBasisUsd: costBasis,
		BuyLots:      lotBuyLots(removed),
	}
	run.saleMetaByID[tx.ID] = meta

	run.cashQueue.Push(Lot{
		SourceTxID:   tx.ID,
		Quantity:     proceeds,
		CostBasisUsd: costBasis,
		Datetime:     t,
		Label:        "sale",
		Meta:         meta,
	})
	logger.L.Debug("Sell processed", "txID", tx.ID, "asset", tx.FromAsset,
		"quantity", sellQty, "proceedsUsd", proceeds, "costBasisUsd", costBasis)
}

// processCryptoSwap handles crypto -> crypto: cost basis moves directly from
// the source queue to a new destination lot, no cash involved. The consumed
// buy lots are kept on the record so the original pre-swap purchase stays
// visible in traces.
func (run *ledgerRun) processCryptoSwap(tx models.Transaction, t time.Time) {
	swapQty := tx.FromQuantity
	acquired := tx.ToQuantity

	queue := run.assetQueue(tx.FromAsset)
	available := queue.TotalQuantity()
	if utils.IsZero(available) {
		run.warnf("skipping swap %d: no %s holdings to swap (wanted %g)", tx.ID, tx.FromAsset, swapQty)
		return
	}
	if swapQty > available+utils.Epsilon {
		ratio := available / swapQty
		run.warnf("swap %d: wanted %g %s but only %g held; scaling acquired %s from %g to %g",
			tx.ID, swapQty, tx.FromAsset, available, tx.ToAsset, acquired, acquired*ratio)
		acquired *= ratio
		swapQty = available
	}

	removed, costBasis := queue.RemoveFromLots(swapQty, run.opts.AssetStrategy)
	sourceBuyLots := lotBuyLots(removed)

	record := models.BuyLotRecord{
		BuyTxID:             tx.ID,
		BuyDatetime:         t,
		Asset:               tx.ToAsset,
		Quantity:            acquired,
		CostBasisUsd:        costBasis,
		FundingDeposits:     flattenBuyLotDeposits(sourceBuyLots),
		FundingSells:        flattenBuyLotSells(sourceBuyLots),
		SwappedFromAsset:    tx.FromAsset,
		SwappedFromQuantity: swapQty,
		SwappedFromBuyLots:  sourceBuyLots,
	}

	run.assetQueue(tx.ToAsset).Push(Lot{
		SourceTxID:   tx.ID,
		Quantity:     acquired,
		CostBasisUsd: costBasis,
		Datetime:     t,
		Label:        "swap",
		Meta:         AssetMeta{BuyLots: []models.BuyLotRecord{record}},
	})
	logger.L.Debug("Crypto swap processed", "txID", tx.ID, "from", tx.FromAsset,
		"to", tx.ToAsset, "quantity", acquired, "costBasisUsd", costBasis)
}

// processWithdrawal handles stablecoin -> fiat. An unmatched withdrawal (empty
// cash queue) is not an error: the event is recorded with zero cost basis and
// the full amount becomes gain, with a warning. Withdrawals outside the
// requested year still consume cash so queue state stays correct.
func (run *ledgerRun) processWithdrawal(tx models.Transaction, t time.Time) {
	if !models.IsStablecoin(tx.FromAsset) {
		run.warnf("skipping withdrawal %d: withdrawn asset %q is not a stablecoin", tx.ID, tx.FromAsset)
		return
	}
	amountUsd := tx.FromQuantity
	if amountUsd <= utils.Epsilon {
		run.warnf("skipping withdrawal %d: non-positive amount", tx.ID)
		return
	}

	var removed []Lot
	var costBasis float64
	cashBalance := run.cashQueue.TotalQuantity()
	switch {
	case utils.IsZero(cashBalance):
		run.warnf("withdrawal %d: no cash lots to match %.2f USD; full amount is taxable gain", tx.ID, amountUsd)
	case cashBalance+utils.Epsilon < amountUsd:
		run.warnf("withdrawal %d: only %.2f of %.2f USD matched by cash lots; unmatched portion is taxable gain",
			tx.ID, cashBalance, amountUsd)
		removed, costBasis = run.cashQueue.RemoveFromLots(cashBalance, run.opts.CashStrategy)
	default:
		removed, costBasis = run.cashQueue.RemoveFromLots(amountUsd, run.opts.CashStrategy)
	}

	if t.Year() != run.year {
		logger.L.Debug("Withdrawal outside tax year, state updated only", "txID", tx.ID, "year", t.Year())
		return
	}

	event := models.TaxableEvent{
		TransactionID: tx.ID,
		Datetime:      t,
		FiatAmountUsd: amountUsd,
		FiatAmountRon: amountUsd * run.usdToRon,
		CostBasisUsd:  costBasis,
		CostBasisRon:  costBasis * run.usdToRon,
		GainLossUsd:   amountUsd - costBasis,
		GainLossRon:   (amountUsd - costBasis) * run.usdToRon,
		DepositTrace:  mergeContributions(lotContributions(removed)),
		SaleTrace:     saleTraceOf(removed),
	}
	event.SaleTraceDeep = run.buildDeepTrace(event.SaleTrace)
	event.SourceTrace = buildSourceTrace(event.SaleTraceDeep)
	run.events = append(run.events, event)
	logger.L.Debug("Taxable event recorded", "txID", tx.ID,
		"fiatAmountUsd", amountUsd, "costBasisUsd", costBasis, "gainLossUsd", event.GainLossUsd)
}

// lotContributions gathers deposit contributions from consumed lots.
func lotContributions(lots []Lot) []models.Contribution {
	var out []models.Contribution
	for _, lot := range lots {
		out = append(out, metadataContributions(lot.Meta)...)
	}
	return out
}

// lotFundingSells records, for each consumed sale-backed cash lot, which sale
// it came from and how much of that sale's proceeds were just spent.
func lotFundingSells(lots []Lot) []models.FundingSell {
	var out []models.FundingSell
	for _, lot := range lots {
		if m, ok := lot.Meta.(SaleMeta); ok {
			out = append(out, models.FundingSell{
				SaleTxID:        m.SaleTxID,
				Asset:           m.Asset,
				UsedProceedsUsd: lot.Quantity,
			})
		}
	}
	return out
}

// lotBuyLots flattens the buy-lot records of consumed asset lots.
func lotBuyLots(lots []Lot) []models.BuyLotRecord {
	var out []models.BuyLotRecord
	for _, lot := range lots {
		if m, ok := lot.Meta.(AssetMeta); ok {
			out = append(out, m.BuyLots...)
		}
	}
	return out
}

// saleTraceOf lists the sale portions among consumed cash lots: each consumed
// sale-backed lot carries the proportionally split SaleMeta of its sale.
func saleTraceOf(lots []Lot) []models.SaleTraceEntry {
	var out []models.SaleTraceEntry
	for _, lot := range lots {
		if m, ok := lot.Meta.(SaleMeta); ok {
			out = append(out, models.SaleTraceEntry{
				SaleTxID:     m.SaleTxID,
				SaleDatetime: m.SaleDatetime,
				Asset:        m.Asset,
				ProceedsUsd:  m.ProceedsUsd,
				CostBasisUsd: m.CostBasisUsd,
				BuyLots:      m.BuyLots,
			})
		}
	}
	return out
}

// mergeContributions aggregates contribution slices by deposit transaction,
// summing the USD portions, ordered by deposit datetime then id.
func mergeContributions(cs []models.Contribution) []models.Contribution {
	if len(cs) == 0 {
		return nil
	}
	byID := make(map[int64]models.Contribution)
	for _, c := range cs {
		if acc, ok := byID[c.DepositTxID]; ok {
			acc.AmountUsd += c.AmountUsd
			byID[c.DepositTxID] = acc
		} else {
			byID[c.DepositTxID] = c
		}
	}
	out := make([]models.Contribution, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepositDatetime.Equal(out[j].DepositDatetime) {
			return out[i].DepositDatetime.Before(out[j].DepositDatetime)
		}
		return out[i].DepositTxID < out[j].DepositTxID
	})
	return out
}

// remainingCash reports the unconsumed cash balance and its cost basis.
func (run *ledgerRun) remainingCash() (quantity, costBasis float64) {
	return run.cashQueue.TotalQuantity(), run.cashQueue.TotalCostBasis()
}
