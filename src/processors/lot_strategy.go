package processors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/username/portfoliotracker/backend/src/utils"
)

// Strategy selects which open lots a consumption takes first.
type Strategy string

const (
	StrategyFIFO Strategy = "FIFO" // oldest acquisition first
	StrategyLIFO Strategy = "LIFO" // newest acquisition first
	StrategyHIFO Strategy = "HIFO" // highest unit cost first
	StrategyLOFO Strategy = "LOFO" // lowest unit cost first
)

// ParseStrategy validates a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToUpper(strings.TrimSpace(s))) {
	case StrategyFIFO:
		return StrategyFIFO, nil
	case StrategyLIFO:
		return StrategyLIFO, nil
	case StrategyHIFO:
		return StrategyHIFO, nil
	case StrategyLOFO:
		return StrategyLOFO, nil
	case "":
		return StrategyFIFO, nil
	default:
		return "", fmt.Errorf("unknown lot strategy %q (want FIFO, LIFO, HIFO or LOFO)", s)
	}
}

// StrategyOptions carries the independently configurable consumption orders
// for asset pools and the cash pool.
type StrategyOptions struct {
	AssetStrategy Strategy
	CashStrategy  Strategy
}

// sortForStrategy returns the entries in the strategy's consumption order.
// HIFO/LOFO ties are broken by ascending datetime; datetime ties keep input
// order (sort is stable, entries are pushed chronologically).
func sortForStrategy(entries []Lot, strategy Strategy) []Lot {
	ordered := make([]Lot, len(entries))
	copy(ordered, entries)
	switch strategy {
	case StrategyLIFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Datetime.After(ordered[j].Datetime)
		})
	case StrategyHIFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].UnitCost() != ordered[j].UnitCost() {
				return ordered[i].UnitCost() > ordered[j].UnitCost()
			}
			return ordered[i].Datetime.Before(ordered[j].Datetime)
		})
	case StrategyLOFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].UnitCost() != ordered[j].UnitCost() {
				return ordered[i].UnitCost() < ordered[j].UnitCost()
			}
			return ordered[i].Datetime.Before(ordered[j].Datetime)
		})
	default: // FIFO
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Datetime.Before(ordered[j].Datetime)
		})
	}
	return ordered
}

// RemoveFromLots consumes quantity units from the queue in strategy order and
// returns the removed lots together with their total cost basis. A lot larger
// than the remaining demand is split proportionally, metadata included, so
// that used + remaining conserve quantity and cost basis exactly.
//
// The queue cannot go negative: if less than quantity is available, everything
// present is removed. Callers are responsible for clamping demand to the
// balance beforehand (and warning about the shortfall).
func (q *LotQueue) RemoveFromLots(quantity float64, strategy Strategy) (removed []Lot, totalCostBasisUsd float64) {
	ordered := sortForStrategy(q.Entries, strategy)
	remaining := make([]Lot, 0, len(ordered))
	demand := quantity

	for _, lot := range ordered {
		if demand <= utils.Epsilon {
			remaining = append(remaining, lot)
			continue
		}
		if lot.Quantity <= demand+utils.Epsilon {
			removed = append(removed, lot)
			totalCostBasisUsd += lot.CostBasisUsd
			demand -= lot.Quantity
			continue
		}

		ratio := demand / lot.Quantity
		usedMeta, remainingMeta := SplitMetadata(lot.Meta, ratio)

		used := lot
		used.Quantity = demand
		used.CostBasisUsd = lot.CostBasisUsd * ratio
		used.Meta = usedMeta

		rest := lot
		rest.Quantity = lot.Quantity - used.Quantity
		rest.CostBasisUsd = lot.CostBasisUsd - used.CostBasisUsd
		rest.Meta = remainingMeta

		removed = append(removed, used)
		totalCostBasisUsd += used.CostBasisUsd
		remaining = append(remaining, rest)
		demand = 0
	}

	q.Entries = remaining
	return removed, totalCostBasisUsd
}
