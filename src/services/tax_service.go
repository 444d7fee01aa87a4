package services

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/portfoliotracker/backend/src/config"
	"github.com/username/portfoliotracker/backend/src/logger"
	"github.com/username/portfoliotracker/backend/src/models"
	"github.com/username/portfoliotracker/backend/src/processors"
)

const (
	ckTaxReport = "res_tax_report_y%d_a%s_c%s_r%g"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type taxServiceImpl struct {
	transactions TransactionSource
	calculator   processors.TaxCalculator
	rateStore    *processors.RateStore
	reportCache  *cache.Cache
}

func NewTaxService(
	transactions TransactionSource,
	calculator processors.TaxCalculator,
	rateStore *processors.RateStore,
	reportCache *cache.Cache,
) TaxService {
	return &taxServiceImpl{
		transactions: transactions,
		calculator:   calculator,
		rateStore:    rateStore,
		reportCache:  reportCache,
	}
}

func (s *taxServiceImpl) GetRomaniaTaxReport(params TaxReportParams) (*models.RomaniaTaxReport, error) {
	usdToRon, err := s.resolveUsdToRon(params)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf(ckTaxReport, params.Year, params.AssetStrategy, params.CashStrategy, usdToRon)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for tax report", "key", cacheKey)
		return cached.(*models.RomaniaTaxReport), nil
	}
	logger.L.Info("Cache miss for tax report, computing...", "year", params.Year,
		"assetStrategy", params.AssetStrategy, "cashStrategy", params.CashStrategy)

	txs, err := s.transactions()
	if err != nil {
		return nil, fmt.Errorf("error loading transactions for tax report: %w", err)
	}

	opts := processors.StrategyOptions{
		AssetStrategy: params.AssetStrategy,
		CashStrategy:  params.CashStrategy,
	}
	report, err := s.calculator.Calculate(txs, params.Year, usdToRon, opts, s.rateStore.Lookup())
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, report, DefaultCacheExpiration)
	return report, nil
}

// resolveUsdToRon picks the reporting conversion rate: request override first,
// then the configured default, then the warmed historical USD->RON rate for
// Dec 31 of the tax year. A rate that cannot be resolved aborts the request.
func (s *taxServiceImpl) resolveUsdToRon(params TaxReportParams) (float64, error) {
	if params.UsdToRonRate > 0 {
		return params.UsdToRonRate, nil
	}
	if config.Cfg != nil && config.Cfg.DefaultUsdToRonRate > 0 {
		return config.Cfg.DefaultUsdToRonRate, nil
	}
	yearEnd := time.Date(params.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	rate, err := s.rateStore.Rate("USD", "RON", yearEnd)
	if err != nil {
		return 0, fmt.Errorf("resolving USD->RON reporting rate for %d: %w", params.Year, err)
	}
	return rate, nil
}

func (s *taxServiceImpl) GetTransactions() ([]models.Transaction, error) {
	return s.transactions()
}

// InvalidateCache drops every cached report, forcing recalculation on the
// next request. Called after the transaction store changes.
func (s *taxServiceImpl) InvalidateCache() {
	s.reportCache.Flush()
	logger.L.Info("Invalidated tax report cache")
}
