package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/catalog"
	"StockCast/internal/services/recommend"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/util"
)

type Forecaster interface {
	Predict(ctx context.Context, symbol string, horizon int, kinds ...models.ModelKind) (*models.PredictionResult, error)
}

type StocksConfig struct {
	Workers      int
	FetchTimeout time.Duration
}

// Stocks serves catalog search and the per-category top stocks board.
type Stocks struct {
	catalog   *catalog.Catalog
	forecasts Forecaster
	history   domrepo.HistoryProvider
	l         *applogger.Logger
	cfg       StocksConfig
	now       func() time.Time
}

func NewStocks(c *catalog.Catalog, forecasts Forecaster, history domrepo.HistoryProvider, l *applogger.Logger, cfg StocksConfig) *Stocks {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Stocks{catalog: c, forecasts: forecasts, history: history, l: l, cfg: cfg, now: time.Now}
}

// Search resolves input against the catalog. A miss suggests the normalized input as a symbol.
func (uc *Stocks) Search(input string) models.StockSearchResult {
	if s, ok := uc.catalog.Search(input); ok {
		return models.StockSearchResult{Found: true, Symbol: s.Symbol, Name: s.Name, Sector: s.Sector}
	}
	res := models.StockSearchResult{}
	if sym, ok := util.NormalizeSymbol(input); ok {
		res.SuggestedSymbol = sym
	}
	return res
}

// Top forecasts the first count stocks of category over period trading days.
// Stocks that fail are logged and left out; the call fails only when every stock failed.
func (uc *Stocks) Top(ctx context.Context, category models.StockCategory, count, period int) (*models.TopStocks, error) {
	stocks, ok := uc.catalog.Category(category)
	if !ok {
		category = models.CategorySafe
		stocks, _ = uc.catalog.Category(category)
	}
	if count > 0 && count < len(stocks) {
		stocks = stocks[:count]
	}

	type slot struct {
		top models.TopStock
		err error
	}
	out := make([]slot, len(stocks))
	sem := make(chan struct{}, uc.cfg.Workers)
	var wg sync.WaitGroup
	for i, s := range stocks {
		wg.Add(1)
		go func(i int, s models.Stock) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out[i].err = ctx.Err()
				return
			}
			defer func() { <-sem }()
			out[i].top, out[i].err = uc.topStock(ctx, s, period)
		}(i, s)
	}
	wg.Wait()

	res := &models.TopStocks{Category: category, TimePeriod: period, Stocks: []models.TopStock{}, GeneratedAt: uc.now().UTC()}
	var lastErr error
	for i, r := range out {
		if r.err != nil {
			lastErr = r.err
			uc.l.Warn("top stock skipped", applogger.String("symbol", stocks[i].Symbol), applogger.Error(r.err))
			continue
		}
		res.Stocks = append(res.Stocks, r.top)
	}
	if len(res.Stocks) == 0 && lastErr != nil {
		return nil, lastErr
	}
	res.Count = len(res.Stocks)
	return res, nil
}

func (uc *Stocks) topStock(ctx context.Context, s models.Stock, period int) (models.TopStock, error) {
	pred, err := uc.forecasts.Predict(ctx, s.Symbol, period)
	if err != nil {
		return models.TopStock{}, err
	}
	final := pred.FinalPrice()
	return models.TopStock{
		Symbol:          s.Symbol,
		Name:            s.Name,
		Sector:          s.Sector,
		CurrentPrice:    pred.CurrentPrice,
		PredictedPrice:  final,
		PredictedChange: pred.PercentChange,
		PriceChange:     uc.pastChange(ctx, s.Symbol, period, pred.CurrentPrice),
		Confidence:      pred.Confidence,
		Recommendation:  pred.Recommendation,
	}, nil
}

// pastChange is the percent move over the last period bars, or 0 when history is short.
func (uc *Stocks) pastChange(ctx context.Context, symbol string, period int, current float64) float64 {
	// two calendar days per trading day covers weekends and holidays
	bars, err := fetchHistory(ctx, uc.history, symbol, 2*period+10, uc.cfg.FetchTimeout)
	if err != nil || len(bars) <= period {
		return 0
	}
	pct := recommend.PercentChange(bars[len(bars)-1-period].Close, current)
	if math.IsNaN(pct) {
		return 0
	}
	return pct
}
