package models

import "time"

// StockCategory groups catalog entries by how much their price tends to move.
type StockCategory string

const (
	CategorySafe           StockCategory = "safe"
	CategoryVolatile       StockCategory = "volatile"
	CategoryHighlyVolatile StockCategory = "highly_volatile"
)

// Stock is one catalog entry.
type Stock struct {
	Symbol   string        `json:"symbol" yaml:"symbol"`
	Name     string        `json:"name" yaml:"name"`
	Sector   string        `json:"sector" yaml:"sector"`
	Category StockCategory `json:"category" yaml:"-"`
	Keywords []string      `json:"-" yaml:"keywords"`
}

// StockSearchResult is a catalog match, or a suggested symbol when nothing matched.
type StockSearchResult struct {
	Found           bool   `json:"found"`
	Symbol          string `json:"symbol,omitempty"`
	Name            string `json:"name,omitempty"`
	Sector          string `json:"sector,omitempty"`
	SuggestedSymbol string `json:"suggested_symbol,omitempty"`
}

// TopStock is a catalog entry with its recent move and forecast.
type TopStock struct {
	Symbol          string         `json:"symbol"`
	Name            string         `json:"name"`
	Sector          string         `json:"sector"`
	CurrentPrice    float64        `json:"current_price"`
	PredictedPrice  float64        `json:"predicted_price"`
	PredictedChange float64        `json:"predicted_change"`
	PriceChange     float64        `json:"price_change"`
	Confidence      float64        `json:"confidence"`
	Recommendation  Recommendation `json:"recommendation"`
}

// TopStocks is the ranked result for one category.
type TopStocks struct {
	Category    StockCategory `json:"category"`
	TimePeriod  int           `json:"time_period"`
	Count       int           `json:"count"`
	Stocks      []TopStock    `json:"stocks"`
	GeneratedAt time.Time     `json:"generated_at"`
}
