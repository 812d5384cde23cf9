package models

// Requests for forecast HTTP endpoints. Defined in domain for consistency and reuse.
// Symbols allow 23 characters so a 20 character base can carry a ".NS" or ".BO" suffix;
// the use cases check the normalized length.

type PredictRequest struct {
	Symbol    string   `query:"symbol" json:"symbol" validate:"required,max=23"`
	DaysAhead int      `query:"days_ahead" json:"days_ahead" default:"5" validate:"gte=1,lte=30"`
	Models    []string `query:"models" json:"models" validate:"omitempty,dive,oneof=sequence forest boosted"`
}

type CalibrateRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=23"`
}

type SymbolRequest struct {
	Symbol string `param:"symbol" validate:"required,max=23"`
}

type TrainRequest struct {
	Symbol string `json:"symbol" validate:"required,max=23"`
}

type HistoryRequest struct {
	Symbol string `param:"symbol" validate:"required,max=23"`
	Days   int    `query:"days" default:"90" validate:"gte=1,lte=1825"`
}

type SearchStockRequest struct {
	Input string `json:"input" query:"q" validate:"required,max=64"`
}

type TopStocksRequest struct {
	Category   string `query:"category" default:"safe" validate:"oneof=safe volatile highly_volatile"`
	Count      int    `query:"count" default:"5" validate:"gte=1,lte=10"`
	TimePeriod int    `query:"time_period" default:"5" validate:"gte=1,lte=30"`
}
