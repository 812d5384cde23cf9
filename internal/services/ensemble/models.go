package ensemble

import (
	"context"
	"fmt"
	"math"

	"StockCast/internal/domain/models"
	domsvc "StockCast/internal/domain/service"
	"StockCast/internal/services/features"
)

// TreeFeatures is the scale-free input set of the tree models.
var TreeFeatures = []string{
	"price_change",
	"high_low_pct",
	"price_position",
	"price_sma_10_ratio",
	"price_sma_20_ratio",
	"price_sma_50_ratio",
	"price_sma_200_ratio",
	"rsi_14",
	"bb_position",
	"bb_width",
	"volume_ratio",
	"momentum_10",
	"price_change_lag_1",
	"price_change_lag_2",
	"price_change_lag_3",
	"price_change_lag_5",
	"log_return",
	"realized_vol_20",
}

// SequenceModel is an autoregressive model over daily log returns of the close window.
type SequenceModel struct {
	Coef      []float64
	Intercept float64
}

func (m *SequenceModel) Kind() models.ModelKind { return models.KindSequence }

// Forecast rolls the AR recursion forward horizon days from the last close.
func (m *SequenceModel) Forecast(_ context.Context, f models.Features, horizon int) ([]float64, error) {
	p := len(m.Coef)
	rets := features.LogReturns(f.Closes)
	if len(rets) < p {
		return nil, fmt.Errorf("sequence: need %d returns, have %d", p, len(rets))
	}
	hist := append([]float64(nil), rets[len(rets)-p:]...)
	price := f.LastClose()
	out := make([]float64, horizon)
	for d := 0; d < horizon; d++ {
		r := m.Intercept
		for j, c := range m.Coef {
			r += c * hist[len(hist)-1-j]
		}
		price *= math.Exp(r)
		out[d] = price
		hist = append(hist, r)
	}
	return out, nil
}

// ForestModel averages bagged regression trees predicting the next-day log return.
type ForestModel struct {
	Features []string
	Fill     []float64
	Trees    []Tree
}

func (m *ForestModel) Kind() models.ModelKind { return models.KindForest }

func (m *ForestModel) Forecast(_ context.Context, f models.Features, horizon int) ([]float64, error) {
	if len(m.Trees) == 0 {
		return nil, fmt.Errorf("forest: no trees")
	}
	x := row(f.Values, m.Features, m.Fill)
	r := 0.0
	for _, t := range m.Trees {
		r += t.Predict(x)
	}
	r /= float64(len(m.Trees))
	return compound(f.LastClose(), r, horizon), nil
}

// BoostedModel sums shrunken regression trees on top of a base return.
type BoostedModel struct {
	Features     []string
	Fill         []float64
	Base         float64
	LearningRate float64
	Trees        []Tree
}

func (m *BoostedModel) Kind() models.ModelKind { return models.KindBoosted }

func (m *BoostedModel) Forecast(_ context.Context, f models.Features, horizon int) ([]float64, error) {
	x := row(f.Values, m.Features, m.Fill)
	r := m.Base
	for _, t := range m.Trees {
		r += m.LearningRate * t.Predict(x)
	}
	return compound(f.LastClose(), r, horizon), nil
}

// compound projects a constant daily log return from price.
func compound(price, r float64, horizon int) []float64 {
	out := make([]float64, horizon)
	for d := range out {
		out[d] = price * math.Exp(r*float64(d+1))
	}
	return out
}

// row extracts names from fv, replacing undefined values with fill.
func row(fv models.FeatureVector, names []string, fill []float64) []float64 {
	x := make([]float64, len(names))
	for i, n := range names {
		if v, ok := fv.Get(n); ok {
			x[i] = v
		} else if i < len(fill) {
			x[i] = fill[i]
		}
	}
	return x
}

var (
	_ domsvc.Model = (*SequenceModel)(nil)
	_ domsvc.Model = (*ForestModel)(nil)
	_ domsvc.Model = (*BoostedModel)(nil)
)
