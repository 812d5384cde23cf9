package ensemble

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/features"
	applogger "StockCast/pkg/logger"
)

const minTrainingSamples = 30

// ArtifactSaver persists trained artifacts.
type ArtifactSaver interface {
	Save(a *Artifact) error
}

// TrainerConfig holds fitting hyperparameters. Seed makes bagging reproducible.
type TrainerConfig struct {
	Seed         int64
	AROrder      int
	Ridge        float64
	ForestTrees  int
	ForestDepth  int
	BoostRounds  int
	BoostDepth   int
	LearningRate float64
	MinLeaf      int
}

func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Seed:         42,
		AROrder:      5,
		Ridge:        1e-4,
		ForestTrees:  50,
		ForestDepth:  5,
		BoostRounds:  60,
		BoostDepth:   2,
		LearningRate: 0.1,
		MinLeaf:      5,
	}
}

// Trainer fits every local model kind for a symbol.
type Trainer struct {
	builder *features.Builder
	saver   ArtifactSaver
	cfg     TrainerConfig
	l       *applogger.Logger
	now     func() time.Time
}

func NewTrainer(builder *features.Builder, saver ArtifactSaver, cfg TrainerConfig, l *applogger.Logger) *Trainer {
	return &Trainer{builder: builder, saver: saver, cfg: cfg, l: l, now: time.Now}
}

// Train fits and saves sequence, forest and boosted artifacts from bars.
func (t *Trainer) Train(ctx context.Context, symbol string, bars []models.PriceBar) ([]*Artifact, error) {
	x, y, fill, err := t.dataset(symbol, bars)
	if err != nil {
		return nil, err
	}
	rets := features.LogReturns(models.Closes(bars))
	now := t.now().UTC()
	rng := rand.New(rand.NewSource(t.cfg.Seed ^ symbolSeed(symbol)))

	seq := t.fitSequence(rets)
	forest := t.fitForest(x, y, fill, rng)
	boosted := t.fitBoosted(x, y, fill)

	arts := []*Artifact{seq, forest, boosted}
	for _, a := range arts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.Symbol = symbol
		a.TrainedAt = now
		if err := t.saver.Save(a); err != nil {
			return nil, fmt.Errorf("save %s: %w", a.Kind, err)
		}
	}
	if t.l != nil {
		t.l.Info("models trained",
			applogger.String("symbol", symbol),
			applogger.Int("samples", len(y)),
			applogger.Int("bars", len(bars)),
		)
	}
	return arts, nil
}

// dataset pairs the features at each bar with the next bar's log return.
// Undefined features are replaced by their column mean, returned as fill.
func (t *Trainer) dataset(symbol string, bars []models.PriceBar) ([][]float64, []float64, []float64, error) {
	need := t.builder.RequiredBars()
	if len(bars)-need < minTrainingSamples {
		return nil, nil, nil, fmt.Errorf("%s: %d bars cannot yield %d training samples: %w",
			symbol, len(bars), minTrainingSamples, models.ErrInsufficientHistory)
	}
	var rows []models.FeatureVector
	var y []float64
	for i := need - 1; i < len(bars)-1; i++ {
		f, err := t.builder.Build(symbol, bars[:i+1], time.Time{})
		if err != nil {
			return nil, nil, nil, err
		}
		cur, next := bars[i].Close, bars[i+1].Close
		r := 0.0
		if cur > 0 && next > 0 {
			r = math.Log(next / cur)
		}
		rows = append(rows, f.Values)
		y = append(y, r)
	}

	fill := columnMeans(rows, TreeFeatures)
	x := make([][]float64, len(rows))
	for i, fv := range rows {
		x[i] = row(fv, TreeFeatures, fill)
	}
	return x, y, fill, nil
}

func (t *Trainer) fitSequence(rets []float64) *Artifact {
	p := t.cfg.AROrder
	a := &Artifact{Kind: models.KindSequence, Coef: make([]float64, p)}
	if len(rets) <= p {
		return a
	}
	// normal equations over [1, r_{t-1} .. r_{t-p}]
	dim := p + 1
	xtx := make([][]float64, dim)
	for i := range xtx {
		xtx[i] = make([]float64, dim)
	}
	xty := make([]float64, dim)
	xr := make([]float64, dim)
	for i := p; i < len(rets); i++ {
		xr[0] = 1
		for j := 1; j <= p; j++ {
			xr[j] = rets[i-j]
		}
		for r := 0; r < dim; r++ {
			xty[r] += xr[r] * rets[i]
			for c := 0; c < dim; c++ {
				xtx[r][c] += xr[r] * xr[c]
			}
		}
	}
	for j := 1; j < dim; j++ {
		xtx[j][j] += t.cfg.Ridge
	}
	beta, ok := solve(xtx, xty)
	a.Samples = len(rets) - p
	if !ok {
		return a
	}
	a.Intercept = beta[0]
	copy(a.Coef, beta[1:])
	return a
}

func (t *Trainer) fitForest(x [][]float64, y, fill []float64, rng *rand.Rand) *Artifact {
	nf := len(TreeFeatures)
	p := treeParams{
		maxDepth:    t.cfg.ForestDepth,
		minLeaf:     t.cfg.MinLeaf,
		maxFeatures: int(math.Sqrt(float64(nf))) + 1,
		thresholds:  16,
	}
	trees := make([]Tree, 0, t.cfg.ForestTrees)
	for k := 0; k < t.cfg.ForestTrees; k++ {
		idx := make([]int, len(y))
		for i := range idx {
			idx[i] = rng.Intn(len(y))
		}
		trees = append(trees, growTree(x, y, idx, p, rng))
	}
	return &Artifact{
		Kind:     models.KindForest,
		Samples:  len(y),
		Features: TreeFeatures,
		Fill:     fill,
		Trees:    trees,
	}
}

func (t *Trainer) fitBoosted(x [][]float64, y, fill []float64) *Artifact {
	all := make([]int, len(y))
	for i := range all {
		all[i] = i
	}
	base := mean(y, all)
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = base
	}
	p := treeParams{maxDepth: t.cfg.BoostDepth, minLeaf: t.cfg.MinLeaf, thresholds: 16}
	resid := make([]float64, len(y))
	trees := make([]Tree, 0, t.cfg.BoostRounds)
	for k := 0; k < t.cfg.BoostRounds; k++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		tr := growTree(x, resid, all, p, nil)
		for i := range pred {
			pred[i] += t.cfg.LearningRate * tr.Predict(x[i])
		}
		trees = append(trees, tr)
	}
	return &Artifact{
		Kind:         models.KindBoosted,
		Samples:      len(y),
		Features:     TreeFeatures,
		Fill:         fill,
		Base:         base,
		LearningRate: t.cfg.LearningRate,
		Trees:        trees,
	}
}

func columnMeans(rows []models.FeatureVector, names []string) []float64 {
	out := make([]float64, len(names))
	for j, n := range names {
		sum, cnt := 0.0, 0
		for _, fv := range rows {
			if v, ok := fv.Get(n); ok {
				sum += v
				cnt++
			}
		}
		if cnt > 0 {
			out[j] = sum / float64(cnt)
		}
	}
	return out
}

// solve runs Gaussian elimination with partial pivoting on a copy of a.
func solve(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	m := make([][]float64, n)
	for i := range a {
		m[i] = append(append([]float64(nil), a[i]...), b[i])
	}
	for col := 0; col < n; col++ {
		piv := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[piv][col]) {
				piv = r
			}
		}
		if math.Abs(m[piv][col]) < 1e-15 {
			return nil, false
		}
		m[col], m[piv] = m[piv], m[col]
		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}
	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := m[r][n]
		for c := r + 1; c < n; c++ {
			s -= m[r][c] * x[c]
		}
		x[r] = s / m[r][r]
	}
	return x, true
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return int64(h.Sum64() & math.MaxInt64)
}
