package ensemble

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/features"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func flatBars(n int, price float64) []models.PriceBar {
	out := make([]models.PriceBar, n)
	for i := range out {
		out[i] = models.PriceBar{Date: day0.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price, Volume: 500}
	}
	return out
}

func waveBars(n int) []models.PriceBar {
	out := make([]models.PriceBar, n)
	for i := range out {
		c := 200 + 15*math.Sin(float64(i)/9) + 0.1*float64(i)
		out[i] = models.PriceBar{Date: day0.AddDate(0, 0, i), Open: c, High: c + 2, Low: c - 2, Close: c, Volume: 800 + float64(i%5)*20}
	}
	return out
}

func smallTrainer(dir string) (*Trainer, *FileStore) {
	store := NewFileStore(dir, nil)
	cfg := DefaultTrainerConfig()
	cfg.ForestTrees = 5
	cfg.BoostRounds = 5
	return NewTrainer(features.NewBuilder(features.DefaultConfig()), store, cfg, nil), store
}

func TestFlatHistoryForecastsFlat(t *testing.T) {
	tr, store := smallTrainer(t.TempDir())
	bars := flatBars(300, 120)
	if _, err := tr.Train(context.Background(), "FLAT", bars); err != nil {
		t.Fatalf("train: %v", err)
	}
	f, err := features.NewBuilder(features.DefaultConfig()).Build("FLAT", bars, time.Time{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, kind := range models.AllModelKinds() {
		m, err := store.Load(context.Background(), "FLAT", kind)
		if err != nil {
			t.Fatalf("load %s: %v", kind, err)
		}
		path, err := m.Forecast(context.Background(), f, 5)
		if err != nil {
			t.Fatalf("forecast %s: %v", kind, err)
		}
		if len(path) != 5 {
			t.Fatalf("%s path len %d", kind, len(path))
		}
		for d, p := range path {
			if math.Abs(p-120) > 1e-9 {
				t.Fatalf("%s day %d = %v, want 120", kind, d+1, p)
			}
		}
	}
}

func TestLoadMissingArtifact(t *testing.T) {
	store := NewFileStore(t.TempDir(), nil)
	_, err := store.Load(context.Background(), "NOPE", models.KindForest)
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
}

func TestConcurrentSaveSameArtifact(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			coef := make([]float64, 200+i)
			for j := range coef {
				coef[j] = float64(i)
			}
			errs <- store.Save(&Artifact{Kind: models.KindSequence, Symbol: "RACE", Coef: coef, Intercept: float64(i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	b, err := os.ReadFile(filepath.Join(dir, "RACE", "sequence.json"))
	if err != nil {
		t.Fatal(err)
	}
	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		t.Fatalf("artifact is not a single complete write: %v", err)
	}
	if len(a.Coef) != 200+int(a.Intercept) {
		t.Fatalf("coef len %d does not match writer %v", len(a.Coef), a.Intercept)
	}
	left, err := filepath.Glob(filepath.Join(dir, "RACE", "*.tmp"))
	if err != nil || len(left) != 0 {
		t.Fatalf("temp files left behind: %v", left)
	}
}

func TestLoadCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "BAD"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "BAD", "boosted.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileStore(dir, nil).Load(context.Background(), "BAD", models.KindBoosted)
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
}

func TestTrainDeterministic(t *testing.T) {
	bars := waveBars(320)
	tr1, _ := smallTrainer(t.TempDir())
	tr2, _ := smallTrainer(t.TempDir())
	a1, err := tr1.Train(context.Background(), "WAVE", bars)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	a2, err := tr2.Train(context.Background(), "WAVE", bars)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	for i := range a1 {
		a1[i].TrainedAt, a2[i].TrainedAt = time.Time{}, time.Time{}
		b1, _ := json.Marshal(a1[i])
		b2, _ := json.Marshal(a2[i])
		if string(b1) != string(b2) {
			t.Fatalf("%s artifacts differ between runs", a1[i].Kind)
		}
	}
}

func TestTrainInsufficientHistory(t *testing.T) {
	tr, _ := smallTrainer(t.TempDir())
	_, err := tr.Train(context.Background(), "THIN", flatBars(210, 50))
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected insufficient history, got %v", err)
	}
}

func TestSequenceModelDrift(t *testing.T) {
	m := &SequenceModel{Coef: []float64{0, 0}, Intercept: math.Log(1.01)}
	f := models.Features{Closes: []float64{100, 100, 100}}
	path, err := m.Forecast(context.Background(), f, 3)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	want := []float64{101, 102.01, 103.0301}
	for i := range want {
		if math.Abs(path[i]-want[i]) > 1e-9 {
			t.Fatalf("day %d = %v, want %v", i+1, path[i], want[i])
		}
	}
}

func TestTreePredict(t *testing.T) {
	tree := Tree{Nodes: []Node{
		{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
		{Feature: -1, Value: -1},
		{Feature: -1, Value: 1},
	}}
	if got := tree.Predict([]float64{0.2}); got != -1 {
		t.Fatalf("left = %v", got)
	}
	if got := tree.Predict([]float64{0.9}); got != 1 {
		t.Fatalf("right = %v", got)
	}
}
