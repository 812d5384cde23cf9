package ensemble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"StockCast/internal/domain/models"
	domsvc "StockCast/internal/domain/service"
	applogger "StockCast/pkg/logger"
)

// Artifact is the persisted form of one trained model.
type Artifact struct {
	Kind      models.ModelKind `json:"kind"`
	Symbol    string           `json:"symbol"`
	TrainedAt time.Time        `json:"trained_at"`
	Samples   int              `json:"samples"`

	// sequence
	Coef      []float64 `json:"coef,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`

	// forest / boosted
	Features     []string  `json:"features,omitempty"`
	Fill         []float64 `json:"fill,omitempty"`
	Trees        []Tree    `json:"trees,omitempty"`
	Base         float64   `json:"base,omitempty"`
	LearningRate float64   `json:"learning_rate,omitempty"`
}

// Model builds the runtime model for a.
func (a *Artifact) Model() (domsvc.Model, error) {
	switch a.Kind {
	case models.KindSequence:
		return &SequenceModel{Coef: a.Coef, Intercept: a.Intercept}, nil
	case models.KindForest:
		return &ForestModel{Features: a.Features, Fill: a.Fill, Trees: a.Trees}, nil
	case models.KindBoosted:
		return &BoostedModel{Features: a.Features, Fill: a.Fill, Base: a.Base, LearningRate: a.LearningRate, Trees: a.Trees}, nil
	}
	return nil, fmt.Errorf("unknown model kind %q", a.Kind)
}

// FileStore keeps artifacts under <dir>/<SYMBOL>/<kind>.json.
type FileStore struct {
	dir string
	l   *applogger.Logger

	mu    sync.RWMutex
	cache map[string]cachedModel
}

type cachedModel struct {
	mod   time.Time
	model domsvc.Model
}

func NewFileStore(dir string, l *applogger.Logger) *FileStore {
	return &FileStore{dir: dir, l: l, cache: make(map[string]cachedModel)}
}

func (s *FileStore) path(symbol string, kind models.ModelKind) string {
	return filepath.Join(s.dir, symbol, string(kind)+".json")
}

// Save writes a atomically through a per-call temp file; with concurrent saves
// of one artifact the last rename wins.
func (s *FileStore) Save(a *Artifact) error {
	p := s.path(a.Symbol, a.Kind)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact dir: %w", err)
	}
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create artifact temp: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}

// Load returns the model for (symbol, kind), reusing the decoded model while the file is unchanged.
func (s *FileStore) Load(_ context.Context, symbol string, kind models.ModelKind) (domsvc.Model, error) {
	p := s.path(symbol, kind)
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", symbol, kind, models.ErrModelUnavailable)
		}
		return nil, fmt.Errorf("%s/%s: stat: %v: %w", symbol, kind, err, models.ErrModelUnavailable)
	}

	s.mu.RLock()
	c, ok := s.cache[p]
	s.mu.RUnlock()
	if ok && c.mod.Equal(st.ModTime()) {
		return c.model, nil
	}

	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: read: %v: %w", symbol, kind, err, models.ErrModelUnavailable)
	}
	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		if s.l != nil {
			s.l.Warn("corrupt model artifact",
				applogger.String("path", p),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("%s/%s: decode: %v: %w", symbol, kind, err, models.ErrModelUnavailable)
	}
	if a.Kind != kind {
		return nil, fmt.Errorf("%s/%s: artifact kind %q: %w", symbol, kind, a.Kind, models.ErrModelUnavailable)
	}
	m, err := a.Model()
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %v: %w", symbol, kind, err, models.ErrModelUnavailable)
	}

	s.mu.Lock()
	s.cache[p] = cachedModel{mod: st.ModTime(), model: m}
	s.mu.Unlock()
	return m, nil
}

var _ domsvc.ModelLoader = (*FileStore)(nil)
