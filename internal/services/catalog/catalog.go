package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"StockCast/internal/domain/models"
	"StockCast/pkg/util"
)

//go:embed stocks.yaml
var builtin []byte

type catalogFile struct {
	Safe           []models.Stock `yaml:"safe"`
	Volatile       []models.Stock `yaml:"volatile"`
	HighlyVolatile []models.Stock `yaml:"highly_volatile"`
}

// Catalog is a read-only list of known stocks grouped by category.
type Catalog struct {
	all        []models.Stock
	bySymbol   map[string]models.Stock
	byCategory map[models.StockCategory][]models.Stock
}

// Load reads the catalog at path, or the built-in list when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(builtin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes a catalog document keyed by category.
// Symbols are normalized; a duplicate or invalid symbol is an error.
func Parse(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{
		bySymbol:   make(map[string]models.Stock),
		byCategory: make(map[models.StockCategory][]models.Stock),
	}
	groups := []struct {
		cat    models.StockCategory
		stocks []models.Stock
	}{
		{models.CategorySafe, f.Safe},
		{models.CategoryVolatile, f.Volatile},
		{models.CategoryHighlyVolatile, f.HighlyVolatile},
	}
	for _, g := range groups {
		for _, s := range g.stocks {
			sym, ok := util.NormalizeSymbol(s.Symbol)
			if !ok {
				return nil, fmt.Errorf("catalog %s: invalid symbol %q", g.cat, s.Symbol)
			}
			if _, dup := c.bySymbol[sym]; dup {
				return nil, fmt.Errorf("catalog: duplicate symbol %s", sym)
			}
			s.Symbol = sym
			s.Category = g.cat
			if s.Name == "" {
				s.Name = sym
			}
			for i, k := range s.Keywords {
				s.Keywords[i] = strings.ToLower(strings.TrimSpace(k))
			}
			c.all = append(c.all, s)
			c.bySymbol[sym] = s
			c.byCategory[g.cat] = append(c.byCategory[g.cat], s)
		}
	}
	if len(c.all) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	return c, nil
}

// Lookup returns the entry for a symbol in any accepted form (".NS" suffix, lower case).
func (c *Catalog) Lookup(symbol string) (models.Stock, bool) {
	sym, ok := util.NormalizeSymbol(symbol)
	if !ok {
		return models.Stock{}, false
	}
	s, ok := c.bySymbol[sym]
	return s, ok
}

// Category returns the entries of cat in catalog order.
func (c *Catalog) Category(cat models.StockCategory) ([]models.Stock, bool) {
	s, ok := c.byCategory[cat]
	return s, ok
}

// Search resolves free text to a stock: an exact symbol first, then a name
// containing the text, then a keyword overlapping it.
func (c *Catalog) Search(input string) (models.Stock, bool) {
	q := strings.ToLower(strings.TrimSpace(input))
	if q == "" {
		return models.Stock{}, false
	}
	if s, ok := c.Lookup(q); ok {
		return s, true
	}
	for _, s := range c.all {
		if strings.Contains(strings.ToLower(s.Name), q) {
			return s, true
		}
	}
	for _, s := range c.all {
		for _, k := range s.Keywords {
			if k != "" && (strings.Contains(k, q) || strings.Contains(q, k)) {
				return s, true
			}
		}
	}
	return models.Stock{}, false
}
