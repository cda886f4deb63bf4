package catalog

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/amutnick/Runecast/pkg/domain"
	"gopkg.in/yaml.v3"
)

// maxResolveDistance bounds fuzzy matching of typed rune names.
const maxResolveDistance = 2

// Catalog is the immutable registry of runes and spreads.
// Safe for concurrent use since it is never mutated after construction.
type Catalog struct {
	runes   []domain.Rune
	spreads []domain.Spread
	byRune  map[string]int
	bySprd  map[string]int
}

// File is the YAML layout of a custom catalog.
type File struct {
	Runes   []domain.Rune   `yaml:"runes"`
	Spreads []domain.Spread `yaml:"spreads"`
}

// Default returns the Elder Futhark with the built-in spreads.
func Default() *Catalog {
	c, err := New(ElderFuthark, Spreads)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// New validates and indexes a catalog.
func New(runes []domain.Rune, spreads []domain.Spread) (*Catalog, error) {
	c := &Catalog{
		runes:   slices.Clone(runes),
		spreads: slices.Clone(spreads),
		byRune:  make(map[string]int, len(runes)),
		bySprd:  make(map[string]int, len(spreads)),
	}
	for i, r := range c.runes {
		if r.Name == "" {
			return nil, fmt.Errorf("rune at index %d has no name", i)
		}
		key := strings.ToLower(r.Name)
		if _, dup := c.byRune[key]; dup {
			return nil, fmt.Errorf("duplicate rune %q", r.Name)
		}
		c.byRune[key] = i
	}
	for i, s := range c.spreads {
		if s.Name == "" {
			return nil, fmt.Errorf("spread at index %d has no name", i)
		}
		if s.RuneCount < 0 {
			return nil, fmt.Errorf("spread %q has negative rune count", s.Name)
		}
		if s.RuneCount > len(c.runes) {
			return nil, fmt.Errorf("spread %q needs %d runes but the catalog has %d", s.Name, s.RuneCount, len(c.runes))
		}
		key := strings.ToLower(s.Name)
		if _, dup := c.bySprd[key]; dup {
			return nil, fmt.Errorf("duplicate spread %q", s.Name)
		}
		c.bySprd[key] = i
	}
	return c, nil
}

// Parse reads a YAML catalog. Missing sections fall back to the built-ins.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(f.Runes) == 0 {
		f.Runes = ElderFuthark
	}
	if len(f.Spreads) == 0 {
		f.Spreads = Spreads
	}
	return New(f.Runes, f.Spreads)
}

// Load reads a YAML catalog from disk. An empty path returns the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Runes returns the runes in catalog order.
func (c *Catalog) Runes() []domain.Rune {
	return slices.Clone(c.runes)
}

// Spreads returns the spreads in catalog order.
func (c *Catalog) Spreads() []domain.Spread {
	return slices.Clone(c.spreads)
}

// Rune looks up a rune by name, case-insensitively.
func (c *Catalog) Rune(name string) (domain.Rune, error) {
	i, ok := c.byRune[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.Rune{}, fmt.Errorf("%w: %q", domain.ErrRuneNotFound, name)
	}
	return c.runes[i], nil
}

// Spread looks up a spread by name, case-insensitively.
func (c *Catalog) Spread(name string) (domain.Spread, error) {
	i, ok := c.bySprd[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.Spread{}, fmt.Errorf("%w: %q", domain.ErrSpreadNotFound, name)
	}
	return c.spreads[i], nil
}

// Resolve maps user input to a rune: exact name, glyph, unique prefix, then
// the closest name within a small edit distance.
func (c *Catalog) Resolve(input string) (domain.Rune, error) {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return domain.Rune{}, fmt.Errorf("%w: empty name", domain.ErrRuneNotFound)
	}
	if r, err := c.Rune(in); err == nil {
		return r, nil
	}

	var prefixed []int
	for i, r := range c.runes {
		if r.Symbol == strings.TrimSpace(input) {
			return r, nil
		}
		if strings.HasPrefix(strings.ToLower(r.Name), in) {
			prefixed = append(prefixed, i)
		}
	}
	if len(prefixed) == 1 {
		return c.runes[prefixed[0]], nil
	}

	best, bestDist, tie := -1, maxResolveDistance+1, false
	for i, r := range c.runes {
		d := levenshtein.ComputeDistance(in, strings.ToLower(r.Name))
		switch {
		case d < bestDist:
			best, bestDist, tie = i, d, false
		case d == bestDist:
			tie = true
		}
	}
	if best < 0 || tie {
		return domain.Rune{}, fmt.Errorf("%w: %q", domain.ErrRuneNotFound, input)
	}
	return c.runes[best], nil
}
