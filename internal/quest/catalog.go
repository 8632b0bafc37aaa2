package quest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
)

//go:embed quests.toml
var defaultCatalog []byte

// Catalog is the immutable, ordered quest list.
type Catalog struct {
	version string
	quests  []Quest
	byTitle map[string]int
}

type catalogFile struct {
	Version string  `toml:"version"`
	Quests  []Quest `toml:"quest"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path loads the default.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied catalog path
	if err != nil {
		return nil, fmt.Errorf("reading quest catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates TOML catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parsing quest catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown quest catalog keys: %v", undecoded)
	}
	if len(f.Quests) == 0 {
		return nil, errors.New("quest catalog is empty")
	}

	c := &Catalog{
		version: f.Version,
		quests:  f.Quests,
		byTitle: make(map[string]int, len(f.Quests)),
	}
	for i, q := range f.Quests {
		if q.Title == "" {
			return nil, fmt.Errorf("quest %d: title is required", i)
		}
		if _, err := ParseType(string(q.Type)); err != nil {
			return nil, fmt.Errorf("quest %q: %w", q.Title, err)
		}
		if _, dup := c.byTitle[q.Title]; dup {
			return nil, fmt.Errorf("duplicate quest title %q", q.Title)
		}
		c.byTitle[q.Title] = i
	}
	return c, nil
}

// Version returns the catalog version string.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of quests.
func (c *Catalog) Len() int { return len(c.quests) }

// At returns the quest at index i.
func (c *Catalog) At(i int) Quest { return c.quests[i] }

// First returns the fallback quest.
func (c *Catalog) First() Quest { return c.quests[0] }

// ByTitle looks a quest up by title.
func (c *Catalog) ByTitle(title string) (Quest, bool) {
	i, ok := c.byTitle[title]
	if !ok {
		return Quest{}, false
	}
	return c.quests[i], true
}

// All returns every quest in catalog order.
func (c *Catalog) All() []Quest {
	return slices.Clone(c.quests)
}
