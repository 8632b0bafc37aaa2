package rewards

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
)

//go:embed rewards.toml
var defaultCatalog []byte

// Catalog is an immutable, ordered set of reward definitions.
type Catalog struct {
	version string
	rewards []Definition
	byID    map[string]int
}

type catalogFile struct {
	Version string       `toml:"version"`
	Rewards []Definition `toml:"reward"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path loads the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied catalog path
	if err != nil {
		return nil, fmt.Errorf("reading reward catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates TOML catalog data.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parsing reward catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown reward catalog keys: %v", undecoded)
	}
	if len(f.Rewards) == 0 {
		return nil, errors.New("reward catalog is empty")
	}

	c := &Catalog{
		version: f.Version,
		rewards: f.Rewards,
		byID:    make(map[string]int, len(f.Rewards)),
	}
	for i, r := range f.Rewards {
		if err := validate(r); err != nil {
			return nil, fmt.Errorf("reward %d (%q): %w", i, r.ID, err)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate reward id %q", r.ID)
		}
		c.byID[r.ID] = i
	}
	return c, nil
}

func validate(r Definition) error {
	switch {
	case r.ID == "":
		return errors.New("id is required")
	case r.Name == "":
		return errors.New("name is required")
	case r.Cost <= 0:
		return fmt.Errorf("cost must be positive, got %d", r.Cost)
	}

	switch r.Type {
	case TypeTemporary:
		if r.DurationHours <= 0 {
			return errors.New("temporary rewards need a positive duration_hours")
		}
	case TypeInstant, TypePermanent:
		if r.DurationHours != 0 {
			return fmt.Errorf("%s rewards cannot have a duration", r.Type)
		}
	default:
		return fmt.Errorf("unknown type %q", r.Type)
	}

	if !r.Category.Valid() {
		return fmt.Errorf("unknown category %q", r.Category)
	}
	switch r.Rarity {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
	default:
		return fmt.Errorf("unknown rarity %q", r.Rarity)
	}
	return nil
}

// Version returns the catalog version string.
func (c *Catalog) Version() string { return c.version }

// ByID returns the reward with the given id.
func (c *Catalog) ByID(id string) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.rewards[i], true
}

// All returns every reward in catalog order.
func (c *Catalog) All() []Definition {
	return slices.Clone(c.rewards)
}

// ByCategory returns rewards in the category, in catalog order.
func (c *Catalog) ByCategory(category Category) []Definition {
	return c.filter(func(d Definition) bool { return d.Category == category })
}

// ByRarity returns rewards of the rarity, in catalog order.
func (c *Catalog) ByRarity(rarity Rarity) []Definition {
	return c.filter(func(d Definition) bool { return d.Rarity == rarity })
}

// Affordable returns rewards costing at most points, in catalog order.
func (c *Catalog) Affordable(points int64) []Definition {
	return c.filter(func(d Definition) bool { return d.Cost <= points })
}

func (c *Catalog) filter(keep func(Definition) bool) []Definition {
	out := make([]Definition, 0)
	for _, d := range c.rewards {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
