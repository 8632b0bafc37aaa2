// Package rewards holds the read-only catalog of redeemable rewards.
//
// The catalog is versioned configuration data loaded once at startup from
// TOML, either the file named in config or the copy compiled into the binary.
// Nothing mutates it afterwards.
package rewards

import "time"

// Category groups rewards for browsing.
type Category string

const (
	CategoryBoost       Category = "boost"
	CategoryContent     Category = "content"
	CategoryAchievement Category = "achievement"
	CategoryCosmetic    Category = "cosmetic"
	CategoryFeature     Category = "feature"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBoost, CategoryContent, CategoryAchievement, CategoryCosmetic, CategoryFeature:
		return true
	}
	return false
}

// Type decides whether a redemption expires.
type Type string

const (
	TypeInstant   Type = "instant"
	TypeTemporary Type = "temporary"
	TypePermanent Type = "permanent"
)

// Rarity is a display tier.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Definition is one catalog entry.
type Definition struct {
	ID            string   `toml:"id" json:"id"`
	Name          string   `toml:"name" json:"name"`
	Description   string   `toml:"description" json:"description"`
	Cost          int64    `toml:"cost" json:"cost"`
	Category      Category `toml:"category" json:"category"`
	Type          Type     `toml:"type" json:"type"`
	DurationHours int      `toml:"duration_hours" json:"duration,omitempty"`
	Rarity        Rarity   `toml:"rarity" json:"rarity"`
	Icon          string   `toml:"icon" json:"icon,omitempty"`
	Color         string   `toml:"color" json:"color,omitempty"`
}

// Duration returns how long a redemption stays valid. Zero means it never
// expires.
func (d Definition) Duration() time.Duration {
	if d.Type != TypeTemporary {
		return 0
	}
	return time.Duration(d.DurationHours) * time.Hour
}

// ExpiresAt returns the expiry for a redemption made at t, or nil when the
// reward is not temporary.
func (d Definition) ExpiresAt(t time.Time) *time.Time {
	if d.Type != TypeTemporary {
		return nil
	}
	exp := t.Add(d.Duration())
	return &exp
}
