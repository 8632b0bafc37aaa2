package rewards

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "2024.1", c.Version())
	assert.Len(t, c.All(), 13)

	r, ok := c.ByID("productivity_boost")
	require.True(t, ok)
	assert.Equal(t, int64(50), r.Cost)
	assert.Equal(t, TypeTemporary, r.Type)
	assert.Equal(t, 24*time.Hour, r.Duration())

	r, ok = c.ByID("priority_support")
	require.True(t, ok)
	assert.Equal(t, 720*time.Hour, r.Duration())

	_, ok = c.ByID("free_money")
	assert.False(t, ok)
}

func TestCatalog_Queries(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	t.Run("by category", func(t *testing.T) {
		boosts := c.ByCategory(CategoryBoost)
		ids := make([]string, len(boosts))
		for i, b := range boosts {
			ids[i] = b.ID
		}
		assert.Equal(t, []string{"productivity_boost", "mood_boost", "energy_boost"}, ids)
		assert.Empty(t, c.ByCategory("snacks"))
	})

	t.Run("by rarity", func(t *testing.T) {
		legendary := c.ByRarity(RarityLegendary)
		require.Len(t, legendary, 2)
		assert.Equal(t, "streak_master", legendary[0].ID)
		assert.Equal(t, "quest_champion", legendary[1].ID)
	})

	t.Run("affordable", func(t *testing.T) {
		assert.Empty(t, c.Affordable(49))
		cheap := c.Affordable(75)
		require.Len(t, cheap, 2)
		for _, r := range cheap {
			assert.LessOrEqual(t, r.Cost, int64(75))
		}
		assert.Len(t, c.Affordable(1000), 13)
	})

	t.Run("all returns a copy", func(t *testing.T) {
		all := c.All()
		all[0].Cost = 1
		r, _ := c.ByID(all[0].ID)
		assert.Equal(t, int64(50), r.Cost)
	})
}

func TestDefinition_ExpiresAt(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	temp := Definition{Type: TypeTemporary, DurationHours: 24}
	exp := temp.ExpiresAt(at)
	require.NotNil(t, exp)
	assert.Equal(t, at.Add(24*time.Hour), *exp)

	assert.Nil(t, Definition{Type: TypePermanent}.ExpiresAt(at))
	assert.Nil(t, Definition{Type: TypeInstant}.ExpiresAt(at))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "empty", data: `version = "1"`, wantErr: "empty"},
		{
			name: "temporary without duration",
			data: `[[reward]]
id = "x"
name = "X"
cost = 10
category = "boost"
type = "temporary"
rarity = "common"`,
			wantErr: "duration_hours",
		},
		{
			name: "permanent with duration",
			data: `[[reward]]
id = "x"
name = "X"
cost = 10
category = "boost"
type = "permanent"
duration_hours = 3
rarity = "common"`,
			wantErr: "cannot have a duration",
		},
		{
			name: "zero cost",
			data: `[[reward]]
id = "x"
name = "X"
cost = 0
category = "boost"
type = "instant"
rarity = "common"`,
			wantErr: "cost must be positive",
		},
		{
			name: "duplicate id",
			data: `[[reward]]
id = "x"
name = "X"
cost = 1
category = "boost"
type = "instant"
rarity = "common"
[[reward]]
id = "x"
name = "Y"
cost = 2
category = "boost"
type = "instant"
rarity = "common"`,
			wantErr: "duplicate",
		},
		{
			name: "unknown key",
			data: `[[reward]]
id = "x"
name = "X"
cost = 1
category = "boost"
type = "instant"
rarity = "common"
price = 4`,
			wantErr: "unknown reward catalog keys",
		},
		{name: "bad toml", data: `[[reward`, wantErr: "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.All(), 13)

	path := filepath.Join(t.TempDir(), "rewards.toml")
	require.NoError(t, os.WriteFile(path, []byte(`version = "test"
[[reward]]
id = "tea"
name = "Tea Break"
cost = 5
category = "boost"
type = "instant"
rarity = "common"
`), 0o600))

	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Version())
	r, ok := c.ByID("tea")
	require.True(t, ok)
	assert.Nil(t, r.ExpiresAt(time.Now()))

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
