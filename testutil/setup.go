package testutil

import (
	"testing"

	"github.com/miyabiren/tabletop-companion/cache"
	"github.com/miyabiren/tabletop-companion/config"
	dbadapter "github.com/miyabiren/tabletop-companion/db"
	"github.com/miyabiren/tabletop-companion/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory SQLite DB and runs AutoMigrate.
// It requires no external services.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: ":memory:",
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache creates a LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub.")
	return c, ps
}

// Seed helpers shared by package tests.

// SeedSpecies inserts a species with uniform stat bounds [min, max].
func SeedSpecies(t *testing.T, db *gorm.DB, name string, min, max int) *model.Species {
	t.Helper()
	sp := &model.Species{
		Name:        name,
		StrengthMin: min, StrengthMax: max,
		DexterityMin: min, DexterityMax: max,
		VitalityMin: min, VitalityMax: max,
		SpecialMin: min, SpecialMax: max,
		InsightMin: min, InsightMax: max,
		ToughMin: min, ToughMax: max,
		CoolMin: min, CoolMax: max,
		BeautyMin: min, BeautyMax: max,
		CleverMin: min, CleverMax: max,
		CuteMin: min, CuteMax: max,
	}
	require.NoError(t, db.Create(sp).Error)
	return sp
}

// SeedCharacter inserts a character at the species floor for every stat.
func SeedCharacter(t *testing.T, db *gorm.DB, accountID int64, sp *model.Species, name string, level int, money int64) *model.Character {
	t.Helper()
	ch := &model.Character{
		GuildID:   1,
		AccountID: accountID,
		Name:      name,
		SpeciesID: sp.ID,
		Level:     level,
		Money:     money,
		Strength:  sp.StrengthMin, Dexterity: sp.DexterityMin,
		Vitality: sp.VitalityMin, Special: sp.SpecialMin, Insight: sp.InsightMin,
		Tough: sp.ToughMin, Cool: sp.CoolMin, Beauty: sp.BeautyMin,
		Clever: sp.CleverMin, Cute: sp.CuteMin,
	}
	require.NoError(t, db.Create(ch).Error)
	return ch
}
