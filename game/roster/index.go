// Package roster maintains the (guild, name) → character index used to
// resolve character references from user input. The index lives in the cache
// and is updated incrementally on create, rename, and retire instead of being
// rebuilt wholesale on every mutation.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/miyabiren/tabletop-companion/cache"
	"github.com/miyabiren/tabletop-companion/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no living character matches the name.
var ErrNotFound = errors.New("roster: no such character")

// ErrRebuildBusy is returned when another rebuild holds the guild's lock.
var ErrRebuildBusy = errors.New("roster: rebuild already in progress")

// rebuildLockTTL bounds how long a crashed rebuild can block the next one.
const rebuildLockTTL = 30 * time.Second

// Index resolves character names within one guild.
type Index struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// New creates a roster Index.
func New(db *gorm.DB, c cache.Cache, logger *zap.Logger) *Index {
	return &Index{db: db, cache: c, logger: logger}
}

func key(guildID int64) string {
	return fmt.Sprintf("roster:%d", guildID)
}

// Put records a character under its name. Call on create and after rename.
func (ix *Index) Put(ctx context.Context, guildID int64, name string, charID int64) {
	if err := ix.cache.HSet(ctx, key(guildID), name, strconv.FormatInt(charID, 10)); err != nil {
		ix.logger.Warn("roster index update failed",
			zap.Int64("guild_id", guildID), zap.String("name", name), zap.Error(err))
	}
}

// Remove drops a name from the index. Call on retire and on the old name
// after a rename.
func (ix *Index) Remove(ctx context.Context, guildID int64, name string) {
	if err := ix.cache.HDel(ctx, key(guildID), name); err != nil {
		ix.logger.Warn("roster index removal failed",
			zap.Int64("guild_id", guildID), zap.String("name", name), zap.Error(err))
	}
}

// Lookup resolves a name to a character ID. Cache misses fall through to the
// store and backfill the index.
func (ix *Index) Lookup(ctx context.Context, guildID int64, name string) (int64, error) {
	if v, err := ix.cache.HGet(ctx, key(guildID), name); err == nil {
		if id, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			return id, nil
		}
	}

	var ch model.Character
	err := ix.db.WithContext(ctx).
		Where("guild_id = ? AND name = ? AND retired = ?", guildID, name, false).
		First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	ix.Put(ctx, guildID, name, ch.ID)
	return ch.ID, nil
}

// Guild returns the full name-to-character mapping for one guild, rebuilding
// the index from the store when the cache holds nothing for it.
func (ix *Index) Guild(ctx context.Context, guildID int64) (map[string]int64, error) {
	entries, err := ix.cache.HGetAll(ctx, key(guildID))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		if err := ix.Rebuild(ctx, guildID); err != nil {
			return nil, err
		}
		if entries, err = ix.cache.HGetAll(ctx, key(guildID)); err != nil {
			return nil, err
		}
	}
	out := make(map[string]int64, len(entries))
	for name, v := range entries {
		id, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[name] = id
	}
	return out, nil
}

// Rebuild repopulates the guild's index from the store. A cache lock keeps
// two concurrent rebuilds from interleaving their writes.
func (ix *Index) Rebuild(ctx context.Context, guildID int64) error {
	lock := key(guildID) + ":rebuild"
	ok, err := ix.cache.SetNX(ctx, lock, "1", rebuildLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRebuildBusy
	}
	defer func() {
		if err := ix.cache.Del(ctx, lock); err != nil {
			ix.logger.Warn("roster rebuild lock release failed",
				zap.Int64("guild_id", guildID), zap.Error(err))
		}
	}()

	var chars []model.Character
	err = ix.db.WithContext(ctx).Select("id", "name").
		Where("guild_id = ? AND retired = ?", guildID, false).
		Find(&chars).Error
	if err != nil {
		return err
	}
	if err := ix.cache.Del(ctx, key(guildID)); err != nil {
		return err
	}
	for _, ch := range chars {
		ix.Put(ctx, guildID, ch.Name, ch.ID)
	}
	return nil
}
