package stats_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/miyabiren/tabletop-companion/audit"
	"github.com/miyabiren/tabletop-companion/game/display"
	"github.com/miyabiren/tabletop-companion/game/stats"
	"github.com/miyabiren/tabletop-companion/model"
	"github.com/miyabiren/tabletop-companion/store"
	"github.com/miyabiren/tabletop-companion/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newStatsService(t *testing.T) (*stats.Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	aud := audit.New(db, zap.NewNop())
	t.Cleanup(func() { aud.Stop(nil) })
	svc := stats.NewService(db, aud, display.Nop{}, time.Minute, zap.NewNop())
	return svc, db
}

// seedMaxedCombat creates a [1,4] species character at level 9 with every
// combat stat committed at 4: budget 18, invested 15, 3 points remaining.
func seedMaxedCombat(t *testing.T, db *gorm.DB, accountID int64) *model.Character {
	t.Helper()
	sp := testutil.SeedSpecies(t, db, "flareling", 1, 4)
	ch := testutil.SeedCharacter(t, db, accountID, sp, "Ember", 9, 0)
	require.NoError(t, db.Model(ch).Updates(map[string]interface{}{
		"strength": 4, "dexterity": 4, "vitality": 4, "special": 4, "insight": 4,
	}).Error)
	require.NoError(t, db.Where("id = ?", ch.ID).First(ch).Error)
	return ch
}

func TestInitializeRequiresOwnership(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "sproutkin", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Moss", 3, 0)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 2, false)
	assert.ErrorIs(t, err, stats.ErrNotOwner)

	// GM may open sessions on any character.
	ov, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 2, true)
	require.NoError(t, err)
	assert.Equal(t, stats.Budget(stats.TrackCombat, 3), ov.Remaining)
}

func TestInitializeRejectsExhaustedBudget(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "pebblit", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Shale", 1, 0)
	// Level 1 combat budget is 2; invest it all.
	require.NoError(t, db.Model(ch).Updates(map[string]interface{}{"strength": 3}).Error)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	assert.ErrorIs(t, err, stats.ErrBudgetExhausted)
}

func TestInitializeSeedsShadowFromCommitted(t *testing.T) {
	svc, db := newStatsService(t)
	ch := seedMaxedCombat(t, db, 1)

	ov, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 3, ov.Remaining)
	for _, line := range ov.Lines {
		assert.Equal(t, 4, line.Current)
	}

	var fresh model.Character
	require.NoError(t, db.Where("id = ?", ch.ID).First(&fresh).Error)
	assert.Equal(t, 4, fresh.StrengthShadow)
	assert.Equal(t, 4, fresh.InsightShadow)
}

// Species range [1,4], strength at 4, no prior overflow, 3 points remaining:
// the limit break costs NextPointCost(0)=2 and leaves 1 point.
func TestAdjustLimitBreak(t *testing.T) {
	svc, db := newStatsService(t)
	ch := seedMaxedCombat(t, db, 1)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)

	ov, err := svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", +1, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 5, ov.Lines[0].Current)
	assert.Equal(t, 1, ov.Remaining)
	assert.Equal(t, 3, ov.NextPointCost)

	// One point left cannot fund the next limit break (costs 3).
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "dexterity", +1, 1, false)
	assert.ErrorIs(t, err, stats.ErrBudgetExhausted)
}

func TestAdjustCannotReduceBelowCommitted(t *testing.T) {
	svc, db := newStatsService(t)
	ch := seedMaxedCombat(t, db, 1)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)

	// Shadow strength equals the committed 4: nothing spent this session.
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", -1, 1, false)
	assert.ErrorIs(t, err, stats.ErrBelowCommitted)

	// Spend a point, then taking it back is fine; going further is not.
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", +1, 1, false)
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", -1, 1, false)
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", -1, 1, false)
	assert.ErrorIs(t, err, stats.ErrBelowCommitted)
}

func TestAdjustCannotGoBelowSpeciesMin(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "wispling", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Mist", 5, 0)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackSocial, 1, false)
	require.NoError(t, err)

	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackSocial, "cute", -1, 1, false)
	assert.ErrorIs(t, err, stats.ErrBelowMin)
}

func TestAdjustRejectsUnknownStatAndDelta(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "finling", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Brook", 5, 0)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)

	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "cute", +1, 1, false)
	assert.ErrorIs(t, err, stats.ErrUnknownStat)

	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", +2, 1, false)
	assert.ErrorIs(t, err, stats.ErrBadDelta)
}

func TestAdjustDetectsConcurrentShadowWrite(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "molefolk", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Burrow", 5, 0)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)

	// Another writer mutates the shadow column behind the session's back.
	require.NoError(t, db.Model(&model.Character{}).Where("id = ?", ch.ID).
		Update("strength_shadow", 3).Error)

	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", +1, 1, false)
	assert.ErrorIs(t, err, store.ErrStaleWrite)
}

func TestApplyCommitsAndClosesSession(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "cindertail", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Ash", 5, 0)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", +1, 1, false)
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "vitality", +1, 1, false)
	require.NoError(t, err)

	ov, err := svc.Apply(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)

	var fresh model.Character
	require.NoError(t, db.Where("id = ?", ch.ID).First(&fresh).Error)
	assert.Equal(t, 2, fresh.Strength)
	assert.Equal(t, 2, fresh.Vitality)
	assert.Equal(t, 1, fresh.Dexterity)

	// Budget invariant after apply.
	invested := (fresh.Strength - 1) + (fresh.Dexterity - 1) + (fresh.Vitality - 1) +
		(fresh.Special - 1) + (fresh.Insight - 1)
	assert.LessOrEqual(t, invested, stats.Budget(stats.TrackCombat, fresh.Level))
	assert.Equal(t, stats.Budget(stats.TrackCombat, 5)-2, ov.Remaining)

	assert.False(t, svc.Open(ch.ID, stats.TrackCombat))
	_, err = svc.Apply(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	assert.ErrorIs(t, err, stats.ErrNoSession)
}

func TestApplyLosesToConcurrentCommit(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "galehound", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Gust", 5, 0)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", +1, 1, false)
	require.NoError(t, err)

	// Someone else commits a different strength first.
	require.NoError(t, db.Model(&model.Character{}).Where("id = ?", ch.ID).
		Update("strength", 3).Error)

	_, err = svc.Apply(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	assert.ErrorIs(t, err, store.ErrStaleWrite)
}

func TestCancelDiscardsWithoutCommitting(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "thornkit", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Briar", 5, 0)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", +1, 1, false)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), ch.ID, stats.TrackCombat, 1, false))

	var fresh model.Character
	require.NoError(t, db.Where("id = ?", ch.ID).First(&fresh).Error)
	assert.Equal(t, 1, fresh.Strength, "committed value untouched")

	assert.ErrorIs(t, svc.Cancel(context.Background(), ch.ID, stats.TrackCombat, 1, false), stats.ErrNoSession)
}

func TestExpireIdleClosesSessions(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "driftmoth", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Lumen", 5, 0)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)
	require.True(t, svc.Open(ch.ID, stats.TrackCombat))

	assert.Equal(t, 0, svc.ExpireIdle(time.Now()))
	assert.Equal(t, 1, svc.ExpireIdle(time.Now().Add(2*time.Minute)))
	assert.False(t, svc.Open(ch.ID, stats.TrackCombat))

	// A timed-out session leaves committed values alone; re-initialize
	// overwrites the shadow residue.
	ov, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, ov.Lines[0].Current)
}

func TestSessionOperationsRequireOwner(t *testing.T) {
	svc, db := newStatsService(t)
	sp := testutil.SeedSpecies(t, db, "thornkit", 1, 4)
	ch := testutil.SeedCharacter(t, db, 1, sp, "Bramble", 3, 0)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)

	// Another account cannot drive, commit, or discard the open session.
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", +1, 2, false)
	assert.ErrorIs(t, err, stats.ErrNotOwner)
	_, err = svc.Apply(context.Background(), ch.ID, stats.TrackCombat, 2, false)
	assert.ErrorIs(t, err, stats.ErrNotOwner)
	assert.ErrorIs(t, svc.Cancel(context.Background(), ch.ID, stats.TrackCombat, 2, false), stats.ErrNotOwner)

	var fresh model.Character
	require.NoError(t, db.Where("id = ?", ch.ID).First(&fresh).Error)
	assert.Equal(t, 1, fresh.Strength)
	assert.True(t, svc.Open(ch.ID, stats.TrackCombat))

	// A GM may step in on any session.
	_, err = svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, "strength", +1, 2, true)
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), ch.ID, stats.TrackCombat, 2, true)
	require.NoError(t, err)
}

// Five concurrent adjusts fight over 3 remaining points where every stat sits
// at its species cap: the first limit break costs 2, the next would cost 3, so
// exactly one may win no matter how the calls interleave.
func TestConcurrentAdjustsCannotOverspendBudget(t *testing.T) {
	svc, db := newStatsService(t)
	ch := seedMaxedCombat(t, db, 1)

	_, err := svc.Initialize(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				svc.ExpireIdle(time.Now())
			}
		}
	}()

	names := stats.Names(stats.TrackCombat)
	errs := make(chan error, len(names))
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(stat string) {
			defer wg.Done()
			_, err := svc.Adjust(context.Background(), ch.ID, stats.TrackCombat, stat, +1, 1, false)
			errs <- err
		}(name)
	}
	wg.Wait()
	close(done)
	close(errs)

	won := 0
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, stats.ErrBudgetExhausted)
	}
	assert.Equal(t, 1, won)

	ov, err := svc.Apply(context.Background(), ch.ID, stats.TrackCombat, 1, false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ov.Remaining, 0)

	var fresh model.Character
	require.NoError(t, db.Where("id = ?", ch.ID).First(&fresh).Error)
	total := fresh.Strength + fresh.Dexterity + fresh.Vitality + fresh.Special + fresh.Insight
	assert.Equal(t, 21, total)
}
