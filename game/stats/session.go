package stats

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miyabiren/tabletop-companion/audit"
	"github.com/miyabiren/tabletop-companion/game/display"
	"github.com/miyabiren/tabletop-companion/model"
	"github.com/miyabiren/tabletop-companion/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sessionKey identifies the single open session allowed per character and track.
type sessionKey struct {
	CharID int64
	Track  Track
}

// Session is the scratch state of one open stat edit. Shadow holds the
// editable values; Committed is the baseline no stat may drop below within
// the session. Only the account that opened the session (or a GM) may
// drive it.
type Session struct {
	CharID    int64
	Track     Track
	AccountID int64
	Level     int
	Committed [5]int
	Mins      [5]int
	Maxs      [5]int

	// mu serializes shadow mutations, so the budget check and the CAS write
	// it authorizes cannot interleave with another adjust on the same session.
	mu     sync.Mutex
	Shadow [5]int

	touched atomic.Int64 // unix nanoseconds of the last interaction
}

func (s *Session) touch() { s.touched.Store(time.Now().UnixNano()) }

func (s *Session) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.touched.Load()))
}

func (s *Session) lines() [5]Line {
	var out [5]Line
	for i := 0; i < 5; i++ {
		out[i] = Line{Current: s.Shadow[i], Min: s.Mins[i], Max: s.Maxs[i]}
	}
	return out
}

// StatLine is one rendered row of an overview.
type StatLine struct {
	Name    string `json:"name"`
	Current int    `json:"current"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
}

// Overview is the refreshed stat block returned after every session operation.
type Overview struct {
	CharID        int64      `json:"char_id"`
	Track         string     `json:"track"`
	Lines         []StatLine `json:"lines"`
	Remaining     int        `json:"remaining"`
	NextPointCost int        `json:"next_point_cost"`
}

// Editor is the capability surface a front end drives a stat edit session
// through. Chat buttons, a CLI, or the REST gateway all speak these four
// operations; none of them see the session registry underneath. Every
// operation carries the requesting account so the session owner check
// happens here, not in the transport.
type Editor interface {
	Initialize(ctx context.Context, charID int64, track Track, requesterID int64, gm bool) (*Overview, error)
	Adjust(ctx context.Context, charID int64, track Track, statName string, delta int, requesterID int64, gm bool) (*Overview, error)
	Apply(ctx context.Context, charID int64, track Track, requesterID int64, gm bool) (*Overview, error)
	Cancel(ctx context.Context, charID int64, track Track, requesterID int64, gm bool) error
}

var _ Editor = (*Service)(nil)

// Service manages all open stat edit sessions.
type Service struct {
	db        *gorm.DB
	cas       *store.Optimistic
	refresher display.Refresher
	aud       *audit.Service
	logger    *zap.Logger
	ttl       time.Duration

	mu     sync.Mutex
	active map[sessionKey]*Session
}

// NewService creates a stat edit Service. Sessions idle longer than ttl are
// discarded by ExpireIdle.
func NewService(db *gorm.DB, aud *audit.Service, refresher display.Refresher, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		db:        db,
		cas:       store.New(db),
		refresher: refresher,
		aud:       aud,
		logger:    logger,
		ttl:       ttl,
		active:    make(map[sessionKey]*Session),
	}
}

// Initialize opens an edit session for one character and track. It copies the
// committed values into the shadow columns and returns the first overview.
// Re-initializing replaces any previous session for the same key, which also
// clears shadow residue left behind by a timed-out session.
func (svc *Service) Initialize(ctx context.Context, charID int64, track Track, requesterID int64, gm bool) (*Overview, error) {
	var ch model.Character
	if err := svc.db.WithContext(ctx).Where("id = ?", charID).First(&ch).Error; err != nil {
		return nil, ErrCharacterNotFound
	}
	if ch.Retired {
		return nil, ErrCharacterRetired
	}
	if ch.AccountID != requesterID && !gm {
		return nil, ErrNotOwner
	}
	var sp model.Species
	if err := svc.db.WithContext(ctx).Where("id = ?", ch.SpeciesID).First(&sp).Error; err != nil {
		return nil, ErrCharacterNotFound
	}

	sess := &Session{
		CharID:    charID,
		Track:     track,
		AccountID: requesterID,
		Level:     ch.Level,
		Committed: committedValues(&ch, track),
	}
	sess.Mins, sess.Maxs = speciesBounds(&sp, track)
	sess.Shadow = sess.Committed
	sess.touch()

	if RemainingBudget(track, sess.lines(), ch.Level) <= 0 {
		return nil, ErrBudgetExhausted
	}

	// Seed the shadow columns from the committed values.
	vals := make(map[string]interface{}, 5)
	for i, name := range Names(track) {
		vals[shadowColumn(name)] = sess.Committed[i]
	}
	if err := svc.db.WithContext(ctx).Model(&model.Character{}).
		Where("id = ?", charID).Updates(vals).Error; err != nil {
		return nil, err
	}

	svc.mu.Lock()
	svc.active[sessionKey{CharID: charID, Track: track}] = sess
	svc.mu.Unlock()

	svc.aud.Log(audit.Entry{
		AccountID: &requesterID,
		CharID:    &charID,
		CharName:  ch.Name,
		Action:    "stat_session_open",
		Detail:    map[string]interface{}{"track": track.String()},
	})
	return svc.overview(sess), nil
}

// Adjust moves one shadow stat by +1 or -1 and persists the single field
// through the CAS primitive, so concurrent sessions cannot silently clobber
// each other's writes. The session mutex is held across the budget check and
// the write; two in-flight adjusts on the same session run one after the
// other and cannot both spend the last point.
func (svc *Service) Adjust(ctx context.Context, charID int64, track Track, statName string, delta int, requesterID int64, gm bool) (*Overview, error) {
	sess := svc.get(charID, track)
	if sess == nil {
		return nil, ErrNoSession
	}
	if sess.AccountID != requesterID && !gm {
		return nil, ErrNotOwner
	}
	idx := StatIndex(track, statName)
	if idx < 0 {
		return nil, ErrUnknownStat
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	cur := sess.Shadow[idx]
	var next int
	switch delta {
	case +1:
		remaining := RemainingBudget(track, sess.lines(), sess.Level)
		if remaining <= 0 {
			return nil, ErrBudgetExhausted
		}
		next = cur + 1
		if next > sess.Maxs[idx] {
			// Going past the cap costs the limit-break price, not 1.
			if remaining < NextPointCost(OverflowPoints(sess.lines())) {
				return nil, ErrBudgetExhausted
			}
		}
	case -1:
		next = cur - 1
		if next < sess.Mins[idx] {
			return nil, ErrBelowMin
		}
		if cur <= sess.Committed[idx] {
			return nil, ErrBelowCommitted
		}
	default:
		return nil, ErrBadDelta
	}

	err := svc.cas.SetNumeric(ctx, store.TableCharacters,
		shadowColumn(statName), charID, int64(cur), int64(next))
	if err != nil {
		return nil, err
	}

	sess.Shadow[idx] = next
	sess.touch()
	return svc.overview(sess), nil
}

// Apply promotes the shadow values of the open track to the committed stats
// in one conditional update and closes the session. The update is guarded by
// the committed baseline, so a concurrent Apply on the same character loses
// with ErrStaleWrite instead of overwriting.
func (svc *Service) Apply(ctx context.Context, charID int64, track Track, requesterID int64, gm bool) (*Overview, error) {
	sess := svc.get(charID, track)
	if sess == nil {
		return nil, ErrNoSession
	}
	if sess.AccountID != requesterID && !gm {
		return nil, ErrNotOwner
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Budget is enforced against the character's level at the moment of apply.
	var ch model.Character
	if err := svc.db.WithContext(ctx).Where("id = ?", charID).First(&ch).Error; err != nil {
		return nil, ErrCharacterNotFound
	}
	if RemainingBudget(track, sess.lines(), ch.Level) < 0 {
		return nil, ErrBudgetExhausted
	}

	vals := make(map[string]interface{}, 5)
	for i, name := range Names(track) {
		vals[name] = sess.Shadow[i]
	}
	q := svc.db.WithContext(ctx).Model(&model.Character{}).Where("id = ?", charID)
	for i, name := range Names(track) {
		q = q.Where(name+" = ?", sess.Committed[i])
	}
	res := q.Updates(vals)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrStaleWrite
	}

	svc.remove(charID, track)
	svc.refresher.HolderChanged(ctx, "character", charID)
	svc.aud.Log(audit.Entry{
		AccountID: &sess.AccountID,
		CharID:    &charID,
		CharName:  ch.Name,
		Action:    "stat_apply",
		Detail: map[string]interface{}{
			"track":    track.String(),
			"invested": InvestedPoints(sess.lines()),
			"overflow": OverflowPoints(sess.lines()),
		},
	})
	return svc.overview(sess), nil
}

// Cancel discards the session without touching committed values.
func (svc *Service) Cancel(ctx context.Context, charID int64, track Track, requesterID int64, gm bool) error {
	sess := svc.get(charID, track)
	if sess == nil {
		return ErrNoSession
	}
	if sess.AccountID != requesterID && !gm {
		return ErrNotOwner
	}
	svc.remove(charID, track)
	svc.aud.Log(audit.Entry{
		AccountID: &sess.AccountID,
		CharID:    &charID,
		Action:    "stat_session_cancel",
		Detail:    map[string]interface{}{"track": track.String()},
	})
	return nil
}

// ExpireIdle closes sessions that have seen no interaction within the TTL.
// Shadow writes already persisted stay in place; the next Initialize
// overwrites them. Returns the number of sessions expired.
func (svc *Service) ExpireIdle(now time.Time) int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	n := 0
	for key, sess := range svc.active {
		if sess.idle(now) > svc.ttl {
			delete(svc.active, key)
			n++
			svc.logger.Info("stat session timed out",
				zap.Int64("char_id", key.CharID),
				zap.String("track", key.Track.String()))
		}
	}
	return n
}

// Open reports whether a session is currently open for the key.
func (svc *Service) Open(charID int64, track Track) bool {
	return svc.get(charID, track) != nil
}

func (svc *Service) get(charID int64, track Track) *Session {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.active[sessionKey{CharID: charID, Track: track}]
}

func (svc *Service) remove(charID int64, track Track) {
	svc.mu.Lock()
	delete(svc.active, sessionKey{CharID: charID, Track: track})
	svc.mu.Unlock()
}

func (svc *Service) overview(sess *Session) *Overview {
	names := Names(sess.Track)
	lines := make([]StatLine, 5)
	for i := 0; i < 5; i++ {
		lines[i] = StatLine{
			Name:    names[i],
			Current: sess.Shadow[i],
			Min:     sess.Mins[i],
			Max:     sess.Maxs[i],
		}
	}
	return &Overview{
		CharID:        sess.CharID,
		Track:         sess.Track.String(),
		Lines:         lines,
		Remaining:     RemainingBudget(sess.Track, sess.lines(), sess.Level),
		NextPointCost: NextPointCost(OverflowPoints(sess.lines())),
	}
}
