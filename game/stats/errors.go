package stats

import "errors"

// Validation failures returned to the requesting user. Handlers map these to
// 4xx responses; none of them change persisted state.
var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrCharacterRetired  = errors.New("character is retired")
	ErrNotOwner          = errors.New("you do not own this character")
	ErrBudgetExhausted   = errors.New("no stat points remaining")
	ErrNoSession         = errors.New("no open edit session for this track")
	ErrUnknownStat       = errors.New("unknown stat for this track")
	ErrBadDelta          = errors.New("delta must be +1 or -1")
	ErrBelowMin          = errors.New("cannot go below species minimum")
	ErrBelowCommitted    = errors.New("cannot reduce below committed value")
)
