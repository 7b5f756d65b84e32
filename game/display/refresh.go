// Package display notifies interested front ends that a holder's public
// status changed and should be re-rendered. Delivery is best-effort; the
// rendering itself lives outside this service.
package display

import (
	"context"
	"encoding/json"
	"time"

	"github.com/miyabiren/tabletop-companion/cache"
	"go.uber.org/zap"
)

// Channel is the pub/sub channel display-refresh events are published on.
const Channel = "display"

// Refresher receives post-commit change notifications.
type Refresher interface {
	HolderChanged(ctx context.Context, kind string, id int64)
}

// Event is the payload published for each changed holder.
type Event struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	At   int64  `json:"at"` // unix millis
}

// PubSubRefresher publishes refresh events on the cache pub/sub.
type PubSubRefresher struct {
	ps     cache.PubSub
	logger *zap.Logger
}

// NewPubSub creates a pub/sub backed Refresher.
func NewPubSub(ps cache.PubSub, logger *zap.Logger) *PubSubRefresher {
	return &PubSubRefresher{ps: ps, logger: logger}
}

// HolderChanged publishes a refresh event. Failures are swallowed after a warning.
func (r *PubSubRefresher) HolderChanged(ctx context.Context, kind string, id int64) {
	payload, _ := json.Marshal(Event{Kind: kind, ID: id, At: time.Now().UnixMilli()})
	if err := r.ps.Publish(ctx, Channel, string(payload)); err != nil {
		r.logger.Warn("display refresh publish failed",
			zap.String("kind", kind), zap.Int64("id", id), zap.Error(err))
	}
}

// Nop is a Refresher that does nothing; handy for tests.
type Nop struct{}

func (Nop) HolderChanged(context.Context, string, int64) {}
