package model

import "time"

// Transfer outcomes.
const (
	TransferOK       = "ok"
	TransferRejected = "rejected"
	TransferFailed   = "failed"
)

// Transfer is one ledger entry: an attempted move of money between two holders.
type Transfer struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID    string    `gorm:"index:idx_transfer_trace;size:36" json:"trace_id"`
	SourceKind string    `gorm:"size:16;not null" json:"source_kind"`
	SourceID   int64     `gorm:"index:idx_transfer_src;not null" json:"source_id"`
	DestKind   string    `gorm:"size:16;not null" json:"dest_kind"`
	DestID     int64     `gorm:"index:idx_transfer_dst;not null" json:"dest_id"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Reason     string    `gorm:"size:128" json:"reason"`
	Outcome    string    `gorm:"size:16;not null" json:"outcome"`
	ActorID    int64     `gorm:"not null" json:"actor_id"`
	CreatedAt  time.Time `gorm:"index:idx_transfer_created;autoCreateTime:milli" json:"created_at"`
}
