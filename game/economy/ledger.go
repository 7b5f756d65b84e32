// Package economy moves money between holders (characters, wallets, shops)
// against the shared store. Both legs of a transfer run inside one storage
// transaction; each leg is still a compare-and-swap write, so a concurrent
// writer on either row aborts the whole transfer with nothing applied.
package economy

import (
	"context"
	"errors"

	"github.com/miyabiren/tabletop-companion/audit"
	"github.com/miyabiren/tabletop-companion/game/display"
	"github.com/miyabiren/tabletop-companion/model"
	"github.com/miyabiren/tabletop-companion/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger validates and executes fund movements.
type Ledger struct {
	db        *gorm.DB
	refresher display.Refresher
	aud       *audit.Service
	logger    *zap.Logger
}

// NewLedger creates a Ledger.
func NewLedger(db *gorm.DB, aud *audit.Service, refresher display.Refresher, logger *zap.Logger) *Ledger {
	return &Ledger{db: db, refresher: refresher, aud: aud, logger: logger}
}

// Balance returns a holder's current money.
func (l *Ledger) Balance(ctx context.Context, ref HolderRef) (int64, error) {
	table, err := tableFor(ref.Kind)
	if err != nil {
		return 0, err
	}
	bal, err := store.New(l.db).ReadNumeric(ctx, table, "money", ref.ID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrHolderNotFound
	}
	return bal, err
}

// ValidateFunds checks that the holder can cover the amount.
func (l *Ledger) ValidateFunds(ctx context.Context, ref HolderRef, amount int64) error {
	bal, err := l.Balance(ctx, ref)
	if err != nil {
		return err
	}
	if bal < amount {
		return ErrInsufficientFunds
	}
	return nil
}

// Transfer moves amount from src to dst on behalf of the requester.
// On any validation or CAS failure the transaction rolls back and neither
// balance changes; the attempt is still recorded in the ledger and audit log.
func (l *Ledger) Transfer(ctx context.Context, req Requester, src, dst HolderRef, amount int64, reason, traceID string) (*model.Transfer, error) {
	if amount <= 0 {
		return nil, ErrBadAmount
	}
	if src.Kind == dst.Kind && src.ID == dst.ID {
		return nil, ErrSameHolder
	}
	srcTable, err := tableFor(src.Kind)
	if err != nil {
		return nil, err
	}
	dstTable, err := tableFor(dst.Kind)
	if err != nil {
		return nil, err
	}

	rec := &model.Transfer{
		TraceID:    traceID,
		SourceKind: src.Kind,
		SourceID:   src.ID,
		DestKind:   dst.Kind,
		DestID:     dst.ID,
		Amount:     amount,
		Reason:     reason,
		ActorID:    req.AccountID,
	}

	committed := false
	txErr := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := authorize(tx, src, req); err != nil {
			return err
		}
		cas := store.New(tx)

		bal, err := cas.ReadNumeric(ctx, srcTable, "money", src.ID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrHolderNotFound
		}
		if err != nil {
			return err
		}
		if bal < amount {
			return ErrInsufficientFunds
		}

		// Debit leg.
		if err := cas.SetNumeric(ctx, srcTable, "money", src.ID, bal, bal-amount); err != nil {
			return err
		}
		// Credit leg. A failure here rolls the debit back with the transaction.
		if _, err := cas.ChangeNumeric(ctx, dstTable, "money", dst.ID, amount); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrHolderNotFound
			}
			return err
		}

		rec.Outcome = model.TransferOK
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		committed = true
		return nil
	})

	if txErr == nil {
		l.refresher.HolderChanged(ctx, src.Kind, src.ID)
		l.refresher.HolderChanged(ctx, dst.Kind, dst.ID)
		l.audit(req, rec, "")
		return rec, nil
	}

	if committed {
		// The callback finished but the commit itself failed: the driver may
		// or may not have applied both legs. Never silent, never auto-fixed.
		l.logger.Error("transfer outcome uncertain after commit failure",
			zap.String("trace_id", traceID),
			zap.String("source", src.Kind), zap.Int64("source_id", src.ID),
			zap.String("dest", dst.Kind), zap.Int64("dest_id", dst.ID),
			zap.Int64("amount", amount), zap.Error(txErr))
		rec.Outcome = model.TransferFailed
		l.record(rec)
		l.audit(req, rec, txErr.Error())
		return nil, ErrInternalInconsistency
	}

	if errors.Is(txErr, ErrInsufficientFunds) || errors.Is(txErr, ErrNotAuthorized) ||
		errors.Is(txErr, ErrHolderNotFound) {
		rec.Outcome = model.TransferRejected
	} else {
		rec.Outcome = model.TransferFailed
	}
	l.record(rec)
	l.audit(req, rec, txErr.Error())
	return nil, txErr
}

// Grant mints money onto a holder. GM only; used for session rewards.
func (l *Ledger) Grant(ctx context.Context, req Requester, dst HolderRef, amount int64, reason, traceID string) (int64, error) {
	if !req.GM {
		return 0, ErrNotAuthorized
	}
	if amount <= 0 {
		return 0, ErrBadAmount
	}
	table, err := tableFor(dst.Kind)
	if err != nil {
		return 0, err
	}
	next, err := store.New(l.db).ChangeNumeric(ctx, table, "money", dst.ID, amount)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrHolderNotFound
	}
	if err != nil {
		return 0, err
	}
	l.refresher.HolderChanged(ctx, dst.Kind, dst.ID)
	l.aud.Log(audit.Entry{
		TraceID:   traceID,
		AccountID: &req.AccountID,
		Action:    "money_grant",
		Detail: map[string]interface{}{
			"dest":    dst.Kind,
			"dest_id": dst.ID,
			"amount":  amount,
			"reason":  reason,
		},
	})
	return next, nil
}

// Recent returns the latest ledger entries touching a holder.
func (l *Ledger) Recent(ctx context.Context, ref HolderRef, limit int) ([]model.Transfer, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []model.Transfer
	err := l.db.WithContext(ctx).
		Where("(source_kind = ? AND source_id = ?) OR (dest_kind = ? AND dest_id = ?)",
			ref.Kind, ref.ID, ref.Kind, ref.ID).
		Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// record persists a failed or rejected attempt outside the rolled-back
// transaction. Best-effort.
func (l *Ledger) record(rec *model.Transfer) {
	if err := l.db.Create(rec).Error; err != nil {
		l.logger.Warn("ledger record write failed", zap.Error(err))
	}
}

func (l *Ledger) audit(req Requester, rec *model.Transfer, errMsg string) {
	l.aud.Log(audit.Entry{
		TraceID:   rec.TraceID,
		AccountID: &req.AccountID,
		Action:    "money_transfer",
		Detail: map[string]interface{}{
			"source":      rec.SourceKind,
			"source_id":   rec.SourceID,
			"source_name": holderName(l.db, HolderRef{Kind: rec.SourceKind, ID: rec.SourceID}),
			"dest":        rec.DestKind,
			"dest_id":     rec.DestID,
			"dest_name":   holderName(l.db, HolderRef{Kind: rec.DestKind, ID: rec.DestID}),
			"amount":      rec.Amount,
			"reason":      rec.Reason,
			"outcome":     rec.Outcome,
		},
		Error: errMsg,
	})
}
