// Package store provides the shared compare-and-swap primitive for numeric
// columns mutated by concurrent requests. Every money movement and every
// stat-shadow write goes through it, so at most one concurrent writer can win
// any single-row update.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrStaleWrite means another writer changed the row between our read and
	// our conditional update. The caller must re-read and retry.
	ErrStaleWrite = errors.New("store: concurrent modification detected")

	// ErrNotFound means the target row does not exist.
	ErrNotFound = errors.New("store: record not found")
)

// Tables holding CAS-protected numeric columns.
const (
	TableCharacters = "characters"
	TableWallets    = "wallets"
	TableShops      = "shops"
)

// columns that may be addressed by name. Guards the SQL built below against
// anything that did not originate in our own code.
var allowedColumns = map[string]bool{
	"money":            true,
	"strength":         true,
	"dexterity":        true,
	"vitality":         true,
	"special":          true,
	"insight":          true,
	"tough":            true,
	"cool":             true,
	"beauty":           true,
	"clever":           true,
	"cute":             true,
	"strength_shadow":  true,
	"dexterity_shadow": true,
	"vitality_shadow":  true,
	"special_shadow":   true,
	"insight_shadow":   true,
	"tough_shadow":     true,
	"cool_shadow":      true,
	"beauty_shadow":    true,
	"clever_shadow":    true,
	"cute_shadow":      true,
}

var allowedTables = map[string]bool{
	TableCharacters: true,
	TableWallets:    true,
	TableShops:      true,
}

// Optimistic issues conditional single-row updates through GORM. Construct it
// with a transaction handle to make the CAS check part of an enclosing
// transaction's snapshot.
type Optimistic struct {
	db *gorm.DB
}

// New creates an Optimistic store over the given DB or transaction handle.
func New(db *gorm.DB) *Optimistic {
	return &Optimistic{db: db}
}

// ReadNumeric returns the current value of a numeric column.
func (o *Optimistic) ReadNumeric(ctx context.Context, table, column string, id int64) (int64, error) {
	if err := check(table, column); err != nil {
		return 0, err
	}
	row := o.db.WithContext(ctx).Table(table).Select(column).Where("id = ?", id).Row()
	var cur int64
	if err := row.Scan(&cur); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return cur, nil
}

// ChangeNumeric reads the column, then issues
// "SET column = current+delta WHERE id = ? AND column = current".
// Zero rows affected means a concurrent writer won; ErrStaleWrite is returned
// and nothing was changed. Retrying with a fresh read applies the delta at
// most once.
func (o *Optimistic) ChangeNumeric(ctx context.Context, table, column string, id, delta int64) (int64, error) {
	cur, err := o.ReadNumeric(ctx, table, column, id)
	if err != nil {
		return 0, err
	}
	next := cur + delta
	if err := o.SetNumeric(ctx, table, column, id, cur, next); err != nil {
		return 0, err
	}
	return next, nil
}

// SetNumeric swaps the column to next only if it still holds expected.
func (o *Optimistic) SetNumeric(ctx context.Context, table, column string, id, expected, next int64) error {
	if err := check(table, column); err != nil {
		return err
	}
	res := o.db.WithContext(ctx).Table(table).
		Where("id = ? AND "+column+" = ?", id, expected).
		Update(column, next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func check(table, column string) error {
	if !allowedTables[table] {
		return fmt.Errorf("store: table %q not CAS-managed", table)
	}
	if !allowedColumns[column] {
		return fmt.Errorf("store: column %q not CAS-managed", column)
	}
	return nil
}
