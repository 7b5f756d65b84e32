package economy

import (
	"github.com/miyabiren/tabletop-companion/model"
	"github.com/miyabiren/tabletop-companion/store"
	"gorm.io/gorm"
)

// Holder kinds. Anything with a money balance is a holder.
const (
	KindCharacter = "character"
	KindWallet    = "wallet"
	KindShop      = "shop"
)

// HolderRef names one side of a transfer.
type HolderRef struct {
	Kind string `json:"kind" binding:"required"`
	ID   int64  `json:"id" binding:"required"`
}

// Requester is the authenticated actor behind a ledger operation.
type Requester struct {
	AccountID int64
	GM        bool
}

func tableFor(kind string) (string, error) {
	switch kind {
	case KindCharacter:
		return store.TableCharacters, nil
	case KindWallet:
		return store.TableWallets, nil
	case KindShop:
		return store.TableShops, nil
	default:
		return "", ErrUnknownKind
	}
}

// holderName resolves a holder's display name for audit lines.
func holderName(db *gorm.DB, ref HolderRef) string {
	var name string
	switch ref.Kind {
	case KindCharacter:
		var ch model.Character
		if db.Select("name").Where("id = ?", ref.ID).First(&ch).Error == nil {
			name = ch.Name
		}
	case KindWallet:
		var w model.Wallet
		if db.Select("name").Where("id = ?", ref.ID).First(&w).Error == nil {
			name = w.Name
		}
	case KindShop:
		var s model.Shop
		if db.Select("name").Where("id = ?", ref.ID).First(&s).Error == nil {
			name = s.Name
		}
	}
	return name
}

// authorize checks that the requester may move funds out of the holder.
// Characters require ownership; wallets require a WalletOwner row through one
// of the requester's characters; shops require the owning character, or GM
// for GM-run shops. GMs pass every check.
func authorize(db *gorm.DB, ref HolderRef, req Requester) error {
	if req.GM {
		return nil
	}
	switch ref.Kind {
	case KindCharacter:
		var ch model.Character
		if err := db.Select("account_id").Where("id = ?", ref.ID).First(&ch).Error; err != nil {
			return ErrHolderNotFound
		}
		if ch.AccountID != req.AccountID {
			return ErrNotAuthorized
		}
		return nil
	case KindWallet:
		var owners []model.WalletOwner
		err := db.
			Joins("JOIN characters ON characters.id = wallet_owners.char_id").
			Where("wallet_owners.wallet_id = ? AND characters.account_id = ?", ref.ID, req.AccountID).
			Find(&owners).Error
		if err != nil {
			return err
		}
		if len(owners) == 0 {
			return ErrNotAuthorized
		}
		return nil
	case KindShop:
		var shop model.Shop
		if err := db.Where("id = ?", ref.ID).First(&shop).Error; err != nil {
			return ErrHolderNotFound
		}
		if shop.OwnerCharID == nil {
			return ErrNotAuthorized
		}
		var ch model.Character
		if err := db.Select("account_id").Where("id = ?", *shop.OwnerCharID).First(&ch).Error; err != nil {
			return ErrNotAuthorized
		}
		if ch.AccountID != req.AccountID {
			return ErrNotAuthorized
		}
		return nil
	default:
		return ErrUnknownKind
	}
}
