package model

import "time"

// Wallet is a shared money pool inside one guild.
type Wallet struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   int64     `gorm:"index:idx_wallet_guild;not null" json:"guild_id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Money     int64     `gorm:"default:0" json:"money"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// WalletOwner links a character to a wallet it may withdraw from.
type WalletOwner struct {
	WalletID int64     `gorm:"primaryKey;index:idx_wallet_owner" json:"wallet_id"`
	CharID   int64     `gorm:"primaryKey;index:idx_owner_wallet" json:"char_id"`
	AddedAt  time.Time `gorm:"autoCreateTime" json:"added_at"`
}
