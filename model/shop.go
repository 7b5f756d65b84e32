package model

import "time"

// Shop is a money-holding storefront. OwnerCharID is nil for GM-run shops.
type Shop struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID     int64     `gorm:"index:idx_shop_guild;not null" json:"guild_id"`
	Name        string    `gorm:"size:64;not null" json:"name"`
	Money       int64     `gorm:"default:0" json:"money"`
	OwnerCharID *int64    `json:"owner_char_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
