package model

import "time"

// Account is a registered player (or game master) of the companion service.
type Account struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash string     `gorm:"size:128;not null" json:"-"`
	Status       int        `gorm:"default:1" json:"status"` // 0=banned 1=active
	GM           bool       `gorm:"default:false" json:"gm"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	LastLoginIP  string     `gorm:"size:45" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
