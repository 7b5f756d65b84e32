package model

import "time"

// Character is a player-owned character sheet. The ten stat columns hold the
// committed values; the *_shadow columns hold the scratch copy used by an open
// stat-edit session and are meaningless while no session is open.
type Character struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	GuildID   int64  `gorm:"index:idx_char_guild;not null" json:"guild_id"`
	AccountID int64  `gorm:"index:idx_char_account;not null" json:"account_id"`
	Name      string `gorm:"index:idx_char_name;size:32;not null" json:"name"`
	SpeciesID int64  `gorm:"not null" json:"species_id"`
	Level     int    `gorm:"default:1" json:"level"`
	Exp       int64  `gorm:"default:0" json:"exp"`
	Money     int64  `gorm:"default:0" json:"money"`

	// Combat stats
	Strength  int `gorm:"not null" json:"strength"`
	Dexterity int `gorm:"not null" json:"dexterity"`
	Vitality  int `gorm:"not null" json:"vitality"`
	Special   int `gorm:"not null" json:"special"`
	Insight   int `gorm:"not null" json:"insight"`

	// Social stats
	Tough  int `gorm:"not null" json:"tough"`
	Cool   int `gorm:"not null" json:"cool"`
	Beauty int `gorm:"not null" json:"beauty"`
	Clever int `gorm:"not null" json:"clever"`
	Cute   int `gorm:"not null" json:"cute"`

	// Edit-session shadows
	StrengthShadow  int `gorm:"default:0" json:"-"`
	DexterityShadow int `gorm:"default:0" json:"-"`
	VitalityShadow  int `gorm:"default:0" json:"-"`
	SpecialShadow   int `gorm:"default:0" json:"-"`
	InsightShadow   int `gorm:"default:0" json:"-"`
	ToughShadow     int `gorm:"default:0" json:"-"`
	CoolShadow      int `gorm:"default:0" json:"-"`
	BeautyShadow    int `gorm:"default:0" json:"-"`
	CleverShadow    int `gorm:"default:0" json:"-"`
	CuteShadow      int `gorm:"default:0" json:"-"`

	Retired   bool      `gorm:"default:false" json:"retired"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
