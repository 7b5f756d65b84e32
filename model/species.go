package model

// Species defines the per-stat floor and ceiling a character of that species
// starts from. Characters are created at the Min values; a stat may pass Max
// only through limit breaks.
type Species struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;size:64;not null" json:"name"`

	StrengthMin  int `gorm:"default:1" json:"strength_min"`
	StrengthMax  int `gorm:"default:5" json:"strength_max"`
	DexterityMin int `gorm:"default:1" json:"dexterity_min"`
	DexterityMax int `gorm:"default:5" json:"dexterity_max"`
	VitalityMin  int `gorm:"default:1" json:"vitality_min"`
	VitalityMax  int `gorm:"default:5" json:"vitality_max"`
	SpecialMin   int `gorm:"default:1" json:"special_min"`
	SpecialMax   int `gorm:"default:5" json:"special_max"`
	InsightMin   int `gorm:"default:1" json:"insight_min"`
	InsightMax   int `gorm:"default:5" json:"insight_max"`

	ToughMin  int `gorm:"default:1" json:"tough_min"`
	ToughMax  int `gorm:"default:5" json:"tough_max"`
	CoolMin   int `gorm:"default:1" json:"cool_min"`
	CoolMax   int `gorm:"default:5" json:"cool_max"`
	BeautyMin int `gorm:"default:1" json:"beauty_min"`
	BeautyMax int `gorm:"default:5" json:"beauty_max"`
	CleverMin int `gorm:"default:1" json:"clever_min"`
	CleverMax int `gorm:"default:5" json:"clever_max"`
	CuteMin   int `gorm:"default:1" json:"cute_min"`
	CuteMax   int `gorm:"default:5" json:"cute_max"`
}
