package stats

import "github.com/miyabiren/tabletop-companion/model"

// committedValues reads the five committed stat values of a track from a sheet.
func committedValues(ch *model.Character, t Track) [5]int {
	if t == TrackSocial {
		return [5]int{ch.Tough, ch.Cool, ch.Beauty, ch.Clever, ch.Cute}
	}
	return [5]int{ch.Strength, ch.Dexterity, ch.Vitality, ch.Special, ch.Insight}
}

// speciesBounds reads the per-stat floors and ceilings of a track.
func speciesBounds(sp *model.Species, t Track) (mins, maxs [5]int) {
	if t == TrackSocial {
		mins = [5]int{sp.ToughMin, sp.CoolMin, sp.BeautyMin, sp.CleverMin, sp.CuteMin}
		maxs = [5]int{sp.ToughMax, sp.CoolMax, sp.BeautyMax, sp.CleverMax, sp.CuteMax}
		return
	}
	mins = [5]int{sp.StrengthMin, sp.DexterityMin, sp.VitalityMin, sp.SpecialMin, sp.InsightMin}
	maxs = [5]int{sp.StrengthMax, sp.DexterityMax, sp.VitalityMax, sp.SpecialMax, sp.InsightMax}
	return
}

// BaselineValues returns the species floors for every stat column of a new
// character, keyed by column name. Used at creation and administrative reset.
func BaselineValues(sp *model.Species) map[string]interface{} {
	vals := make(map[string]interface{}, 10)
	for _, t := range []Track{TrackCombat, TrackSocial} {
		mins, _ := speciesBounds(sp, t)
		for i, name := range Names(t) {
			vals[name] = mins[i]
		}
	}
	return vals
}

func shadowColumn(name string) string { return name + "_shadow" }
