package heuristics

import (
	"lintang/timemap/pkg/datastructure"
)

const (
	MaxOvernightTotalSeconds = 14 * 3600
	MaxOvernightLegs         = 2
	MinOvernightLegSeconds   = 7 * 3600
)

// IsOvernightJourney journey dianggap punya segment malam kalau total < 14 jam, leg <= 2,
// dan minimal satu leg lebih dari 7 jam (leg panjang itu yang dianggap kereta malam).
func IsOvernightJourney(j datastructure.Journey) bool {
	if j.TotalTime >= MaxOvernightTotalSeconds || len(j.Legs) > MaxOvernightLegs {
		return false
	}
	for _, leg := range j.Legs {
		if leg.Time > MinOvernightLegSeconds {
			return true
		}
	}
	return false
}

// FirstOvernightJourney journey pertama (urutan dari service) yang lolos IsOvernightJourney.
func FirstOvernightJourney(journeys []datastructure.Journey) (datastructure.Journey, bool) {
	for _, j := range journeys {
		if IsOvernightJourney(j) {
			return j, true
		}
	}
	return datastructure.Journey{}, false
}
