package heuristics_test

import (
	"testing"

	"lintang/timemap/pkg/datastructure"
	"lintang/timemap/pkg/engine/heuristics"

	"github.com/stretchr/testify/assert"
)

func journey(total int64, legTimes ...int64) datastructure.Journey {
	legs := make([]datastructure.Leg, len(legTimes))
	for i, lt := range legTimes {
		legs[i] = datastructure.Leg{Time: lt}
	}
	return datastructure.Journey{Legs: legs, TotalTime: total}
}

func TestIsOvernightJourney(t *testing.T) {
	h := int64(3600)
	tests := []struct {
		name string
		j    datastructure.Journey
		want bool
	}{
		{"13h two legs one 8h leg", journey(13*h, 8*h, 4*h), true},
		{"single 10h leg", journey(10*h, 10*h), true},
		{"three legs rejected", journey(12*h, 8*h, 2*h, 1*h), false},
		{"15h total rejected", journey(15*h, 9*h, 5*h), false},
		{"exactly 14h rejected", journey(14*h, 9*h, 4*h), false},
		{"no long leg", journey(12*h, 6*h, 6*h), false},
		{"leg of exactly 7h is not long", journey(10*h, 7*h, 2*h), false},
		{"no legs", journey(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, heuristics.IsOvernightJourney(tt.j))
		})
	}
}

func TestFirstOvernightJourney(t *testing.T) {
	h := int64(3600)
	journeys := []datastructure.Journey{
		journey(5*h, 5*h),
		journey(11*h, 9*h, 1*h),
		journey(10*h, 10*h),
	}
	got, ok := heuristics.FirstOvernightJourney(journeys)
	assert.True(t, ok)
	assert.Equal(t, journeys[1], got)

	_, ok = heuristics.FirstOvernightJourney(journeys[:1])
	assert.False(t, ok)
}
