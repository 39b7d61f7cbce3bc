package util

import (
	"fmt"
	"math"
	"strings"
)

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// FormatTravelTime teks tooltip buat waktu tempuh (detik). maxTime = sentinel unreachable.
func FormatTravelTime(seconds int64, maxTime int64) string {
	minutesAway := seconds / 60
	if minutesAway == maxTime/60 {
		return "Very far away"
	}
	hoursAway := minutesAway / 60
	minutesAway -= hoursAway * 60

	parts := make([]string, 0, 3)
	if hoursAway > 0 {
		parts = append(parts, fmt.Sprintf("%d hours", hoursAway))
	}
	if minutesAway > 0 {
		parts = append(parts, fmt.Sprintf("%d minutes", minutesAway))
	}
	if len(parts) == 0 {
		return ""
	}
	parts = append(parts, "away")
	return strings.Join(parts, " ")
}
