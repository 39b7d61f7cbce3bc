package layout

import (
	"errors"
	"fmt"
	"math"

	"lintang/timemap/pkg/datastructure"
)

const (
	// LonCompression kompensasi distorsi longitude di lintang tengah eropa.
	LonCompression = 0.767
	// BearingOffset rotasi 30 derajat, cuma buat orientasi visual.
	BearingOffset = 30.0 / 180.0 * math.Pi
	// GeoFallbackScale skala radius kalau belum ada travel time.
	GeoFallbackScale = 5.0

	DefaultHorizonSeconds = 140 * 60
	DefaultRingSeconds    = 2 * 60 * 60
)

var ErrUnknownOrigin = errors.New("origin station is not registered")

type Projector struct {
	horizonSeconds float64
}

func NewProjector(horizonSeconds int64) *Projector {
	if horizonSeconds <= 0 {
		horizonSeconds = DefaultHorizonSeconds
	}
	return &Projector{horizonSeconds: float64(horizonSeconds)}
}

// RingRadius radius lingkaran ring (mis. 2 jam) di layout space.
func (p *Projector) RingRadius(ringSeconds int64) float64 {
	return float64(ringSeconds) / p.horizonSeconds
}

// Project posisi 2D tiap station relatif ke origin.
// angle dari bearing equirectangular, radius dari travel time / horizon,
// atau dari jarak geografis * 5 kalau times nil.
func (p *Projector) Project(origin string, stations []datastructure.Station, times datastructure.TravelTimes) (datastructure.StationPositions, error) {
	var originSt *datastructure.Station
	for i := range stations {
		if stations[i].Name == origin {
			originSt = &stations[i]
			break
		}
	}
	if originSt == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrigin, origin)
	}

	positions := make(datastructure.StationPositions, len(stations))
	for _, st := range stations {
		lat, lon := st.Lat, st.Lon
		if !st.HasLocation {
			// belum ada koordinat, anggap di lokasi origin
			lat, lon = originSt.Lat, originSt.Lon
		}
		deltaY := lat - originSt.Lat
		deltaX := (lon - originSt.Lon) * LonCompression
		angle := math.Atan2(deltaY, deltaX) + BearingOffset

		var dist float64
		if times != nil {
			dist = float64(times[st.Name]) / p.horizonSeconds
		} else {
			dist = math.Sqrt(deltaX*deltaX+deltaY*deltaY) * GeoFallbackScale
		}

		positions[st.Name] = datastructure.Position{
			X: math.Cos(angle) * dist,
			Y: math.Sin(angle) * dist,
		}
	}
	return positions, nil
}

func Project(origin string, stations []datastructure.Station, times datastructure.TravelTimes, horizonSeconds int64) (datastructure.StationPositions, error) {
	return NewProjector(horizonSeconds).Project(origin, stations, times)
}
