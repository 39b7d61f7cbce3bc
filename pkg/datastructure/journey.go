package datastructure

import (
	"errors"
	"fmt"
	"time"
)

// timestamp dari journey service kadang tanpa colon di offset
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05-0700"}

var ErrMalformedJourney = errors.New("malformed journey")

// StationDetails hasil station search (best match).
type StationDetails struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Place struct {
	Name string `json:"name"`
	// Location nil kalau response tidak ada field location.
	Location *Location `json:"location"`
}

type Leg struct {
	Origin      Place  `json:"origin"`
	Destination Place  `json:"destination"`
	Departure   string `json:"departure"`
	Arrival     string `json:"arrival"`
	// Time durasi leg dalam detik, dihitung dari arrival - departure.
	Time int64 `json:"time"`
}

type Journey struct {
	Legs      []Leg `json:"legs"`
	TotalTime int64 `json:"totalTime"`
}

func ParseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (l Leg) Duration() (int64, error) {
	dep, err := ParseTimestamp(l.Departure)
	if err != nil {
		return 0, fmt.Errorf("%w: departure %q: %v", ErrMalformedJourney, l.Departure, err)
	}
	arr, err := ParseTimestamp(l.Arrival)
	if err != nil {
		return 0, fmt.Errorf("%w: arrival %q: %v", ErrMalformedJourney, l.Arrival, err)
	}
	if arr.Before(dep) {
		return 0, fmt.Errorf("%w: arrival %s before departure %s", ErrMalformedJourney, l.Arrival, l.Departure)
	}
	return int64(arr.Sub(dep).Seconds()), nil
}

// Validate cek field yang dibutuhkan buat augmentation.
func (j *Journey) Validate() error {
	if len(j.Legs) == 0 {
		return fmt.Errorf("%w: no legs", ErrMalformedJourney)
	}
	for i, leg := range j.Legs {
		if leg.Origin.Name == "" || leg.Destination.Name == "" {
			return fmt.Errorf("%w: leg %d has no endpoint name", ErrMalformedJourney, i)
		}
		for _, p := range []Place{leg.Origin, leg.Destination} {
			if p.Location == nil {
				return fmt.Errorf("%w: leg %d endpoint %q has no location", ErrMalformedJourney, i, p.Name)
			}
		}
		if _, err := leg.Duration(); err != nil {
			return fmt.Errorf("leg %d: %w", i, err)
		}
	}
	return nil
}

// ComputeTimes isi Time tiap leg dan TotalTime (first departure -> last arrival).
func (j *Journey) ComputeTimes() error {
	if err := j.Validate(); err != nil {
		return err
	}
	for i := range j.Legs {
		j.Legs[i].Time, _ = j.Legs[i].Duration()
	}
	total := Leg{Departure: j.Legs[0].Departure, Arrival: j.Legs[len(j.Legs)-1].Arrival}
	d, err := total.Duration()
	if err != nil {
		return err
	}
	j.TotalTime = d
	return nil
}
