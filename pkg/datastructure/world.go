package datastructure

import (
	"errors"
	"fmt"
)

var ErrUnknownStation = errors.New("station is not registered")

// WorldState station registry + connection list + origin saat ini.
// Station & connection hanya pernah ditambah, tidak pernah dihapus.
type WorldState struct {
	stations    map[string]*Station
	order       []string
	connections []Connection

	Origin string
}

func NewWorldState() *WorldState {
	return &WorldState{
		stations:    make(map[string]*Station),
		order:       make([]string, 0),
		connections: make([]Connection, 0),
	}
}

// AddStation register station baru. Kalau station sudah ada, cuma backfill lokasi kalau sebelumnya belum punya lokasi.
// return true kalau station baru di register.
func (w *WorldState) AddStation(s Station) bool {
	if existing, ok := w.stations[s.Name]; ok {
		if !existing.HasLocation && s.HasLocation {
			existing.Lat = s.Lat
			existing.Lon = s.Lon
			existing.HasLocation = true
		}
		return false
	}
	st := s
	w.stations[s.Name] = &st
	w.order = append(w.order, s.Name)
	return true
}

func (w *WorldState) HasStation(name string) bool {
	_, ok := w.stations[name]
	return ok
}

func (w *WorldState) GetStation(name string) (Station, bool) {
	s, ok := w.stations[name]
	if !ok {
		return Station{}, false
	}
	return *s, true
}

// Stations return copy semua station sesuai urutan registrasi.
func (w *WorldState) Stations() []Station {
	stations := make([]Station, 0, len(w.order))
	for _, name := range w.order {
		stations = append(stations, *w.stations[name])
	}
	return stations
}

func (w *WorldState) StationNames() []string {
	names := make([]string, len(w.order))
	copy(names, w.order)
	return names
}

func (w *WorldState) NumStations() int {
	return len(w.order)
}

// AddConnection kedua endpoint harus sudah di register.
func (w *WorldState) AddConnection(c Connection) error {
	if !w.HasStation(c.From) {
		return fmt.Errorf("connection %q: %w: %s", c.Name, ErrUnknownStation, c.From)
	}
	if !w.HasStation(c.To) {
		return fmt.Errorf("connection %q: %w: %s", c.Name, ErrUnknownStation, c.To)
	}
	if c.Weight < 0 {
		return fmt.Errorf("connection %q has negative weight %d", c.Name, c.Weight)
	}
	w.connections = append(w.connections, c)
	return nil
}

func (w *WorldState) Connections() []Connection {
	conns := make([]Connection, len(w.connections))
	copy(conns, w.connections)
	return conns
}

func (w *WorldState) NumConnections() int {
	return len(w.connections)
}
