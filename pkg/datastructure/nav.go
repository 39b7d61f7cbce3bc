package datastructure

type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

// Position koordinat 2D di layout space, origin selalu di (0,0).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TravelTimes waktu tempuh minimum (detik) dari origin ke tiap station.
type TravelTimes map[string]int64

type StationPositions map[string]Position

// RouteRecord satu placemark route dari route feed.
type RouteRecord struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Type        string       `json:"type" yaml:"type"`
	Coordinates []Coordinate `json:"coordinates" yaml:"coordinates"`
}
