package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

const earthRadiusKM = 6371.0

type Location struct {
	Latitude  float64
	Longitude float64
}

// NewLocation lat lon dalam derajat.
func NewLocation(latDegree, lonDegree float64) Location {
	return Location{
		Latitude:  latDegree,
		Longitude: lonDegree,
	}
}

func (l Location) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(l.Latitude, l.Longitude)
}

// HaversineDistance great circle distance dalam km.
func HaversineDistance(locationOne, locationTwo Location) float64 {
	angle := locationOne.latLng().Distance(locationTwo.latLng())
	return angle.Radians() * earthRadiusKM
}

func DegreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func RadiansToDegree(rad float64) float64 {
	return 180.0 * rad / math.Pi
}

// KMToLatDegree & KMToLonDegree approx derajat untuk jarak km tertentu, dipakai buat bounding box.
func KMToLatDegree(km float64) float64 {
	return RadiansToDegree(km / earthRadiusKM)
}

func KMToLonDegree(km float64, latDegree float64) float64 {
	cosLat := math.Cos(DegreeToRadians(latDegree))
	if cosLat < 1e-6 {
		return 360
	}
	return math.Min(360, RadiansToDegree(km/(earthRadiusKM*cosLat)))
}
