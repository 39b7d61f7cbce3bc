package geo

import (
	"sort"

	"github.com/dhconnelly/rtreego"
)

var tol = 0.0001

type StationRect struct {
	Location rtreego.Point // [lon, lat]
	Name     string
	Order    int
}

func (s *StationRect) Bounds() rtreego.Rect {
	return s.Location.ToRect(tol)
}

// StationIndex rtree dari lokasi station, buat cari station yang dekat secara geografis.
type StationIndex struct {
	tree  *rtreego.Rtree
	count int
}

func NewStationIndex() *StationIndex {
	return &StationIndex{
		tree: rtreego.NewTree(2, 25, 50), // 2 dimension, 25 min entries dan 50 max entries
	}
}

func (idx *StationIndex) Insert(name string, lat, lon float64) {
	idx.tree.Insert(&StationRect{
		Location: rtreego.Point{lon, lat},
		Name:     name,
		Order:    idx.count,
	})
	idx.count++
}

func (idx *StationIndex) Size() int {
	return idx.count
}

// Nearby station dengan great circle distance < radiusKM dari (lat, lon).
// Hasil diurutkan sesuai urutan insert.
func (idx *StationIndex) Nearby(lat, lon, radiusKM float64) []string {
	dLat := KMToLatDegree(radiusKM)
	dLon := KMToLonDegree(radiusKM, lat)

	minLat := lat - dLat
	minLon := lon - dLon
	bb, err := rtreego.NewRect(rtreego.Point{minLon, minLat}, []float64{2 * dLon, 2 * dLat})
	if err != nil {
		return nil
	}

	center := NewLocation(lat, lon)
	candidates := make([]*StationRect, 0)
	// bounding box di lon bisa lewat antimeridian, cek juga yang geser 360 derajat
	for _, shift := range []float64{0, -360, 360} {
		box := bb
		if shift != 0 {
			box, err = rtreego.NewRect(rtreego.Point{minLon + shift, minLat}, []float64{2 * dLon, 2 * dLat})
			if err != nil {
				continue
			}
		}
		for _, item := range idx.tree.SearchIntersect(box) {
			st := item.(*StationRect)
			if HaversineDistance(center, NewLocation(st.Location[1], st.Location[0])) < radiusKM {
				candidates = append(candidates, st)
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Order < candidates[j].Order
	})
	names := make([]string, 0, len(candidates))
	seen := make(map[int]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.Order]; ok {
			continue
		}
		seen[c.Order] = struct{}{}
		names = append(names, c.Name)
	}
	return names
}
