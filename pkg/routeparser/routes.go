package routeparser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"lintang/timemap/pkg/datastructure"

	"github.com/sirupsen/logrus"
)

const TrainRouteType = "Routes (train)"

var (
	ErrMissingDescription = errors.New("route has no description")
	ErrInvalidDuration    = errors.New("route description has no duration")
	ErrTooFewStations     = errors.New("route name has fewer than two stations")
)

var durationPattern = regexp.MustCompile(`(\d+)hr(?: (\d+) *min)?`)

// nameCorrections typo & encoding error yang ada di route feed. Urutan penting.
var nameCorrections = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`Hilsinki`), "Helsinki"},
	{regexp.MustCompile(`Carania`), "Catania"},
	{regexp.MustCompile(`Sevilla`), "Seville"},
	{regexp.MustCompile(`Warzaw`), "Warsaw"},
	{regexp.MustCompile(`Klaipèda`), "Klaipėda"},
	{regexp.MustCompile(`Gdansk`), "Gdańsk"},
}

// CorrectName apply tabel koreksi nama, setiap pattern cuma replace occurrence pertama.
func CorrectName(name string) string {
	for _, c := range nameCorrections {
		if loc := c.pattern.FindStringIndex(name); loc != nil {
			name = name[:loc[0]] + c.replace + name[loc[1]:]
		}
	}
	return name
}

// ParseDuration parse "<H>hr <M>min" jadi detik. Menit optional.
func ParseDuration(description string) (int64, error) {
	m := durationPattern.FindStringSubmatch(description)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, description)
	}
	hours, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDuration, description, err)
	}
	var minutes int64
	if m[2] != "" {
		minutes, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDuration, description, err)
		}
	}
	return hours*3600 + minutes*60, nil
}

func SplitStations(routeName string) []string {
	parts := strings.Split(routeName, " - ")
	stations := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			stations = append(stations, p)
		}
	}
	return stations
}

func IsTrainRoute(routeType string) bool {
	return routeType == TrainRouteType
}

type DroppedRoute struct {
	Name string
	Err  error
}

type BuildResult struct {
	Added   int
	Dropped []DroppedRoute
}

type RouteParser struct {
	world *datastructure.WorldState
}

func NewRouteParser(world *datastructure.WorldState) *RouteParser {
	return &RouteParser{world: world}
}

// AddRoute register station & connection dari satu route record. Route yang invalid tidak mengubah world sama sekali.
func (p *RouteParser) AddRoute(rec datastructure.RouteRecord) error {
	if strings.TrimSpace(rec.Description) == "" {
		return ErrMissingDescription
	}
	name := CorrectName(rec.Name)
	weight, err := ParseDuration(rec.Description)
	if err != nil {
		return err
	}
	stations := SplitStations(name)
	if len(stations) < 2 {
		return fmt.Errorf("%w: %q", ErrTooFewStations, name)
	}

	stationKind, stationColor := datastructure.StationKindPort, datastructure.ColorFerry
	connKind, connColor := datastructure.ConnectionKindFerry, datastructure.ColorFerry
	if IsTrainRoute(rec.Type) {
		stationKind, stationColor = datastructure.StationKindRail, datastructure.ColorRail
		connKind, connColor = datastructure.ConnectionKindRail, datastructure.ColorRail
	}

	for idx, stationName := range stations {
		st := datastructure.Station{
			Name:  stationName,
			Kind:  stationKind,
			Color: stationColor,
		}
		// koordinat di index yang sama dengan urutan station di nama route
		if idx < len(rec.Coordinates) {
			st.Lat = rec.Coordinates[idx].Lat
			st.Lon = rec.Coordinates[idx].Lon
			st.HasLocation = true
		}
		p.world.AddStation(st)
	}

	// setiap pasangan station berurutan dapat weight penuh route, tidak dibagi per leg
	for i := 0; i+1 < len(stations); i++ {
		conn := datastructure.Connection{
			Name:   stations[i] + " - " + stations[i+1],
			Route:  name,
			From:   stations[i],
			To:     stations[i+1],
			Weight: weight,
			Kind:   connKind,
			Color:  connColor,
		}
		if err := p.world.AddConnection(conn); err != nil {
			return err
		}
	}
	return nil
}

// Build fold semua route record ke world. Route yang gagal di parse di drop & di log, tidak fatal.
func (p *RouteParser) Build(records []datastructure.RouteRecord) BuildResult {
	res := BuildResult{Dropped: make([]DroppedRoute, 0)}
	for _, rec := range records {
		if err := p.AddRoute(rec); err != nil {
			logrus.WithFields(logrus.Fields{
				"route": rec.Name,
				"error": err,
			}).Warn("dropping route")
			res.Dropped = append(res.Dropped, DroppedRoute{Name: rec.Name, Err: err})
			continue
		}
		res.Added++
	}
	return res
}

func Build(world *datastructure.WorldState, records []datastructure.RouteRecord) BuildResult {
	return NewRouteParser(world).Build(records)
}

// Fold directed adjacency dari connections, arah = arah pertama kali connection di register.
func Fold(conns []datastructure.Connection) datastructure.Adjacency {
	adj := datastructure.NewAdjacency()
	for _, c := range conns {
		adj.Add(c.From, c.To, c.Weight)
	}
	return adj
}

// Symmetrize tambah mirror arc b->a untuk setiap a->b yang belum punya arah balik.
// Arc balik yang sudah ada tidak di overwrite. Idempotent.
func Symmetrize(adj datastructure.Adjacency) {
	type arc struct {
		from, to string
		weight   int64
	}
	missing := make([]arc, 0)
	for from, out := range adj {
		for to, weight := range out {
			if !adj.Has(to, from) {
				missing = append(missing, arc{from: to, to: from, weight: weight})
			}
		}
	}
	for _, a := range missing {
		adj.Add(a.from, a.to, a.weight)
	}
}

// BuildGraph fold + symmetrize connections di world jadi indexed graph.
func BuildGraph(world *datastructure.WorldState) *datastructure.Graph {
	adj := Fold(world.Connections())
	Symmetrize(adj)
	return datastructure.NewGraph(world.StationNames(), adj)
}
