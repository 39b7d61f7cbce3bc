package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lintang/timemap/pkg/datastructure"
	"lintang/timemap/pkg/engine/heuristics"
	"lintang/timemap/pkg/engine/layout"
	"lintang/timemap/pkg/engine/routingalgorithm"
	"lintang/timemap/pkg/geo"
	"lintang/timemap/pkg/lookup"
	"lintang/timemap/pkg/routeparser"
	"lintang/timemap/pkg/server"
	"lintang/timemap/pkg/util"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

type Lookup interface {
	StationDetails(ctx context.Context, name string) (datastructure.StationDetails, error)
	Journeys(ctx context.Context, from, to, departure string) ([]datastructure.Journey, error)
}

type Options struct {
	RadiusKM       float64
	AdHocSeconds   int64
	Departure      string
	HorizonSeconds int64
	RingSeconds    int64
}

func DefaultOptions() Options {
	return Options{
		RadiusKM:       1000,
		AdHocSeconds:   30 * 60,
		Departure:      "2022-09-08T18:00:00+0200",
		HorizonSeconds: layout.DefaultHorizonSeconds,
		RingSeconds:    layout.DefaultRingSeconds,
	}
}

type StationView struct {
	Name        string                    `json:"name"`
	Kind        datastructure.StationKind `json:"kind"`
	Color       string                    `json:"color"`
	Lat         float64                   `json:"lat"`
	Lon         float64                   `json:"lon"`
	HasLocation bool                      `json:"has_location"`
	X           float64                   `json:"x"`
	Y           float64                   `json:"y"`
	Time        int64                     `json:"time"`
	Tooltip     string                    `json:"tooltip"`
}

type ConnectionView struct {
	Name   string                       `json:"name"`
	From   string                       `json:"from"`
	To     string                       `json:"to"`
	Kind   datastructure.ConnectionKind `json:"kind"`
	Color  string                       `json:"color"`
	Weight int64                        `json:"weight"`
}

// MapView satu hasil layout yang lengkap. Tidak pernah di mutate setelah di publish.
type MapView struct {
	Origin      string           `json:"origin"`
	Geographic  bool             `json:"geographic"`
	RingRadius  float64          `json:"ring_radius"`
	Stations    []StationView    `json:"stations"`
	Connections []ConnectionView `json:"connections"`
}

type StationPath struct {
	Origin   string   `json:"origin"`
	Target   string   `json:"target"`
	Stations []string `json:"stations"`
	Polyline string   `json:"polyline"`
	Time     int64    `json:"time"`
	Found    bool     `json:"found"`
}

type snapshot struct {
	view     MapView
	tree     *routingalgorithm.ShortestPathTree
	stations map[string]datastructure.Station
}

// MapService pemilik WorldState. Satu-satunya writer ke world adalah Select (dan Initialize),
// reader cuma lihat view yang sudah di publish.
type MapService struct {
	opts      Options
	lookup    Lookup
	projector *layout.Projector

	// selectMu serialize selection, world & index cuma disentuh sambil pegang lock ini
	selectMu sync.Mutex
	world    *datastructure.WorldState
	index    *geo.StationIndex

	viewMu  *xsync.RBMutex
	current *snapshot
}

func NewMapService(world *datastructure.WorldState, lk Lookup, opts Options) *MapService {
	def := DefaultOptions()
	if opts.RadiusKM <= 0 {
		opts.RadiusKM = def.RadiusKM
	}
	if opts.AdHocSeconds <= 0 {
		opts.AdHocSeconds = def.AdHocSeconds
	}
	if opts.Departure == "" {
		opts.Departure = def.Departure
	}
	if opts.HorizonSeconds <= 0 {
		opts.HorizonSeconds = def.HorizonSeconds
	}
	if opts.RingSeconds <= 0 {
		opts.RingSeconds = def.RingSeconds
	}
	svc := &MapService{
		opts:      opts,
		lookup:    lk,
		projector: layout.NewProjector(opts.HorizonSeconds),
		world:     world,
		viewMu:    xsync.NewRBMutex(),
	}
	svc.index = buildStationIndex(world)
	return svc
}

func buildStationIndex(world *datastructure.WorldState) *geo.StationIndex {
	idx := geo.NewStationIndex()
	for _, st := range world.Stations() {
		if st.HasLocation {
			idx.Insert(st.Name, st.Lat, st.Lon)
		}
	}
	return idx
}

// Initialize hitung layout pertama dari origin. Kalau origin tidak ada di world, pakai station pertama.
func (s *MapService) Initialize(origin string) (MapView, error) {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	if s.world.NumStations() == 0 {
		return MapView{}, server.WrapErrorf(nil, server.ErrInternalServerError, "no stations loaded, check the route files")
	}
	if !s.world.HasStation(origin) {
		fallback := s.world.StationNames()[0]
		logrus.WithFields(logrus.Fields{
			"origin":   origin,
			"fallback": fallback,
		}).Warn("default origin is not a known station")
		origin = fallback
	}
	if err := s.rebuild(origin); err != nil {
		return MapView{}, err
	}
	return s.View(), nil
}

// View layout yang terakhir di publish.
func (s *MapService) View() MapView {
	t := s.viewMu.RLock()
	defer s.viewMu.RUnlock(t)
	if s.current == nil {
		return MapView{Stations: []StationView{}, Connections: []ConnectionView{}}
	}
	return s.current.view
}

// GeographicView layout bootstrap di sekitar origin saat ini: radius dari jarak geografis, bukan travel time.
func (s *MapService) GeographicView() (MapView, error) {
	t := s.viewMu.RLock()
	curr := s.current
	s.viewMu.RUnlock(t)
	if curr == nil {
		return MapView{}, server.WrapErrorf(nil, server.ErrNotFound, "map is not initialized yet")
	}

	stations := make([]datastructure.Station, 0, len(curr.view.Stations))
	for _, sv := range curr.view.Stations {
		stations = append(stations, curr.stations[sv.Name])
	}
	positions, err := s.projector.Project(curr.view.Origin, stations, nil)
	if err != nil {
		return MapView{}, server.WrapErrorf(err, server.ErrInternalServerError, "failed to project stations")
	}

	view := MapView{
		Origin:      curr.view.Origin,
		Geographic:  true,
		Stations:    make([]StationView, 0, len(stations)),
		Connections: curr.view.Connections,
	}
	for _, st := range stations {
		view.Stations = append(view.Stations, stationView(st, positions[st.Name], 0, ""))
	}
	return view, nil
}

func (s *MapService) Stations() []StationView {
	return s.View().Stations
}

func (s *MapService) Connections() []ConnectionView {
	return s.View().Connections
}

// PathTo shortest path dari origin saat ini ke target.
func (s *MapService) PathTo(target string) (StationPath, error) {
	t := s.viewMu.RLock()
	curr := s.current
	s.viewMu.RUnlock(t)
	if curr == nil {
		return StationPath{}, server.WrapErrorf(nil, server.ErrNotFound, "map is not initialized yet")
	}
	if _, ok := curr.stations[target]; !ok {
		return StationPath{}, server.WrapErrorf(datastructure.ErrUnknownStation, server.ErrNotFound, "station %q not found", target)
	}

	res := StationPath{
		Origin:   curr.view.Origin,
		Target:   target,
		Stations: curr.tree.Path(target),
		Time:     curr.tree.Time(target),
	}
	if res.Stations == nil {
		res.Stations = []string{}
		return res, nil
	}
	res.Found = true
	coords := make([]datastructure.Coordinate, 0, len(res.Stations))
	for _, name := range res.Stations {
		st := curr.stations[name]
		if st.HasLocation {
			coords = append(coords, datastructure.NewCoordinate(st.Lat, st.Lon))
		}
	}
	res.Polyline = routingalgorithm.RenderPath(coords)
	return res, nil
}

// Select jalankan augmentation untuk station yang dipilih lalu layout ulang dengan station itu sebagai origin.
// Selection di serialize, selection berikutnya nunggu yang sekarang selesai.
// Request context yang di cancel tidak menghentikan augmentation yang sudah jalan.
func (s *MapService) Select(ctx context.Context, name string) (MapView, error) {
	ctx = context.WithoutCancel(ctx)

	s.selectMu.Lock()
	defer s.selectMu.Unlock()

	if !s.world.HasStation(name) {
		return MapView{}, server.WrapErrorf(datastructure.ErrUnknownStation, server.ErrNotFound, "station %q not found", name)
	}

	staged, err := s.scan(ctx, name)
	if err != nil {
		return MapView{}, err
	}
	if err := s.commit(staged); err != nil {
		return MapView{}, server.WrapErrorf(err, server.ErrInternalServerError, "failed to apply discovered connections")
	}
	if err := s.rebuild(name); err != nil {
		return MapView{}, err
	}
	return s.View(), nil
}

// scan phase 1: lookup + scan, world tidak diubah sama sekali.
func (s *MapService) scan(ctx context.Context, name string) (*stagedChanges, error) {
	details, err := s.lookup.StationDetails(ctx, name)
	if err != nil {
		if errors.Is(err, lookup.ErrNoMatch) {
			return nil, server.WrapErrorf(err, server.ErrNotFound, "no station found for %q", name)
		}
		return nil, server.WrapErrorf(err, server.ErrInternalServerError, "station search for %q failed", name)
	}

	staged := newStagedChanges(s.world)
	selected, _ := s.world.GetStation(name)

	prevOrigin := s.world.Origin
	if prevOrigin != "" && prevOrigin != name {
		staged.addConnection(datastructure.Connection{
			Name:   prevOrigin + " - " + name,
			From:   prevOrigin,
			To:     name,
			Weight: s.opts.AdHocSeconds,
			Kind:   datastructure.ConnectionKindAdHoc,
			Color:  datastructure.ColorAdHoc,
		})
	}

	if details.Name != "" && details.Name != name {
		staged.addStation(datastructure.Station{
			Name:        details.Name,
			Lat:         details.Lat,
			Lon:         details.Lon,
			HasLocation: true,
			Kind:        datastructure.StationKindDerived,
			Color:       datastructure.ColorResolved,
		})
		staged.addConnection(datastructure.Connection{
			Name:   name + " - " + details.Name,
			From:   name,
			To:     details.Name,
			Weight: s.opts.AdHocSeconds,
			Kind:   datastructure.ConnectionKindAdHoc,
			Color:  datastructure.ColorAdHoc,
		})
	}

	lat, lon := selected.Lat, selected.Lon
	if !selected.HasLocation {
		lat, lon = details.Lat, details.Lon
	}
	closeStations := lo.Filter(s.index.Nearby(lat, lon, s.opts.RadiusKM), func(c string, _ int) bool {
		return c != name && c != details.Name
	})
	logrus.WithFields(logrus.Fields{
		"station": name,
		"close":   len(closeStations),
	}).Info("scanning close stations")

	// sequential, satu lookup in flight dalam satu waktu
	for _, closeStation := range closeStations {
		journeys, err := s.lookup.Journeys(ctx, name, closeStation, s.opts.Departure)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"from":  name,
				"to":    closeStation,
				"error": err,
			}).Warn("journey search failed, treating as no journey")
			continue
		}

		valid := make([]datastructure.Journey, 0, len(journeys))
		for i := range journeys {
			if err := journeys[i].ComputeTimes(); err != nil {
				logrus.WithFields(logrus.Fields{
					"from":    name,
					"to":      closeStation,
					"journey": i,
					"error":   err,
				}).Warn("skipping malformed journey")
				continue
			}
			valid = append(valid, journeys[i])
		}
		night, ok := heuristics.FirstOvernightJourney(valid)
		if !ok {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"from":  name,
			"to":    closeStation,
			"total": night.TotalTime,
		}).Info("journey is suitable for a night trip")
		staged.addJourney(night)
	}
	return staged, nil
}

// commit phase 2: apply semua perubahan yang di stage ke world.
func (s *MapService) commit(staged *stagedChanges) error {
	newStations := 0
	for _, st := range staged.stations {
		if s.world.AddStation(st) {
			newStations++
		}
	}
	for _, c := range staged.connections {
		if err := s.world.AddConnection(c); err != nil {
			return err
		}
	}
	if newStations > 0 {
		s.index = buildStationIndex(s.world)
	}
	logrus.WithFields(logrus.Fields{
		"stations":    newStations,
		"connections": len(staged.connections),
	}).Info("committed augmentation")
	return nil
}

// rebuild graph, shortest times & layout dari origin, lalu publish view baru sekaligus.
func (s *MapService) rebuild(origin string) error {
	graph := routeparser.BuildGraph(s.world)
	tree, err := routingalgorithm.NewRouteAlgorithm(graph).Dijkstra(origin)
	if err != nil {
		return server.WrapErrorf(err, server.ErrInternalServerError, "failed to compute travel times from %q", origin)
	}
	times := tree.TravelTimes()
	stations := s.world.Stations()
	positions, err := s.projector.Project(origin, stations, times)
	if err != nil {
		return server.WrapErrorf(err, server.ErrInternalServerError, "failed to project stations")
	}

	snap := &snapshot{
		tree:     tree,
		stations: lo.KeyBy(stations, func(st datastructure.Station) string { return st.Name }),
		view: MapView{
			Origin:      origin,
			RingRadius:  util.RoundFloat(s.projector.RingRadius(s.opts.RingSeconds), 6),
			Stations:    make([]StationView, 0, len(stations)),
			Connections: make([]ConnectionView, 0, s.world.NumConnections()),
		},
	}
	for _, st := range stations {
		t := times[st.Name]
		snap.view.Stations = append(snap.view.Stations,
			stationView(st, positions[st.Name], t, util.FormatTravelTime(t, routingalgorithm.MaxTime)))
	}
	for _, c := range s.world.Connections() {
		snap.view.Connections = append(snap.view.Connections, ConnectionView{
			Name:   c.Name,
			From:   c.From,
			To:     c.To,
			Kind:   c.Kind,
			Color:  c.Color,
			Weight: c.Weight,
		})
	}

	s.world.Origin = origin
	s.viewMu.Lock()
	s.current = snap
	s.viewMu.Unlock()
	return nil
}

func stationView(st datastructure.Station, pos datastructure.Position, t int64, tooltip string) StationView {
	return StationView{
		Name:        st.Name,
		Kind:        st.Kind,
		Color:       st.Color,
		Lat:         st.Lat,
		Lon:         st.Lon,
		HasLocation: st.HasLocation,
		X:           pos.X,
		Y:           pos.Y,
		Time:        t,
		Tooltip:     tooltip,
	}
}

// stagedChanges station & connection yang ditemukan selama scan, belum di apply ke world.
type stagedChanges struct {
	world       *datastructure.WorldState
	stations    []datastructure.Station
	connections []datastructure.Connection
	known       map[string]struct{}
}

func newStagedChanges(world *datastructure.WorldState) *stagedChanges {
	return &stagedChanges{
		world:       world,
		stations:    make([]datastructure.Station, 0),
		connections: make([]datastructure.Connection, 0),
		known:       make(map[string]struct{}),
	}
}

func (sc *stagedChanges) has(name string) bool {
	if sc.world.HasStation(name) {
		return true
	}
	_, ok := sc.known[name]
	return ok
}

// addStation station yang sudah ada (di world atau di stage) tidak di stage ulang.
func (sc *stagedChanges) addStation(st datastructure.Station) {
	if sc.has(st.Name) {
		return
	}
	sc.known[st.Name] = struct{}{}
	sc.stations = append(sc.stations, st)
}

// addConnection connection ke station yang tidak dikenal di tolak di sini, jadi commit tidak gagal di tengah jalan.
func (sc *stagedChanges) addConnection(c datastructure.Connection) bool {
	if !sc.has(c.From) || !sc.has(c.To) || c.Weight < 0 {
		logrus.WithFields(logrus.Fields{
			"connection": c.Name,
			"error":      fmt.Errorf("%w: %s or %s", datastructure.ErrUnknownStation, c.From, c.To),
		}).Error("rejecting connection")
		return false
	}
	sc.connections = append(sc.connections, c)
	return true
}

// addJourney stage setiap leg: endpoint baru jadi station derived, leg jadi connection overnight.
func (sc *stagedChanges) addJourney(j datastructure.Journey) {
	for _, leg := range j.Legs {
		for _, p := range []datastructure.Place{leg.Origin, leg.Destination} {
			st := datastructure.Station{
				Name:  p.Name,
				Kind:  datastructure.StationKindDerived,
				Color: datastructure.ColorDerived,
			}
			if p.Location != nil {
				st.Lat, st.Lon, st.HasLocation = p.Location.Latitude, p.Location.Longitude, true
			}
			sc.addStation(st)
		}
		sc.addConnection(datastructure.Connection{
			Name:   leg.Origin.Name + " - " + leg.Destination.Name,
			From:   leg.Origin.Name,
			To:     leg.Destination.Name,
			Weight: leg.Time,
			Kind:   datastructure.ConnectionKindOvernight,
			Color:  datastructure.ColorOvernight,
		})
	}
}
