package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lintang/timemap/pkg/datastructure"
	"lintang/timemap/pkg/engine/routingalgorithm"
	"lintang/timemap/pkg/lookup"
	"lintang/timemap/pkg/routeparser"
	"lintang/timemap/pkg/server"
	"lintang/timemap/pkg/server/rest/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	mu       sync.Mutex
	calls    []string
	stations map[string]datastructure.StationDetails
	stErr    error
	journeys map[string][]datastructure.Journey
	jErr     map[string]error

	delay       time.Duration
	inflight    int32
	maxInflight int32
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		stations: map[string]datastructure.StationDetails{},
		journeys: map[string][]datastructure.Journey{},
		jErr:     map[string]error{},
	}
}

func (f *fakeLookup) enter() func() {
	n := atomic.AddInt32(&f.inflight, 1)
	for {
		m := atomic.LoadInt32(&f.maxInflight)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxInflight, m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { atomic.AddInt32(&f.inflight, -1) }
}

func (f *fakeLookup) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeLookup) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func (f *fakeLookup) StationDetails(ctx context.Context, name string) (datastructure.StationDetails, error) {
	defer f.enter()()
	f.record("station:" + name)
	if err := ctx.Err(); err != nil {
		return datastructure.StationDetails{}, err
	}
	if f.stErr != nil {
		return datastructure.StationDetails{}, f.stErr
	}
	st, ok := f.stations[name]
	if !ok {
		return datastructure.StationDetails{ID: name, Name: name}, nil
	}
	return st, nil
}

func (f *fakeLookup) Journeys(ctx context.Context, from, to, departure string) ([]datastructure.Journey, error) {
	defer f.enter()()
	key := from + "->" + to
	f.record("journey:" + key)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.jErr[key]; ok {
		return nil, err
	}
	js := f.journeys[key]
	out := make([]datastructure.Journey, len(js))
	for i, j := range js {
		out[i] = datastructure.Journey{Legs: append([]datastructure.Leg{}, j.Legs...)}
	}
	return out, nil
}

// originLocations koordinat origin leg, leg berikutnya mulai dari destination leg sebelumnya.
var originLocations = map[string]*datastructure.Location{
	"Berlin":   {Latitude: 52.52, Longitude: 13.405},
	"Hannover": {Latitude: 52.376, Longitude: 9.741},
	"Köln":     {Latitude: 50.943, Longitude: 6.958},
}

func leg(from, to string, toLat, toLon float64, dep, arr string) datastructure.Leg {
	return datastructure.Leg{
		Origin:      datastructure.Place{Name: from, Location: originLocations[from]},
		Destination: datastructure.Place{Name: to, Location: &datastructure.Location{Latitude: toLat, Longitude: toLon}},
		Departure:   dep,
		Arrival:     arr,
	}
}

func newWorld(t *testing.T) *datastructure.WorldState {
	world := datastructure.NewWorldState()
	res := routeparser.Build(world, []datastructure.RouteRecord{
		{
			Name:        "Paris - Berlin",
			Description: "8hr 30min",
			Type:        routeparser.TrainRouteType,
			Coordinates: []datastructure.Coordinate{{Lat: 48.8566, Lon: 2.3522}, {Lat: 52.52, Lon: 13.405}},
		},
		{
			Name:        "Berlin - Warsaw",
			Description: "6hr",
			Type:        routeparser.TrainRouteType,
			Coordinates: []datastructure.Coordinate{{Lat: 52.52, Lon: 13.405}, {Lat: 52.2297, Lon: 21.0122}},
		},
	})
	require.Equal(t, 2, res.Added)
	world.AddStation(datastructure.Station{
		Name: "Lisbon", Lat: 38.7223, Lon: -9.1393, HasLocation: true,
		Kind: datastructure.StationKindPort, Color: datastructure.ColorFerry,
	})
	return world
}

func stationByName(view service.MapView, name string) (service.StationView, bool) {
	for _, st := range view.Stations {
		if st.Name == name {
			return st, true
		}
	}
	return service.StationView{}, false
}

func requireCode(t *testing.T, err error, code error) {
	t.Helper()
	var se *server.Error
	require.True(t, errors.As(err, &se), "expected server.Error, got %v", err)
	assert.Equal(t, code, se.Code())
}

func TestInitialize(t *testing.T) {
	t.Run("travel times from origin", func(t *testing.T) {
		svc := service.NewMapService(newWorld(t), newFakeLookup(), service.DefaultOptions())
		view, err := svc.Initialize("Paris")
		require.NoError(t, err)

		assert.Equal(t, "Paris", view.Origin)
		assert.False(t, view.Geographic)
		assert.InDelta(t, 0.857143, view.RingRadius, 1e-9)
		require.Len(t, view.Stations, 4)
		require.Len(t, view.Connections, 2)

		paris, _ := stationByName(view, "Paris")
		assert.Equal(t, int64(0), paris.Time)
		assert.InDelta(t, 0, paris.X, 1e-12)
		assert.InDelta(t, 0, paris.Y, 1e-12)

		berlin, _ := stationByName(view, "Berlin")
		assert.Equal(t, int64(30600), berlin.Time)
		assert.Equal(t, "8 hours 30 minutes away", berlin.Tooltip)

		warsaw, _ := stationByName(view, "Warsaw")
		assert.Equal(t, int64(52200), warsaw.Time)

		lisbon, _ := stationByName(view, "Lisbon")
		assert.Equal(t, routingalgorithm.MaxTime, lisbon.Time)
		assert.Equal(t, "Very far away", lisbon.Tooltip)
	})

	t.Run("unknown origin falls back to first station", func(t *testing.T) {
		svc := service.NewMapService(newWorld(t), newFakeLookup(), service.DefaultOptions())
		view, err := svc.Initialize("Westport")
		require.NoError(t, err)
		assert.Equal(t, "Paris", view.Origin)
	})

	t.Run("empty world", func(t *testing.T) {
		svc := service.NewMapService(datastructure.NewWorldState(), newFakeLookup(), service.DefaultOptions())
		_, err := svc.Initialize("Paris")
		requireCode(t, err, server.ErrInternalServerError)
	})

	t.Run("view before initialize is empty", func(t *testing.T) {
		svc := service.NewMapService(newWorld(t), newFakeLookup(), service.DefaultOptions())
		assert.Empty(t, svc.View().Stations)
		_, err := svc.PathTo("Paris")
		requireCode(t, err, server.ErrNotFound)
	})
}

func TestSelectSplicesOvernightJourney(t *testing.T) {
	world := newWorld(t)
	fl := newFakeLookup()
	fl.journeys["Berlin->Paris"] = []datastructure.Journey{
		{Legs: []datastructure.Leg{
			leg("Berlin", "Paris Est", 48.8768, 2.3592, "2022-09-08T20:00:00+02:00", "2022-09-09T08:00:00+02:00"),
		}},
	}
	fl.jErr["Berlin->Warsaw"] = errors.New("service unavailable")

	svc := service.NewMapService(world, fl, service.DefaultOptions())
	_, err := svc.Initialize("Paris")
	require.NoError(t, err)

	view, err := svc.Select(context.Background(), "Berlin")
	require.NoError(t, err)

	// close stations diproses berurutan, journey yang gagal tidak menghentikan loop
	assert.Equal(t, []string{
		"station:Berlin",
		"journey:Berlin->Paris",
		"journey:Berlin->Warsaw",
	}, fl.Calls())

	assert.Equal(t, "Berlin", view.Origin)
	assert.Equal(t, "Berlin", world.Origin)

	parisEst, ok := stationByName(view, "Paris Est")
	require.True(t, ok)
	assert.Equal(t, datastructure.ColorDerived, parisEst.Color)
	assert.Equal(t, datastructure.StationKindDerived, parisEst.Kind)
	assert.Equal(t, int64(12*3600), parisEst.Time)

	paris, _ := stationByName(view, "Paris")
	assert.Equal(t, int64(1800), paris.Time, "ad-hoc hop from the previous origin")

	berlin, _ := stationByName(view, "Berlin")
	assert.Equal(t, int64(0), berlin.Time)

	var adhoc, overnight *service.ConnectionView
	for i := range view.Connections {
		c := &view.Connections[i]
		switch c.Kind {
		case datastructure.ConnectionKindAdHoc:
			adhoc = c
		case datastructure.ConnectionKindOvernight:
			overnight = c
		}
	}
	require.NotNil(t, adhoc)
	assert.Equal(t, "Paris", adhoc.From)
	assert.Equal(t, "Berlin", adhoc.To)
	assert.Equal(t, int64(1800), adhoc.Weight)
	assert.Equal(t, datastructure.ColorAdHoc, adhoc.Color)

	require.NotNil(t, overnight)
	assert.Equal(t, "Berlin - Paris Est", overnight.Name)
	assert.Equal(t, int64(43200), overnight.Weight)
	assert.Equal(t, datastructure.ColorOvernight, overnight.Color)
}

func TestSelectResolvedNameAlias(t *testing.T) {
	world := newWorld(t)
	fl := newFakeLookup()
	fl.stations["Warsaw"] = datastructure.StationDetails{ID: "5100065", Name: "Warszawa Centralna", Lat: 52.2287, Lon: 21.0034}

	svc := service.NewMapService(world, fl, service.DefaultOptions())
	_, err := svc.Initialize("Paris")
	require.NoError(t, err)

	view, err := svc.Select(context.Background(), "Warsaw")
	require.NoError(t, err)

	alias, ok := stationByName(view, "Warszawa Centralna")
	require.True(t, ok)
	assert.Equal(t, datastructure.ColorResolved, alias.Color)
	assert.Equal(t, int64(1800), alias.Time)

	// alias tidak ikut di scan sebagai close station
	assert.Equal(t, []string{"station:Warsaw", "journey:Warsaw->Berlin"}, fl.Calls())

	paris, _ := stationByName(view, "Paris")
	assert.Equal(t, int64(1800), paris.Time)
	berlin, _ := stationByName(view, "Berlin")
	assert.Equal(t, int64(21600), berlin.Time)
}

func TestSelectSkipsUnsuitableJourneys(t *testing.T) {
	tests := []struct {
		name      string
		journeys  []datastructure.Journey
		wantSplit bool
	}{
		{
			name: "malformed journey skipped, next one used",
			journeys: []datastructure.Journey{
				{Legs: []datastructure.Leg{
					leg("Berlin", "Gare de Lyon", 48.844, 2.373, "2022-09-08T20:00:00+02:00", "tomorrow"),
				}},
				{Legs: []datastructure.Leg{
					leg("Berlin", "Paris Est", 48.8768, 2.3592, "2022-09-08T20:00:00+02:00", "2022-09-09T08:00:00+02:00"),
				}},
			},
			wantSplit: true,
		},
		{
			name: "endpoint without location skipped",
			journeys: []datastructure.Journey{
				{Legs: []datastructure.Leg{{
					Origin:      datastructure.Place{Name: "Berlin", Location: originLocations["Berlin"]},
					Destination: datastructure.Place{Name: "Nowhere Hbf"},
					Departure:   "2022-09-08T20:00:00+02:00",
					Arrival:     "2022-09-09T08:00:00+02:00",
				}}},
			},
		},
		{
			name: "three legs rejected",
			journeys: []datastructure.Journey{
				{Legs: []datastructure.Leg{
					leg("Berlin", "Hannover", 52.376, 9.741, "2022-09-08T20:00:00+02:00", "2022-09-08T22:00:00+02:00"),
					leg("Hannover", "Köln", 50.943, 6.958, "2022-09-08T22:10:00+02:00", "2022-09-09T06:00:00+02:00"),
					leg("Köln", "Paris Est", 48.8768, 2.3592, "2022-09-09T06:10:00+02:00", "2022-09-09T09:30:00+02:00"),
				}},
			},
		},
		{
			name: "too long overall",
			journeys: []datastructure.Journey{
				{Legs: []datastructure.Leg{
					leg("Berlin", "Paris Est", 48.8768, 2.3592, "2022-09-08T18:00:00+02:00", "2022-09-09T09:00:00+02:00"),
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			world := newWorld(t)
			fl := newFakeLookup()
			fl.journeys["Berlin->Paris"] = tt.journeys

			svc := service.NewMapService(world, fl, service.DefaultOptions())
			_, err := svc.Initialize("Paris")
			require.NoError(t, err)

			view, err := svc.Select(context.Background(), "Berlin")
			require.NoError(t, err)

			_, spliced := stationByName(view, "Paris Est")
			assert.Equal(t, tt.wantSplit, spliced)
			_, hasBroken := stationByName(view, "Gare de Lyon")
			assert.False(t, hasBroken)
			_, hasUnlocated := stationByName(view, "Nowhere Hbf")
			assert.False(t, hasUnlocated)
			assert.False(t, world.HasStation("Nowhere Hbf"))
			for _, st := range world.Stations() {
				assert.False(t, st.Lat == 0 && st.Lon == 0, "station %s registered at 0,0", st.Name)
			}
		})
	}
}

func TestSelectFailures(t *testing.T) {
	t.Run("no match leaves world untouched", func(t *testing.T) {
		world := newWorld(t)
		fl := newFakeLookup()
		fl.stErr = fmt.Errorf("station search: %w", lookup.ErrNoMatch)

		svc := service.NewMapService(world, fl, service.DefaultOptions())
		before, err := svc.Initialize("Paris")
		require.NoError(t, err)

		_, err = svc.Select(context.Background(), "Berlin")
		requireCode(t, err, server.ErrNotFound)
		assert.Equal(t, 2, world.NumConnections())
		assert.Equal(t, 4, world.NumStations())
		assert.Equal(t, before, svc.View())
	})

	t.Run("transport failure", func(t *testing.T) {
		fl := newFakeLookup()
		fl.stErr = errors.New("connection refused")
		svc := service.NewMapService(newWorld(t), fl, service.DefaultOptions())
		_, err := svc.Initialize("Paris")
		require.NoError(t, err)

		_, err = svc.Select(context.Background(), "Berlin")
		requireCode(t, err, server.ErrInternalServerError)
	})

	t.Run("unknown station", func(t *testing.T) {
		fl := newFakeLookup()
		svc := service.NewMapService(newWorld(t), fl, service.DefaultOptions())
		_, err := svc.Initialize("Paris")
		require.NoError(t, err)

		_, err = svc.Select(context.Background(), "Atlantis")
		requireCode(t, err, server.ErrNotFound)
		assert.Empty(t, fl.Calls())
	})
}

func TestSelectIsSerialized(t *testing.T) {
	fl := newFakeLookup()
	fl.delay = 5 * time.Millisecond
	svc := service.NewMapService(newWorld(t), fl, service.DefaultOptions())
	_, err := svc.Initialize("Paris")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, name := range []string{"Berlin", "Warsaw"} {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = svc.Select(context.Background(), name)
		}(i, name)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, int32(1), atomic.LoadInt32(&fl.maxInflight))
}

func TestSelectIgnoresCancellation(t *testing.T) {
	svc := service.NewMapService(newWorld(t), newFakeLookup(), service.DefaultOptions())
	_, err := svc.Initialize("Paris")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	view, err := svc.Select(ctx, "Berlin")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", view.Origin)
}

func TestPathTo(t *testing.T) {
	svc := service.NewMapService(newWorld(t), newFakeLookup(), service.DefaultOptions())
	_, err := svc.Initialize("Paris")
	require.NoError(t, err)

	t.Run("reachable", func(t *testing.T) {
		p, err := svc.PathTo("Warsaw")
		require.NoError(t, err)
		assert.True(t, p.Found)
		assert.Equal(t, []string{"Paris", "Berlin", "Warsaw"}, p.Stations)
		assert.Equal(t, int64(52200), p.Time)
		assert.NotEmpty(t, p.Polyline)
	})

	t.Run("unreachable", func(t *testing.T) {
		p, err := svc.PathTo("Lisbon")
		require.NoError(t, err)
		assert.False(t, p.Found)
		assert.Empty(t, p.Stations)
		assert.Equal(t, routingalgorithm.MaxTime, p.Time)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := svc.PathTo("Atlantis")
		requireCode(t, err, server.ErrNotFound)
	})
}

func TestGeographicView(t *testing.T) {
	svc := service.NewMapService(newWorld(t), newFakeLookup(), service.DefaultOptions())
	_, err := svc.Initialize("Paris")
	require.NoError(t, err)

	view, err := svc.GeographicView()
	require.NoError(t, err)
	assert.True(t, view.Geographic)
	assert.Equal(t, "Paris", view.Origin)

	paris, _ := stationByName(view, "Paris")
	assert.InDelta(t, 0, paris.X, 1e-12)
	assert.InDelta(t, 0, paris.Y, 1e-12)

	berlin, _ := stationByName(view, "Berlin")
	warsaw, _ := stationByName(view, "Warsaw")
	assert.Greater(t, warsaw.X*warsaw.X+warsaw.Y*warsaw.Y, berlin.X*berlin.X+berlin.Y*berlin.Y)
}
