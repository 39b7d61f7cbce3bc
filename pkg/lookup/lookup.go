package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lintang/timemap/pkg/datastructure"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var ErrNoMatch = errors.New("no station matched the query")

type StationSearcher interface {
	SearchStation(ctx context.Context, name string) (datastructure.StationDetails, error)
}

type JourneySearcher interface {
	SearchJourneys(ctx context.Context, fromID, toID string, when time.Time) ([]datastructure.Journey, error)
}

type Metrics struct {
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timemap",
			Name:      "lookup_cache_hits_total",
			Help:      "The total number of lookups served from the cache",
		}, []string{"kind"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timemap",
			Name:      "lookup_cache_misses_total",
			Help:      "The total number of lookups that called the external service",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.hits, m.misses)
	return m
}

func (m *Metrics) hit(kind string) {
	if m != nil {
		m.hits.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) miss(kind string) {
	if m != nil {
		m.misses.WithLabelValues(kind).Inc()
	}
}

const (
	kindStation = "station"
	kindJourney = "journey"
)

func StationKey(name string) string {
	return "station-" + name
}

func JourneyKey(departure, from, to string) string {
	return fmt.Sprintf("journey-starting-%s-from-%s-to-%s", departure, from, to)
}

// Lookup write-through cache di depan station search & journey search.
// Tidak ada expiry, entry hidup selama cache store nya hidup.
type Lookup struct {
	cache    Cache
	stations StationSearcher
	journeys JourneySearcher
	group    singleflight.Group
	metrics  *Metrics
}

type Option func(*Lookup)

func WithMetrics(m *Metrics) Option {
	return func(l *Lookup) {
		l.metrics = m
	}
}

func NewLookup(cache Cache, stations StationSearcher, journeys JourneySearcher, opts ...Option) *Lookup {
	l := &Lookup{cache: cache, stations: stations, journeys: journeys}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// writeThrough hit: decode value dari cache. miss: fetch, simpan json nya, return.
// Miss yang bersamaan untuk key yang sama cuma fetch sekali.
func writeThrough[T any](l *Lookup, kind, key string, fetch func() (T, error)) (T, error) {
	var zero T
	cached, ok, err := l.cache.Get(key)
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err}).Warn("cache read failed, calling service")
	}
	if ok && err == nil {
		var val T
		if err := json.Unmarshal([]byte(cached), &val); err == nil {
			l.metrics.hit(kind)
			return val, nil
		}
		logrus.WithField("key", key).Warn("cached value is not valid json, refetching")
	}

	l.metrics.miss(kind)
	res, err, _ := l.group.Do(key, func() (interface{}, error) {
		val, err := fetch()
		if err != nil {
			return nil, err
		}
		bb, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		if err := l.cache.Put(key, string(bb)); err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err}).Warn("cache write failed")
		}
		return val, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

func (l *Lookup) StationDetails(ctx context.Context, name string) (datastructure.StationDetails, error) {
	return writeThrough(l, kindStation, StationKey(name), func() (datastructure.StationDetails, error) {
		details, err := l.stations.SearchStation(ctx, name)
		if err != nil {
			return datastructure.StationDetails{}, fmt.Errorf("station search %q: %w", name, err)
		}
		return details, nil
	})
}

// Journeys journey dari station from ke to (nama station) yang berangkat pada departure.
// Durasi leg & total dihitung dari timestamp sebelum di simpan ke cache.
func (l *Lookup) Journeys(ctx context.Context, from, to, departure string) ([]datastructure.Journey, error) {
	when, err := datastructure.ParseTimestamp(departure)
	if err != nil {
		return nil, fmt.Errorf("invalid departure %q: %w", departure, err)
	}
	return writeThrough(l, kindJourney, JourneyKey(departure, from, to), func() ([]datastructure.Journey, error) {
		fromSt, err := l.StationDetails(ctx, from)
		if err != nil {
			return nil, err
		}
		toSt, err := l.StationDetails(ctx, to)
		if err != nil {
			return nil, err
		}
		journeys, err := l.journeys.SearchJourneys(ctx, fromSt.ID, toSt.ID, when)
		if err != nil {
			return nil, fmt.Errorf("journey search %q -> %q: %w", from, to, err)
		}
		for i := range journeys {
			// journey malformed tetap di simpan, yang pakai harus Validate
			_ = journeys[i].ComputeTimes()
		}
		return journeys, nil
	})
}
