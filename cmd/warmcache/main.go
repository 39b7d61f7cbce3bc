package main

import (
	"context"
	"flag"

	"lintang/timemap/pkg/concurrent"
	"lintang/timemap/pkg/config"
	"lintang/timemap/pkg/datastructure"
	"lintang/timemap/pkg/geo"
	"lintang/timemap/pkg/kv"
	"lintang/timemap/pkg/lookup"
	"lintang/timemap/pkg/routeparser"
	"lintang/timemap/pkg/transit"

	"github.com/k0kubun/go-ansi"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

var (
	configPath   = flag.String("config", "timemap.yaml", "yaml config file")
	workers      = flag.Int("workers", 0, "number of lookup workers (override config)")
	journeysFrom = flag.String("journeys-from", "", "also warm journey lookups from this station to its close stations")
	logLevel     = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

// journey search satu request in flight, sama seperti saat selection
const journeyWorkers = 1

type journeyLookup interface {
	Journeys(ctx context.Context, from, to, departure string) ([]datastructure.Journey, error)
}

type warmResult struct {
	key string
	err error
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.0000",
	})
	flag.Parse()
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("invalid config: %s", err)
	}
	if *workers > 0 {
		cfg.WarmCache.Workers = *workers
	}
	if cfg.Cache.Path == "" {
		logrus.Fatal("cache.path is empty, nothing to warm")
	}

	records, err := routeparser.LoadRouteFiles(cfg.Routes.Files)
	if err != nil {
		logrus.Fatalf("failed to load route files: %s", err)
	}
	world := datastructure.NewWorldState()
	routeparser.Build(world, records)

	kvDB, err := kv.OpenKVDB(cfg.Cache.Path)
	if err != nil {
		logrus.Fatalf("failed to open cache store %s: %s", cfg.Cache.Path, err)
	}
	defer kvDB.Close()

	client := transit.NewClient(cfg.Transit.BaseURL, cfg.Transit.Timeout)
	lk := lookup.NewLookup(kvDB, client, client)
	ctx := context.Background()

	names := world.StationNames()
	pending := uncached(kvDB, names, lookup.StationKey)
	failed := warm(pending, cfg.WarmCache.Workers, "[cyan][1/2][reset] Station lookups...", func(name string) warmResult {
		_, err := lk.StationDetails(ctx, name)
		return warmResult{key: lookup.StationKey(name), err: err}
	})

	if *journeysFrom != "" {
		origin, ok := world.GetStation(*journeysFrom)
		if !ok || !origin.HasLocation {
			logrus.Fatalf("station %q is unknown or has no location", *journeysFrom)
		}
		idx := geo.NewStationIndex()
		for _, st := range world.Stations() {
			if st.HasLocation {
				idx.Insert(st.Name, st.Lat, st.Lon)
			}
		}
		closeStations := lo.Without(idx.Nearby(origin.Lat, origin.Lon, cfg.Augmentation.RadiusKM), origin.Name)
		closeStations = uncached(kvDB, closeStations, func(to string) string {
			return lookup.JourneyKey(cfg.Augmentation.Departure, origin.Name, to)
		})
		failed += warmJourneys(ctx, lk, origin.Name, closeStations, cfg.Augmentation.Departure)
	}

	logrus.WithFields(logrus.Fields{
		"stations": len(names),
		"cached":   len(names) - len(pending),
		"failed":   failed,
	}).Info("cache warm-up done")
}

// uncached item yang key nya belum ada di store. Error baca dianggap belum ada.
func uncached(kvDB *kv.KVDB, items []string, key func(string) string) []string {
	return lo.Filter(items, func(item string, _ int) bool {
		has, err := kvDB.Has(key(item))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"key":   key(item),
				"error": err,
			}).Warn("failed to check cache")
			return true
		}
		return !has
	})
}

func warmJourneys(ctx context.Context, lk journeyLookup, origin string, stations []string, departure string) int {
	return warm(stations, journeyWorkers, "[cyan][2/2][reset] Journey lookups...", func(to string) warmResult {
		_, err := lk.Journeys(ctx, origin, to, departure)
		return warmResult{key: lookup.JourneyKey(departure, origin, to), err: err}
	})
}

// warm jalankan fn untuk setiap item lewat worker pool, return jumlah yang gagal.
func warm(items []string, numWorkers int, desc string, fn func(string) warmResult) int {
	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	wp := concurrent.NewWorkerPool[string, warmResult](numWorkers, len(items))
	wp.Start(func(job concurrent.Job[string]) warmResult {
		return fn(job.JobItem)
	})
	for i, item := range items {
		wp.AddJob(concurrent.Job[string]{ID: i, JobItem: item})
	}
	wp.Close()

	go wp.Wait()

	failed := 0
	for res := range wp.CollectResults() {
		bar.Add(1)
		if res.err != nil {
			failed++
			logrus.WithFields(logrus.Fields{
				"key":   res.key,
				"error": res.err,
			}).Warn("lookup failed")
		}
	}
	return failed
}
