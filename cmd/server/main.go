package main

import (
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lintang/timemap/pkg/config"
	"lintang/timemap/pkg/datastructure"
	"lintang/timemap/pkg/kv"
	"lintang/timemap/pkg/lookup"
	"lintang/timemap/pkg/routeparser"
	"lintang/timemap/pkg/server/rest"
	"lintang/timemap/pkg/server/rest/service"
	"lintang/timemap/pkg/transit"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/k0kubun/go-ansi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "timemap.yaml", "yaml config file")
	listenAddr = flag.String("listenaddr", "", "server listen address (override config)")
	logLevel   = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

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
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}

	world := datastructure.NewWorldState()
	loadRoutes(world, cfg.Routes.Files)

	var cache lookup.Cache
	var kvDB *kv.KVDB
	if cfg.Cache.Path == "" {
		logrus.Info("cache.path is empty, lookups are cached in memory only")
		cache = lookup.NewMemoryCache()
	} else {
		kvDB, err = kv.OpenKVDB(cfg.Cache.Path)
		if err != nil {
			logrus.Fatalf("failed to open cache store %s: %s", cfg.Cache.Path, err)
		}
		cache = kvDB
	}

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	client := transit.NewClient(cfg.Transit.BaseURL, cfg.Transit.Timeout)
	lk := lookup.NewLookup(cache, client, client, lookup.WithMetrics(lookup.NewMetrics(reg)))

	mapSvc := service.NewMapService(world, lk, service.Options{
		RadiusKM:       cfg.Augmentation.RadiusKM,
		AdHocSeconds:   cfg.Augmentation.AdHocSeconds,
		Departure:      cfg.Augmentation.Departure,
		HorizonSeconds: cfg.Map.HorizonSeconds,
		RingSeconds:    cfg.Map.RingSeconds,
	})
	view, err := mapSvc.Initialize(cfg.Map.DefaultOrigin)
	if err != nil {
		logrus.Fatalf("failed to compute initial layout: %s", err)
	}
	logrus.WithFields(logrus.Fields{
		"origin":      view.Origin,
		"stations":    len(view.Stations),
		"connections": len(view.Connections),
	}).Info("initial layout ready")

	r := chi.NewRouter()

	r.Use(middleware.Logger)

	r.Use(rest.PromeHttpMiddleware(m)) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Mount("/debug", middleware.Profiler())

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	rest.MapRouter(r, mapSvc, m)

	s := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: r,
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		logrus.Info("stopping...")
		s.Close()
	}()

	logrus.Infof("server listening at %v", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatalf("failed to serve: %v", err)
	}
	if kvDB != nil {
		if err := kvDB.Close(); err != nil {
			logrus.Errorf("failed to close cache store: %v", err)
		}
	}
	logrus.Info("timemap closes")
}

func loadRoutes(world *datastructure.WorldState, files []string) {
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription("[cyan][1/2][reset] Membaca route files..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	records := make([]datastructure.RouteRecord, 0)
	for _, f := range files {
		recs, err := routeparser.LoadRouteFile(f)
		if err != nil {
			logrus.Fatalf("failed to load route file %s: %s", f, err)
		}
		records = append(records, recs...)
		bar.Add(1)
	}

	res := routeparser.Build(world, records)
	logrus.WithFields(logrus.Fields{
		"files":       len(files),
		"routes":      res.Added,
		"dropped":     len(res.Dropped),
		"stations":    world.NumStations(),
		"connections": world.NumConnections(),
	}).Info("[2/2] graph built")
}
