// Command wanderd runs the wandering-detection daemon: it ingests GPS
// samples, classifies recent movement, persists zones and events, and
// serves the HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/elmbrook/wanderguard/internal/api"
	"github.com/elmbrook/wanderguard/internal/config"
	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/elmbrook/wanderguard/internal/gps"
	"github.com/elmbrook/wanderguard/internal/store"
	"github.com/elmbrook/wanderguard/internal/timeutil"
	"github.com/elmbrook/wanderguard/internal/wander"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbPath        = flag.String("db", "wanderguard.db", "Path to the sqlite database")
	configPath    = flag.String("config", "", "Path to a JSON tuning file (defaults apply when empty)")
	gpsPath       = flag.String("gps", "/dev/ttyUSB0", "GPS receiver serial port")
	devMode       = flag.Bool("dev", false, "Run in dev mode with fixture GPS sentences")
	fixturesPath  = flag.String("fixtures", "fixtures.nmea", "NMEA fixture file for dev mode")
	migrationsDir = flag.String("migrations", "", "Run migrations from this directory before starting")
)

// recordingSource wraps a position source so every admitted sample also
// lands in the sample log for offline reports.
type recordingSource struct {
	src wander.PositionSource
	st  *store.Store
}

func (r *recordingSource) Watch(onSample func(geo.Point), onErr func(error)) (func(), error) {
	return r.src.Watch(func(p geo.Point) {
		onSample(p)
		if err := r.st.RecordSample(p); err != nil {
			log.Printf("failed to record sample: %v", err)
		}
	}, onErr)
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning := config.EmptyTuning()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuning(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	if *migrationsDir != "" {
		if err := st.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	var source wander.PositionSource
	if *devMode {
		data, err := os.ReadFile(*fixturesPath)
		if err != nil {
			log.Fatalf("failed to read fixtures file: %v", err)
		}
		source = &gps.MockSource{Fixture: data, Interval: time.Second}
	} else {
		source = &gps.SerialSource{Path: *gpsPath}
	}

	monitor, err := wander.NewMonitor(
		tuning,
		timeutil.RealClock{},
		&recordingSource{src: source, st: st},
		st,
		wander.WithRecorder(st),
	)
	if err != nil {
		log.Fatalf("failed to build monitor: %v", err)
	}

	// Log every transition. Alerting consumers (phone call, navigation)
	// subscribe over the SSE endpoint instead.
	unsubscribe := monitor.Subscribe(func(e wander.Event) {
		if e.Type == wander.EventSnapshot {
			return
		}
		log.Printf("event %s: pattern=%s confidence=%.2f outside=%v distance_home=%.0fm",
			e.Type, e.State.Pattern, e.State.Confidence,
			e.State.OutsideSafeZone, e.State.DistanceFromHomeMeters)
	})
	defer unsubscribe()

	if err := monitor.Start(); err != nil {
		log.Fatalf("failed to start tracking: %v", err)
	}
	defer monitor.Stop()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		if err := st.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach admin routes: %v", err)
		}

		apiMux := api.NewServer(monitor, st, tuning).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
