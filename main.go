// Command footfall-server runs the forecast API: it opens the observation
// store, trains a model, and serves predictions over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/enroll-data/footfall.report/internal/api"
	"github.com/enroll-data/footfall.report/internal/config"
	"github.com/enroll-data/footfall.report/internal/features"
	"github.com/enroll-data/footfall.report/internal/fsutil"
	"github.com/enroll-data/footfall.report/internal/gen"
	"github.com/enroll-data/footfall.report/internal/model"
	"github.com/enroll-data/footfall.report/internal/obsdb"
	"github.com/enroll-data/footfall.report/internal/predict"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "footfall.db", "Observation database path")
	configPath = flag.String("config", "", "Pipeline config JSON (optional)")
	bootstrap  = flag.Bool("bootstrap", false, "Seed an empty store with synthetic data before training")
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		fs := flag.NewFlagSet("migrate", flag.ExitOnError)
		migrateDB := fs.String("db", "footfall.db", "Observation database path")
		migrationsDir := fs.String("migrations", "internal/obsdb/migrations", "Path to migration files")
		var action []string
		rest := os.Args[2:]
		for len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
			action = append(action, rest[0])
			rest = rest[1:]
		}
		fs.Parse(rest)
		obsdb.RunMigrateCommand(action, *migrateDB, *migrationsDir)
		return
	}

	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyPipelineConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadPipelineConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	cal := features.DefaultCalendar()
	if len(cfg.Holidays) > 0 {
		var err error
		if cal, err = features.NewCalendar(cfg.Holidays); err != nil {
			log.Fatalf("Failed to build holiday calendar: %v", err)
		}
	}

	db, err := obsdb.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	count, err := db.Count()
	if err != nil {
		log.Fatalf("Failed to query database: %v", err)
	}
	if count == 0 {
		if !*bootstrap {
			log.Fatalf("Observation store %s is empty; load data or pass -bootstrap", *dbFile)
		}
		records, err := gen.Generate(gen.Config{
			Start:    cfg.GetGeneratorStart(),
			End:      cfg.GetGeneratorEnd(),
			Seed:     cfg.GetGeneratorSeed(),
			Calendar: cal,
		})
		if err != nil {
			log.Fatalf("Failed to generate synthetic data: %v", err)
		}
		if err := db.InsertBatch(records); err != nil {
			log.Fatalf("Failed to seed synthetic data: %v", err)
		}
		log.Printf("Seeded %d synthetic observations", len(records))
	}

	store, err := model.NewStore(cfg.GetModelsDir(), fsutil.OSFileSystem{})
	if err != nil {
		log.Fatalf("Failed to open model store: %v", err)
	}

	params := model.Params{
		Rounds:       cfg.GetModelRounds(),
		LearningRate: cfg.GetLearningRate(),
		MinLeaf:      cfg.GetMinLeaf(),
	}

	bundle, art, err := predict.Retrain(db, cal, params, store)
	if err != nil {
		log.Fatalf("Failed to train model: %v", err)
	}
	log.Printf("Serving model artifact %s (%d feature rows)", art.ID, bundle.Meta.RowCount)

	server := api.NewServer(db, predict.NewPredictor(bundle), store, cal, params)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(server.ServeMux()),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Listening on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Print("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	wg.Wait()
}
