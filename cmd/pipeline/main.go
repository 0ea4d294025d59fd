// Command pipeline runs the offline forecasting pipeline end to end:
// ingest (real CSV extract or synthetic data), feature engineering, model
// training, and artifact/report output. Useful for batch runs and for
// producing a database the server can serve from.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/enroll-data/footfall.report/internal/config"
	"github.com/enroll-data/footfall.report/internal/features"
	"github.com/enroll-data/footfall.report/internal/fsutil"
	"github.com/enroll-data/footfall.report/internal/gen"
	"github.com/enroll-data/footfall.report/internal/loader"
	"github.com/enroll-data/footfall.report/internal/model"
	"github.com/enroll-data/footfall.report/internal/obsdb"
	"github.com/enroll-data/footfall.report/internal/predict"
	"github.com/enroll-data/footfall.report/internal/report"
)

var (
	dbFile     = flag.String("db", "footfall.db", "Observation database path")
	csvFile    = flag.String("csv", "", "Real footfall extract to ingest (optional)")
	configPath = flag.String("config", "", "Pipeline config JSON (optional)")
	outDir     = flag.String("out", "output", "Directory for feature table, metadata, and plots")
	plots      = flag.Bool("plots", true, "Render per-pincode trend PNGs")
)

func main() {
	flag.Parse()

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

	runID, err := db.StartRun("pipeline", *dbFile)
	if err != nil {
		log.Printf("Failed to record run: %v", err)
	}

	// Stage 1: ingest.
	switch {
	case *csvFile != "":
		rep, err := loader.Load(db, *csvFile)
		if err != nil {
			log.Fatalf("Failed to load extract: %v", err)
		}
		log.Printf("Ingested %d rows (%d duplicates dropped, %d fixes)",
			rep.Inserted, rep.Duplicates, len(rep.Fixes))
	default:
		count, err := db.Count()
		if err != nil {
			log.Fatalf("Failed to query database: %v", err)
		}
		if count == 0 {
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
				log.Fatalf("Failed to insert synthetic data: %v", err)
			}
			log.Printf("Generated %d synthetic observations", len(records))
		}
	}

	// Stage 2: engineer + train.
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
	log.Printf("Trained artifact %s: mae %.2f rmse %.2f r2 %.3f",
		art.ID, art.Metrics.MAE, art.Metrics.RMSE, art.Metrics.R2)

	// Stage 3: write artifacts and reports.
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}
	if n, err := loader.Export(db, filepath.Join(*outDir, "observations.csv")); err != nil {
		log.Fatalf("Failed to export observations: %v", err)
	} else {
		log.Printf("Exported %d observations", n)
	}
	if err := bundle.Table.WriteCSV(filepath.Join(*outDir, "features.csv")); err != nil {
		log.Fatalf("Failed to write feature table: %v", err)
	}
	if err := bundle.Meta.WriteMetadata(filepath.Join(*outDir, "metadata.json")); err != nil {
		log.Fatalf("Failed to write table metadata: %v", err)
	}

	if *plots {
		predictor := predict.NewPredictor(bundle)
		_, last, err := db.DateRange()
		if err != nil {
			log.Fatalf("Failed to read date range: %v", err)
		}
		for _, pincode := range bundle.Table.Pincodes() {
			history, err := db.History(pincode)
			if err != nil {
				log.Fatalf("Failed to read history for %s: %v", pincode, err)
			}
			if len(history) > 90 {
				history = history[len(history)-90:]
			}
			fc, err := predictor.Week(pincode, last.AddDate(0, 0, 1))
			if err != nil {
				log.Printf("Skipping plot for %s: %v", pincode, err)
				continue
			}
			path := filepath.Join(*outDir, "trend_"+pincode+".png")
			if err := report.SaveTrendPNG(path, pincode, history, fc); err != nil {
				log.Printf("Failed to plot %s: %v", pincode, err)
			}
		}
	}

	if runID != "" {
		if err := db.FinishRun(runID); err != nil {
			log.Printf("Failed to record run finish: %v", err)
		}
	}
	log.Printf("Pipeline complete; artifacts in %s", *outDir)
}
