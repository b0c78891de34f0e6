// Command import fills the attraction catalog from Google Places or an .xlsx workbook.
//
//	import                          # all 23 provinces from Google Places
//	import -province Azuay          # a single province
//	import -source xlsx -file seed.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/config"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/db"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/logger"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/places"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/repository"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/service"
)

func main() {
	sourceName := flag.String("source", "google", "places source: google or xlsx")
	file := flag.String("file", "", "workbook path for -source xlsx")
	province := flag.String("province", "", "import a single province")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		source  service.PlacesSource
		regions []places.Region
	)
	switch *sourceName {
	case "google":
		if cfg.GooglePlacesKey == "" {
			lg.Fatal("GOOGLE_PLACES_KEY is not set")
		}
		source = places.NewGoogleClient(cfg.GooglePlacesKey)
		var ok bool
		if regions, ok = places.Provinces(*province, cfg.ImportRadius); !ok {
			lg.Fatal("unknown province", zap.String("province", *province))
		}
	case "xlsx":
		if *file == "" {
			lg.Fatal("-file is required with -source xlsx")
		}
		wb, err := places.OpenWorkbook(*file)
		if err != nil {
			lg.Fatal("read workbook", zap.Error(err))
		}
		source = wb
		for _, r := range wb.Regions() {
			if *province == "" || r.Name == *province {
				regions = append(regions, r)
			}
		}
	default:
		lg.Fatal("unknown source", zap.String("source", *sourceName))
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("database", zap.Error(err))
	}
	defer conn.Close()
	if err := db.Migrate(conn, cfg.MigrationsDir, lg); err != nil {
		lg.Fatal("migrations", zap.Error(err))
	}

	interval := cfg.ImportInterval
	if *sourceName == "xlsx" {
		interval = 0
	}
	importer := service.NewImportService(repository.NewAttractionRepository(conn), source, interval, lg.Named("import"))

	report := importer.Run(ctx, regions)
	if err := report.Write(os.Stdout); err != nil {
		lg.Error("write report", zap.Error(err))
	}
	if report.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d region(s) failed\n", report.Failed)
		os.Exit(1)
	}
}
