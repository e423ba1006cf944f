package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bominventory-backend/config"
	"bominventory-backend/models"
	"bominventory-backend/repository"
	"bominventory-backend/services"

	"github.com/prometheus/client_golang/prometheus"
)

// Загрузка BOM-листа или журнала поставок из файла напрямую в БД
func main() {
	kind := flag.String("kind", services.ImportKindBOM, "what to import: bom or deliveries")
	path := flag.String("file", "", "path to the .xlsx or .csv file")
	sheet := flag.String("sheet", "", "worksheet name (defaults to the first sheet)")
	encoding := flag.String("encoding", services.EncodingUTF8, "csv encoding: utf-8 or windows-1252")
	format := flag.String("format", "", "xlsx or csv (defaults to the file extension)")
	flag.Parse()

	cfg := config.Load()
	config.SetLogLevel(cfg.LogLevel)
	log := config.GetLogger()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Подключаемся к БД
	db, err := models.InitDB(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := models.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}

	file, err := os.Open(*path)
	if err != nil {
		log.WithError(err).Fatal("failed to open import file")
	}
	defer file.Close()

	if *format == "" {
		*format = services.FormatFromFilename(*path)
	}

	store := repository.NewGormStore(db)
	metrics := services.NewMetrics(prometheus.NewRegistry())
	engine := services.NewReconciliationService(store, services.NoopLocker{}, nil, metrics, log)
	catalog := services.NewCatalogService(store, nil, cfg.FleetSize, cfg.LowStockTrains, log)
	imports := services.NewImportService(catalog, engine, store, nil, metrics, log)

	opts := services.ImportOptions{Format: *format, Sheet: *sheet, Encoding: *encoding}
	ctx := context.Background()

	var summary *services.ImportSummary
	switch *kind {
	case services.ImportKindBOM:
		summary, err = imports.ImportBOM(ctx, file, opts)
	case services.ImportKindDeliveries:
		summary, err = imports.ImportDeliveries(ctx, file, opts)
	default:
		log.WithField("kind", *kind).Fatal("unknown import kind")
	}
	if err != nil {
		log.WithError(err).Fatal("import failed")
	}

	fmt.Printf("%s import: %d rows, %d created, %d updated, %d linked, %d skipped\n",
		summary.Kind, summary.Rows, summary.Created, summary.Updated, summary.Linked, summary.Skipped)
	for _, rowErr := range summary.Errors {
		fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Message)
	}
}
