package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"checkout-service/internal/config"
	"checkout-service/internal/db"
	"checkout-service/internal/importer"
	"checkout-service/internal/logging"
	locationrepo "checkout-service/internal/repository/location"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a location catalog export (CSV or nested JSON)")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer f.Close()

	imp := importer.New(f, locationrepo.NewPostgres(pool, logger.Named("importer")))

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("Imported %d location rows in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
