// Command migrate journals uploads that are on disk but missing from the
// database, running inference on each one with the configured model.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/model"
	"detectserver/internal/repository/sqlite"
	"detectserver/internal/service/ai"
	"detectserver/internal/service/history"
	"detectserver/internal/service/storage"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML configuration file")
	dryRun := flag.Bool("dry-run", false, "Only list the uploads that would be journaled")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Storage.DBPath == "" {
		log.Fatalf("storage.dbpath is empty, nothing to migrate into")
	}

	fmt.Printf("Migrating uploads from %s to database %s\n", cfg.Storage.UploadDir, cfg.Storage.DBPath)

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	uploadRepo := sqlite.NewUploadRepository(db)
	recorder := history.NewRecorder(uploadRepo, sqlite.NewDetectionRepository(db))

	store, err := storage.NewUploadStore(cfg.Storage.UploadDir)
	if err != nil {
		log.Fatalf("Failed to open upload directory: %v", err)
	}

	files, err := os.ReadDir(store.Dir())
	if err != nil {
		log.Fatalf("Failed to read upload directory: %v", err)
	}

	var pending []*model.UploadedAsset
	skipped := 0
	for _, file := range files {
		if file.IsDir() || !storage.IsAllowed(file.Name()) {
			continue
		}

		existing, err := uploadRepo.GetByStoredFilename(file.Name())
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}
		if existing != nil {
			continue
		}

		pending = append(pending, &model.UploadedAsset{
			OriginalFilename: storage.OriginalName(file.Name()),
			StoredFilename:   file.Name(),
			Path:             filepath.Join(store.Dir(), file.Name()),
		})
	}

	if len(pending) == 0 {
		fmt.Println("No uploads found to migrate")
		return
	}
	if *dryRun {
		for _, asset := range pending {
			fmt.Printf("  %s\n", asset.StoredFilename)
		}
		fmt.Printf("%d upload(s) would be journaled\n", len(pending))
		return
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Close()

	ctx := context.Background()
	adapter := ai.NewAdapterFromConfig(ctx, cfg, lg)
	defer adapter.Close()

	fmt.Printf("Journaling %d upload(s)...\n", len(pending))
	migrated := 0
	for _, asset := range pending {
		if err := store.Load(asset); err != nil {
			log.Printf("Skipping %s: %v", asset.StoredFilename, err)
			skipped++
			continue
		}

		res, inferErr := adapter.Infer(ctx, asset.Path, ai.InferOptions{
			Device:     cfg.Model.Device,
			Confidence: cfg.Model.Confidence,
			Save:       cfg.Model.Save,
		})
		if _, err := recorder.Record(asset, res, inferErr); err != nil {
			log.Printf("Failed to journal %s: %v", asset.StoredFilename, err)
			skipped++
			continue
		}
		migrated++
	}

	fmt.Printf("Successfully migrated %d upload(s) to database\n", migrated)
	if skipped > 0 {
		fmt.Printf("Skipped %d file(s) (errors)\n", skipped)
	}
}
