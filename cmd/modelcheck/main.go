// Command modelcheck loads the configured detection model and reports whether
// it is usable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/service/ai"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	fmt.Printf("Loading %s model from %s\n", cfg.Model.Backend, modelLocation(cfg.Model))

	m, err := ai.LoadModel(context.Background(), cfg.Model, log)
	if err != nil {
		fmt.Printf("Model load failed: %v\n", err)
		log.Close()
		os.Exit(1)
	}
	defer m.Close()

	labels := m.Labels()
	fmt.Printf("Model loaded successfully (backend=%s)\n", m.Backend())
	fmt.Printf("Labels: %d\n", len(labels))

	ids := make([]int, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Printf("  %d: %s\n", id, labels[id])
	}
}

func modelLocation(cfg config.ModelConfig) string {
	if cfg.Backend == config.BackendRemote {
		return cfg.RemoteURL
	}
	return cfg.Path
}
