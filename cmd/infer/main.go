// Command infer runs the detection model on an image or on every image in a
// directory and prints the results as JSON. Annotated images of one
// invocation share a single run directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"detectserver/internal/config"
	"detectserver/internal/logger"
	"detectserver/internal/model"
	"detectserver/internal/service/ai"
	"detectserver/internal/service/storage"
)

type fileResult struct {
	Source string                 `json:"source"`
	Result *model.InferenceResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML configuration file")
	source := flag.String("source", "", "Image file or directory of images")
	device := flag.String("device", "", "Inference device, overrides model.device")
	conf := flag.Float64("conf", -1, "Confidence threshold, overrides model.confidence")
	name := flag.String("name", "", "Run name; generated when empty")
	flag.Parse()

	if *source == "" {
		fmt.Fprintln(os.Stderr, "-source is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *device != "" {
		cfg.Model.Device = *device
	}
	if *conf >= 0 {
		cfg.Model.Confidence = *conf
	}

	if err := run(cfg, *source, *name); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, source, runName string) error {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	images, err := collectImages(source)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images found in %s", source)
	}

	ctx := context.Background()
	adapter := ai.NewAdapterFromConfig(ctx, cfg, log)
	defer adapter.Close()
	if err := adapter.Ready(); err != nil {
		return err
	}

	if runName == "" {
		runName = ai.NewRunName()
	}

	results := make([]fileResult, 0, len(images))
	failed := 0
	for _, img := range images {
		res, err := adapter.Infer(ctx, img, ai.InferOptions{
			Device:     cfg.Model.Device,
			Confidence: cfg.Model.Confidence,
			Save:       true,
			RunName:    runName,
		})
		fr := fileResult{Source: img, Result: res}
		if err != nil {
			fr.Error = err.Error()
			failed++
		}
		results = append(results, fr)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Processed %d image(s), %d failed; output in %s\n",
		len(images), failed, filepath.Join(cfg.Storage.RunsDir, runName))
	if failed > 0 {
		return fmt.Errorf("%d image(s) failed", failed)
	}
	return nil
}

// collectImages returns source itself or the allowed images directly inside it.
func collectImages(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if !info.IsDir() {
		return []string{source}, nil
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}
	var images []string
	for _, e := range entries {
		if !e.IsDir() && storage.IsAllowed(e.Name()) {
			images = append(images, filepath.Join(source, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}
