package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/config"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/dataset"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().Fatalf("load config: %v", err)
	}

	in := flag.String("in", "", "raw CIC-IDS flow export (CSV)")
	out := flag.String("out", cfg.DatasetPath, "where to write the cleaned dataset")
	flag.Parse()
	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	rotator, err := logger.RotatingFile(cfg.AppLogDir, "preprocess")
	if err != nil {
		logger.Log().Fatalf("open app log: %v", err)
	}
	defer rotator.Close()
	logger.Init(cfg.Debug, io.MultiWriter(os.Stdout, rotator))
	log := logger.Component("preprocess")

	stats, err := run(*in, *out)
	if err != nil {
		log.Fatalf("preprocess: %v", err)
	}
	log.WithFields(logrus.Fields{
		"in":      *in,
		"out":     *out,
		"rows":    stats.Rows,
		"kept":    stats.Kept,
		"dropped": stats.Dropped,
		"labels":  stats.Labels,
	}).Info("dataset cleaned")
}

// run cleans in to a temporary file next to out and renames it into place
// so a failed run never leaves a partial dataset behind.
func run(in, out string) (dataset.Stats, error) {
	src, err := os.Open(in)
	if err != nil {
		return dataset.Stats{}, fmt.Errorf("open raw dataset: %w", err)
	}
	defer src.Close()

	ds, stats, err := dataset.Clean(src)
	if err != nil {
		return stats, err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return stats, fmt.Errorf("ensure output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(out), filepath.Base(out)+".*.tmp")
	if err != nil {
		return stats, fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := ds.WriteCSV(tmp); err != nil {
		tmp.Close()
		return stats, fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return stats, fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return stats, fmt.Errorf("move output into place: %w", err)
	}
	return stats, nil
}
