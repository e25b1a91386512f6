package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/config"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/database"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/logger"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/models"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/services"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().Fatalf("load config: %v", err)
	}

	windowFlag := flag.String("window", string(services.WindowAll), "time window: 24h, 7d, 30d or all")
	interval := flag.Duration("interval", cfg.RefreshInterval, "redraw interval")
	flag.Parse()
	if *interval <= 0 {
		logger.Log().Fatalf("interval must be positive, got %s", *interval)
	}

	window, err := services.ParseWindow(*windowFlag)
	if err != nil {
		logger.Log().Fatalf("%v", err)
	}

	// The terminal belongs to termui, so logs only go to the file.
	rotator, err := logger.RotatingFile(cfg.AppLogDir, "tui")
	if err != nil {
		logger.Log().Fatalf("open app log: %v", err)
	}
	defer rotator.Close()
	logger.Init(cfg.Debug, rotator)
	log := logger.Component("tui")

	db, err := database.Connect(database.MemoryDSN(), &models.TrafficEvent{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer database.Close(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := tui.ServiceSource{
		Service: services.NewDashboardService(db, cfg.TrafficLogPath),
		Window:  window,
	}
	if err := tui.Run(ctx, src, *interval); err != nil {
		log.Fatalf("tui: %v", err)
	}
}
