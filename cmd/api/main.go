package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/api/routes"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/config"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/database"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/logger"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/metrics"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/models"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/server"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/services"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Stdout)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run serves the dashboard until ctx is done. Failures after the app log is
// open are logged there and returned so that deferred closes still run.
func run(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	rotator, err := logger.RotatingFile(cfg.AppLogDir, "api")
	if err != nil {
		logger.Log().WithError(err).Error("open app log")
		return err
	}
	defer rotator.Close()
	logger.Init(cfg.Debug, io.MultiWriter(stdout, rotator))
	log := logger.Component("api")
	log.Infof("starting %s dashboard API %s", version.Name, version.Full())

	db, err := database.Connect(database.MemoryDSN(), &models.TrafficEvent{})
	if err != nil {
		log.WithError(err).Error("connect database")
		return err
	}
	defer database.Close(db)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	dash := services.NewDashboardService(db, cfg.TrafficLogPath)

	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	}
	router := server.NewRouter(cfg.FrontendDir, cfg.Debug)
	if err := routes.Register(router, dash, registry); err != nil {
		log.WithError(err).Error("register routes")
		return err
	}

	refresher := services.NewRefreshService(dash, cfg.TrafficLogPath, cfg.RefreshInterval)
	if err := refresher.Start(ctx); err != nil {
		log.WithError(err).Error("start refresh")
		return err
	}

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.WithField("traffic_log", cfg.TrafficLogPath).Infof("listening on %s", addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, addr, router)
	})
	g.Go(func() error {
		<-gctx.Done()
		refresher.Stop()
		return nil
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server error")
		return err
	}
	log.Info("shut down")
	return nil
}
