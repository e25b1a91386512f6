package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/classifier"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/config"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/dataset"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/logger"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/metrics"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/server"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/simulator"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/trafficlog"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/version"
)

func main() {
	delay := flag.Duration("delay", simulator.DefaultDelay, "pause between packets, 0 for none")
	maxPackets := flag.Int("max", 0, "stop after this many packets, 0 runs until interrupted")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Log().Fatalf("load config: %v", err)
	}

	opts := simulator.Options{Delay: *delay, MaxPackets: *maxPackets, Console: os.Stdout}
	if opts.Delay == 0 {
		opts.Delay = -1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, opts)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run replays the dataset until ctx is done or opts.MaxPackets is reached.
// Startup failures are logged to the app log and returned.
func run(ctx context.Context, cfg config.Config, opts simulator.Options) error {
	rotator, err := logger.RotatingFile(cfg.AppLogDir, "simulator")
	if err != nil {
		logger.Log().WithError(err).Error("open app log")
		return err
	}
	defer rotator.Close()
	out := io.Writer(rotator)
	if opts.Console != nil {
		out = io.MultiWriter(opts.Console, rotator)
	}
	logger.Init(cfg.Debug, out)
	log := logger.Component("simulator")
	log.Infof("starting %s simulator %s", version.Name, version.Full())

	model, err := classifier.LoadModel(cfg.ModelPath, classifier.ONNXOptions{
		SharedLibraryPath: cfg.ONNX.SharedLibrary,
		InputName:         cfg.ONNX.Input,
		LabelOutput:       cfg.ONNX.LabelOutput,
		ProbaOutput:       cfg.ONNX.ProbaOutput,
	})
	if err != nil {
		log.WithError(err).Error("load model")
		return err
	}
	if c, ok := model.(io.Closer); ok {
		defer c.Close()
	}

	ds, stats, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		log.WithError(err).Error("load dataset")
		return err
	}
	ds.Shuffle(cfg.ShuffleSeed)
	log.WithFields(logrus.Fields{
		"path":    cfg.DatasetPath,
		"rows":    stats.Kept,
		"dropped": stats.Dropped,
		"labels":  ds.LabelCounts(),
	}).Info("dataset loaded")

	writer, err := trafficlog.NewWriter(cfg.TrafficLogPath)
	if err != nil {
		log.WithError(err).Error("prepare traffic log")
		return err
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	if cfg.MetricsAddr != "" {
		go func() {
			handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
			if err := server.Run(ctx, cfg.MetricsAddr, handler); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
		log.WithField("addr", cfg.MetricsAddr).Info("serving metrics")
	}

	sim := simulator.New(dataset.NewSampler(ds, cfg.ShuffleSeed), classifier.New(model), writer, opts)

	log.WithField("traffic_log", writer.Path()).Info("replaying traffic")
	result, err := sim.Run(ctx)
	log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"skipped":   result.Skipped,
	}).Info("simulator stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("simulator stopped unexpectedly")
		return err
	}
	return nil
}
