package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/logger"
)

// DefaultRefreshInterval is the periodic reload cadence.
const DefaultRefreshInterval = 5 * time.Second

// Refresher reloads the dashboard data.
type Refresher interface {
	Refresh(ctx context.Context) (RefreshResult, error)
}

// RefreshService reloads the dashboard on a schedule and whenever the
// traffic log changes on disk.
type RefreshService struct {
	target   Refresher
	path     string
	interval time.Duration

	cron    *cron.Cron
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *logrus.Entry
}

func NewRefreshService(target Refresher, logPath string, interval time.Duration) *RefreshService {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &RefreshService{
		target:   target,
		path:     filepath.Clean(logPath),
		interval: interval,
		log:      logger.Component("refresh"),
	}
}

// Start performs an initial reload, then schedules the periodic one and
// begins watching the log's directory. A missing directory only disables
// the watcher.
func (r *RefreshService) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)
	r.trigger(ctx, "startup")

	r.cron = cron.New()
	if _, err := r.cron.AddFunc("@every "+r.interval.String(), func() { r.trigger(ctx, "schedule") }); err != nil {
		r.cancel()
		return fmt.Errorf("schedule refresh: %w", err)
	}
	r.cron.Start()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.log.WithError(err).Warn("file watcher unavailable, relying on schedule")
		return nil
	}
	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		if os.IsNotExist(err) {
			r.log.WithField("dir", dir).Warn("traffic log directory missing, relying on schedule")
			return nil
		}
		r.log.WithError(err).Warn("cannot watch traffic log directory, relying on schedule")
		return nil
	}
	r.watcher = watcher

	r.wg.Add(1)
	go r.watch(ctx)
	return nil
}

// Stop halts scheduling and watching and waits for running reloads.
func (r *RefreshService) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	if r.watcher != nil {
		r.watcher.Close()
	}
	r.wg.Wait()
}

func (r *RefreshService) watch(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				r.trigger(ctx, "file "+event.Op.String())
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.WithError(err).Warn("file watcher error")
		}
	}
}

func (r *RefreshService) trigger(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	res, err := r.target.Refresh(ctx)
	if err != nil {
		r.log.WithError(err).WithField("reason", reason).Warn("dashboard refresh failed")
		return
	}
	r.log.WithFields(logrus.Fields{"reason": reason, "loaded": res.Loaded}).Debug("dashboard refreshed")
}
