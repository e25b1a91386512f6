package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/classifier"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/logger"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/metrics"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/models"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/trafficlog"
)

var (
	ErrInvalidWindow = errors.New("invalid time window")
	ErrInvalidBucket = errors.New("invalid timeline bucket")
)

// Window filters events by age relative to now.
type Window string

const (
	WindowDay   Window = "24h"
	WindowWeek  Window = "7d"
	WindowMonth Window = "30d"
	WindowAll   Window = "all"
)

// ParseWindow accepts the four window names; empty means all.
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case "":
		return WindowAll, nil
	case WindowDay, WindowWeek, WindowMonth, WindowAll:
		return w, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWindow, s)
}

func (w Window) duration() time.Duration {
	switch w {
	case WindowDay:
		return 24 * time.Hour
	case WindowWeek:
		return 7 * 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Bucket is the timeline resolution.
type Bucket string

const (
	BucketMinute Bucket = "minute"
	BucketHour   Bucket = "hour"
)

// ParseBucket accepts minute or hour; empty means minute.
func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(s); b {
	case "":
		return BucketMinute, nil
	case BucketMinute, BucketHour:
		return b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBucket, s)
}

func (b Bucket) micros() int64 {
	if b == BucketHour {
		return int64(time.Hour / time.Microsecond)
	}
	return int64(time.Minute / time.Microsecond)
}

const (
	DefaultRecentLimit = 100
	MaxRecentLimit     = 1000
	insertBatchSize    = 500
)

// RefreshResult describes one reload of the traffic log.
type RefreshResult struct {
	Loaded    int       `json:"loaded"`
	Skipped   int       `json:"skipped"`
	Refreshed time.Time `json:"refreshed_at"`
}

// DashboardService mirrors the traffic log into an in-memory table and
// answers the dashboard's aggregate queries from it.
type DashboardService struct {
	DB      *gorm.DB
	LogPath string
	Now     func() time.Time

	sf   singleflight.Group
	mu   sync.RWMutex
	last RefreshResult
	log  *logrus.Entry
}

func NewDashboardService(db *gorm.DB, logPath string) *DashboardService {
	return &DashboardService{
		DB:      db,
		LogPath: logPath,
		Now:     time.Now,
		log:     logger.Component("dashboard"),
	}
}

// Refresh reloads the whole log. Concurrent callers share one reload.
func (s *DashboardService) Refresh(ctx context.Context) (RefreshResult, error) {
	v, err, _ := s.sf.Do("refresh", func() (any, error) {
		return s.reload(ctx)
	})
	if err != nil {
		metrics.IncDashboardRefreshError()
		return RefreshResult{}, err
	}
	return v.(RefreshResult), nil
}

func (s *DashboardService) reload(ctx context.Context) (RefreshResult, error) {
	entries, stats, err := trafficlog.ReadAll(s.LogPath)
	if err != nil {
		return RefreshResult{}, err
	}

	events := make([]models.TrafficEvent, len(entries))
	byResult := map[string]int{classifier.LabelDDoS: 0, classifier.LabelBenign: 0}
	for i, e := range entries {
		events[i] = models.EventFromEntry(e)
		byResult[e.Result]++
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.TrafficEvent{}).Error; err != nil {
			return fmt.Errorf("clear events: %w", err)
		}
		if len(events) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&events, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		return nil
	})
	if err != nil {
		return RefreshResult{}, err
	}

	s.last = RefreshResult{Loaded: len(events), Skipped: stats.Skipped, Refreshed: s.Now()}
	metrics.IncDashboardRefresh()
	metrics.SetDashboardEvents(byResult)
	s.log.WithFields(logrus.Fields{"loaded": len(events), "skipped": stats.Skipped}).Debug("traffic log reloaded")
	return s.last, nil
}

// LastRefresh returns the outcome of the most recent successful reload.
func (s *DashboardService) LastRefresh() RefreshResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *DashboardService) scope(w Window) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		d := w.duration()
		if d == 0 {
			return db
		}
		return db.Where("at >= ?", s.Now().Add(-d).UnixMicro())
	}
}

func (s *DashboardService) events(w Window) *gorm.DB {
	return s.DB.Model(&models.TrafficEvent{}).Scopes(s.scope(w))
}

// ConfidenceBucket counts events whose confidence is in [Min, Max).
type ConfidenceBucket struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int64   `json:"count"`
}

// Summary holds the dashboard's headline figures.
type Summary struct {
	Window             Window             `json:"window"`
	Total              int64              `json:"total"`
	DDoS               int64              `json:"ddos"`
	Benign             int64              `json:"benign"`
	MaliciousSimulated int64              `json:"malicious_simulated"`
	BenignSimulated    int64              `json:"benign_simulated"`
	Correct            int64              `json:"correct"`
	Accuracy           float64            `json:"accuracy"`
	AvgConfidence      float64            `json:"avg_confidence"`
	Confidence         []ConfidenceBucket `json:"confidence_buckets"`
	LastEvent          *time.Time         `json:"last_event,omitempty"`
	LastRefresh        *time.Time         `json:"last_refresh,omitempty"`
}

type summaryRow struct {
	Total     int64   `gorm:"column:total"`
	DDoS      int64   `gorm:"column:ddos"`
	Malicious int64   `gorm:"column:malicious"`
	Correct   int64   `gorm:"column:correct"`
	AvgConf   float64 `gorm:"column:avg_conf"`
	LastAt    int64   `gorm:"column:last_at"`
	Low       int64   `gorm:"column:low"`
	Mid       int64   `gorm:"column:mid"`
	High      int64   `gorm:"column:high"`
	Top       int64   `gorm:"column:top"`
}

func (s *DashboardService) Summary(w Window) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row summaryRow
	err := s.events(w).Select(`COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0) AS ddos,
		COALESCE(SUM(CASE WHEN simulated_type = ? THEN 1 ELSE 0 END), 0) AS malicious,
		COALESCE(SUM(CASE WHEN (simulated_type = ? AND result = ?) OR (simulated_type = ? AND result = ?) THEN 1 ELSE 0 END), 0) AS correct,
		COALESCE(AVG(confidence), 0) AS avg_conf,
		COALESCE(MAX(at), 0) AS last_at,
		COALESCE(SUM(CASE WHEN confidence < 0.5 THEN 1 ELSE 0 END), 0) AS low,
		COALESCE(SUM(CASE WHEN confidence >= 0.5 AND confidence < 0.7 THEN 1 ELSE 0 END), 0) AS mid,
		COALESCE(SUM(CASE WHEN confidence >= 0.7 AND confidence < 0.9 THEN 1 ELSE 0 END), 0) AS high,
		COALESCE(SUM(CASE WHEN confidence >= 0.9 THEN 1 ELSE 0 END), 0) AS top`,
		classifier.LabelDDoS,
		string(trafficlog.Malicious),
		string(trafficlog.Malicious), classifier.LabelDDoS,
		string(trafficlog.Benign), classifier.LabelBenign,
	).Scan(&row).Error
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}

	sum := Summary{
		Window:             w,
		Total:              row.Total,
		DDoS:               row.DDoS,
		Benign:             row.Total - row.DDoS,
		MaliciousSimulated: row.Malicious,
		BenignSimulated:    row.Total - row.Malicious,
		Correct:            row.Correct,
		Accuracy:           classifier.RoundConfidence(ratio(row.Correct, row.Total)),
		AvgConfidence:      classifier.RoundConfidence(row.AvgConf),
		Confidence: []ConfidenceBucket{
			{Label: "<0.5", Min: 0, Max: 0.5, Count: row.Low},
			{Label: "0.5-0.7", Min: 0.5, Max: 0.7, Count: row.Mid},
			{Label: "0.7-0.9", Min: 0.7, Max: 0.9, Count: row.High},
			{Label: ">=0.9", Min: 0.9, Max: 1, Count: row.Top},
		},
	}
	if row.Total > 0 {
		t := time.UnixMicro(row.LastAt)
		sum.LastEvent = &t
	}
	if !s.last.Refreshed.IsZero() {
		t := s.last.Refreshed
		sum.LastRefresh = &t
	}
	return sum, nil
}

// Confusion is the confusion matrix with attacks as the positive class.
type Confusion struct {
	Window         Window  `json:"window"`
	TruePositives  int64   `json:"true_positives"`
	FalseNegatives int64   `json:"false_negatives"`
	FalsePositives int64   `json:"false_positives"`
	TrueNegatives  int64   `json:"true_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}

type pairCount struct {
	SimulatedType string `gorm:"column:simulated_type"`
	Result        string `gorm:"column:result"`
	N             int64  `gorm:"column:n"`
}

func (s *DashboardService) pairs(w Window) ([]pairCount, error) {
	var rows []pairCount
	err := s.events(w).
		Select("simulated_type, result, COUNT(*) AS n").
		Group("simulated_type, result").
		Scan(&rows).Error
	return rows, err
}

func (s *DashboardService) Confusion(w Window) (Confusion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.pairs(w)
	if err != nil {
		return Confusion{}, fmt.Errorf("confusion: %w", err)
	}

	c := Confusion{Window: w}
	for _, r := range rows {
		attack := r.SimulatedType == string(trafficlog.Malicious)
		flagged := r.Result == classifier.LabelDDoS
		switch {
		case attack && flagged:
			c.TruePositives += r.N
		case attack:
			c.FalseNegatives += r.N
		case flagged:
			c.FalsePositives += r.N
		default:
			c.TrueNegatives += r.N
		}
	}
	c.Precision = classifier.RoundConfidence(ratio(c.TruePositives, c.TruePositives+c.FalsePositives))
	c.Recall = classifier.RoundConfidence(ratio(c.TruePositives, c.TruePositives+c.FalseNegatives))
	if c.Precision+c.Recall > 0 {
		c.F1 = classifier.RoundConfidence(2 * c.Precision * c.Recall / (c.Precision + c.Recall))
	}
	return c, nil
}

// Distribution feeds the pie charts.
type Distribution struct {
	Window      Window           `json:"window"`
	ByResult    map[string]int64 `json:"by_result"`
	BySimulated map[string]int64 `json:"by_simulated"`
}

func (s *DashboardService) Distribution(w Window) (Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.pairs(w)
	if err != nil {
		return Distribution{}, fmt.Errorf("distribution: %w", err)
	}

	d := Distribution{
		Window:      w,
		ByResult:    map[string]int64{classifier.LabelDDoS: 0, classifier.LabelBenign: 0},
		BySimulated: map[string]int64{string(trafficlog.Malicious): 0, string(trafficlog.Benign): 0},
	}
	for _, r := range rows {
		d.ByResult[r.Result] += r.N
		d.BySimulated[r.SimulatedType] += r.N
	}
	return d, nil
}

// TimelinePoint counts the events of one bucket.
type TimelinePoint struct {
	Start  time.Time `json:"start"`
	DDoS   int64     `json:"ddos"`
	Benign int64     `json:"benign"`
}

type bucketCount struct {
	Bucket int64  `gorm:"column:bucket"`
	Result string `gorm:"column:result"`
	N      int64  `gorm:"column:n"`
}

// Timeline returns per-bucket counts in ascending time order. Empty buckets
// are omitted.
func (s *DashboardService) Timeline(w Window, b Bucket) ([]TimelinePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	width := b.micros()
	var rows []bucketCount
	err := s.events(w).
		Select("(at / ?) * ? AS bucket, result, COUNT(*) AS n", width, width).
		Group("bucket, result").
		Order("bucket").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	points := make([]TimelinePoint, 0, len(rows))
	for _, r := range rows {
		if len(points) == 0 || points[len(points)-1].Start.UnixMicro() != r.Bucket {
			points = append(points, TimelinePoint{Start: time.UnixMicro(r.Bucket)})
		}
		p := &points[len(points)-1]
		if r.Result == classifier.LabelDDoS {
			p.DDoS += r.N
		} else {
			p.Benign += r.N
		}
	}
	return points, nil
}

// EventView is a log row as shown in the events table.
type EventView struct {
	Timestamp     string  `json:"timestamp"`
	SimulatedType string  `json:"tipo_simulado"`
	Result        string  `json:"resultado"`
	Confidence    float64 `json:"probabilidad"`
}

// Recent returns the newest events first. limit <= 0 means the default and
// is capped at MaxRecentLimit.
func (s *DashboardService) Recent(w Window, limit int) ([]EventView, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []models.TrafficEvent
	if err := s.events(w).Order("at DESC, id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}

	out := make([]EventView, len(events))
	for i, e := range events {
		out[i] = EventView{
			Timestamp:     e.Time().Format(trafficlog.TimestampLayout),
			SimulatedType: e.SimulatedType,
			Result:        e.Result,
			Confidence:    e.Confidence,
		}
	}
	return out, nil
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
