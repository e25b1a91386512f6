// Package simulator replays dataset rows through the classifier and appends
// every result to the traffic log.
package simulator

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/classifier"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/features"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/logger"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/metrics"
	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/trafficlog"
)

// DefaultDelay is the pause between two replayed packets.
const DefaultDelay = 300 * time.Millisecond

// Sampler yields labeled rows.
type Sampler interface {
	Sample() features.Record
}

// Classifier turns a feature vector into a result.
type Classifier interface {
	Classify(features.Flow) (classifier.Result, error)
}

// Sink stores log entries.
type Sink interface {
	Append(trafficlog.Entry) error
}

// Options tunes the replay loop. Zero values pick the defaults.
type Options struct {
	// Delay between iterations. Negative means no delay.
	Delay time.Duration
	// MaxPackets stops the loop after that many processed rows; 0 runs until
	// the context is cancelled.
	MaxPackets int
	// Console receives one human-readable line per classification.
	Console io.Writer
	// Now stamps entries.
	Now func() time.Time
}

// Stats counts iterations. Processed includes skipped ones.
type Stats struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

type Simulator struct {
	sampler    Sampler
	classifier Classifier
	sink       Sink
	opts       Options
	log        *logrus.Entry
}

func New(sampler Sampler, c Classifier, sink Sink, opts Options) *Simulator {
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Console == nil {
		opts.Console = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Simulator{
		sampler:    sampler,
		classifier: c,
		sink:       sink,
		opts:       opts,
		log:        logger.Component("simulator"),
	}
}

// Run replays rows until ctx is done or MaxPackets rows were processed. A
// failing row is logged and skipped; Run itself only returns ctx's error.
func (s *Simulator) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if _, err := s.Step(ctx); err != nil {
			stats.Skipped++
		}
		stats.Processed++

		if s.opts.MaxPackets > 0 && stats.Processed >= s.opts.MaxPackets {
			return stats, nil
		}
		if s.opts.Delay < 0 {
			continue
		}

		if timer == nil {
			timer = time.NewTimer(s.opts.Delay)
		} else {
			timer.Reset(s.opts.Delay)
		}
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-timer.C:
		}
	}
}

// Step replays a single row without sleeping. The returned error has
// already been logged and counted.
func (s *Simulator) Step(ctx context.Context) (trafficlog.Entry, error) {
	row := s.sampler.Sample()
	simulated := trafficlog.SimulatedTypeFor(row[features.LabelColumn])
	flow := features.FromMap(row.Without(features.LabelColumn))

	res, err := s.classifier.Classify(flow)
	if err != nil {
		metrics.IncClassificationError("classify")
		s.log.WithError(err).WithField("simulated", simulated).Warn("classification failed, skipping row")
		return trafficlog.Entry{}, fmt.Errorf("classify: %w", err)
	}

	entry := trafficlog.NewEntry(s.opts.Now(), simulated, res)
	if err := s.sink.Append(entry); err != nil {
		metrics.IncClassificationError("append")
		s.log.WithError(err).WithField("simulated", simulated).Warn("traffic log append failed, skipping row")
		return trafficlog.Entry{}, fmt.Errorf("append: %w", err)
	}

	metrics.ObserveClassification(entry.Result, string(entry.SimulatedType), entry.Confidence)
	fmt.Fprintln(s.opts.Console, ConsoleLine(entry))
	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"simulated":  entry.SimulatedType,
		"result":     entry.Result,
		"confidence": entry.Confidence,
	}).Debug("flow classified")
	return entry, nil
}

// ConsoleLine renders e as `[TYPE] → {'resultado': 'label', 'probabilidad': p}`.
func ConsoleLine(e trafficlog.Entry) string {
	return fmt.Sprintf("[%s] → {'resultado': '%s', 'probabilidad': %s}",
		e.SimulatedType, e.Result, formatProbability(e.Confidence))
}

// formatProbability always keeps a fractional part, so 1 prints as 1.0.
func formatProbability(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
