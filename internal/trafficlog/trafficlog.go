// Package trafficlog reads and writes the append-only CSV log of classified
// flows shared by the simulator and the dashboards.
package trafficlog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/classifier"
)

// SimulatedType is the ground truth of the replayed row.
type SimulatedType string

const (
	Benign    SimulatedType = "BENIGNO"
	Malicious SimulatedType = "MALICIOSO"
)

// SimulatedTypeFor maps a dataset label to its simulated type.
func SimulatedTypeFor(label float64) SimulatedType {
	if int(label) == 0 {
		return Benign
	}
	return Malicious
}

func (t SimulatedType) Valid() bool {
	return t == Benign || t == Malicious
}

// Header is the first row of every log file.
var Header = []string{"timestamp", "tipo_simulado", "resultado", "probabilidad"}

// TimestampLayout is ISO-8601 local time with microseconds and no zone.
const TimestampLayout = "2006-01-02T15:04:05.000000"

var ErrInvalidEntry = errors.New("invalid log entry")

// Entry is one classified flow.
type Entry struct {
	Timestamp     time.Time     `json:"timestamp"`
	SimulatedType SimulatedType `json:"tipo_simulado"`
	Result        string        `json:"resultado"`
	Confidence    float64       `json:"probabilidad"`
}

// NewEntry builds an entry from a classification result.
func NewEntry(at time.Time, simulated SimulatedType, res classifier.Result) Entry {
	return Entry{
		Timestamp:     at,
		SimulatedType: simulated,
		Result:        res.Label.String(),
		Confidence:    classifier.RoundConfidence(res.Confidence),
	}
}

// Validate enforces the log invariants.
func (e Entry) Validate() error {
	if !e.SimulatedType.Valid() {
		return fmt.Errorf("%w: simulated type %q", ErrInvalidEntry, e.SimulatedType)
	}
	if !classifier.ValidLabel(e.Result) {
		return fmt.Errorf("%w: result %q", ErrInvalidEntry, e.Result)
	}
	if math.IsNaN(e.Confidence) || e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v", ErrInvalidEntry, e.Confidence)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEntry)
	}
	return nil
}

// Record renders the entry as a CSV row.
func (e Entry) Record() []string {
	return []string{
		e.Timestamp.Format(TimestampLayout),
		string(e.SimulatedType),
		e.Result,
		strconv.FormatFloat(e.Confidence, 'f', -1, 64),
	}
}

// ParseRecord is the inverse of Record. Timestamps without a zone are read
// in local time.
func ParseRecord(rec []string) (Entry, error) {
	if len(rec) != len(Header) {
		return Entry{}, fmt.Errorf("%w: %d fields", ErrInvalidEntry, len(rec))
	}

	ts, err := parseTimestamp(strings.TrimSpace(rec[0]))
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	conf, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: confidence: %v", ErrInvalidEntry, err)
	}

	e := Entry{
		Timestamp:     ts,
		SimulatedType: SimulatedType(strings.TrimSpace(rec[1])),
		Result:        strings.TrimSpace(rec[2]),
		Confidence:    conf,
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
