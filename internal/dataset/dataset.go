// Package dataset loads, cleans and samples the labeled flow dataset that the
// simulator replays.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/features"
)

// DefaultSeed is the shuffle seed used when none is configured.
const DefaultSeed int64 = 42

var (
	ErrEmpty         = errors.New("dataset has no usable rows")
	ErrMissingColumn = errors.New("missing column")
)

// Columns returns the dataset columns: the model features followed by the label.
func Columns() []string {
	cols := make([]string, 0, features.Count+1)
	cols = append(cols, features.Columns[:]...)
	return append(cols, features.LabelColumn)
}

// Dataset is an in-memory set of cleaned rows. Each row carries the 13
// features and the binary label.
type Dataset struct {
	rows []features.Record
}

func New(rows []features.Record) *Dataset {
	return &Dataset{rows: rows}
}

func (d *Dataset) Len() int {
	return len(d.rows)
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) features.Record {
	src := d.rows[i]
	out := make(features.Record, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// LabelCounts returns how many rows carry each label value.
func (d *Dataset) LabelCounts() map[int]int {
	counts := make(map[int]int)
	for _, r := range d.rows {
		counts[int(r[features.LabelColumn])]++
	}
	return counts
}

// Shuffle permutes the rows. The same seed always yields the same order.
func (d *Dataset) Shuffle(seed int64) {
	rng := newRand(seed)
	rng.Shuffle(len(d.rows), func(i, j int) {
		d.rows[i], d.rows[j] = d.rows[j], d.rows[i]
	})
}

// WriteCSV writes the rows with a header of Columns.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cols := Columns()
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(cols))
	for _, r := range d.rows {
		for i, c := range cols {
			rec[i] = strconv.FormatFloat(r[c], 'f', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Load reads a cleaned dataset from path.
func Load(path string) (*Dataset, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, stats, err := Parse(f)
	if err != nil {
		return nil, stats, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, stats, nil
}

// Parse reads a cleaned dataset whose label column is already numeric.
// Rows with missing, non-numeric or non-finite values are dropped.
func Parse(r io.Reader) (*Dataset, Stats, error) {
	return readTable(r, parseFinite)
}

// Clean reads a raw flow export: only the dataset Columns are kept, rows
// with missing or non-finite values in them are dropped and the label is
// binarised ("DDoS" is 1, everything else 0). Only leading spaces are
// stripped from the label, so "DDoS " is not an attack.
func Clean(r io.Reader) (*Dataset, Stats, error) {
	return readTable(r, func(s string) (float64, bool) {
		if s == "" {
			return 0, false
		}
		if s == "DDoS" {
			return 1, true
		}
		return 0, true
	})
}

// Stats summarises a parse.
type Stats struct {
	Rows    int         `json:"rows"`
	Kept    int         `json:"kept"`
	Dropped int         `json:"dropped"`
	Labels  map[int]int `json:"labels"`
}

func readTable(r io.Reader, label func(string) (float64, bool)) (*Dataset, Stats, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, Stats{}, ErrEmpty
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Labels: make(map[int]int)}
	var rows []features.Record
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			stats.Rows++
			stats.Dropped++
			continue
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		row, ok := parseRow(rec, index, label)
		if !ok {
			stats.Dropped++
			continue
		}
		stats.Kept++
		stats.Labels[int(row[features.LabelColumn])]++
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, stats, ErrEmpty
	}
	return New(rows), stats, nil
}

// columnIndex maps each dataset column to its position in header. The
// last slot is the label.
func columnIndex(header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	cols := Columns()
	index := make([]int, len(cols))
	var missing []string
	for i, c := range cols {
		p, ok := pos[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		index[i] = p
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

func parseRow(rec []string, index []int, label func(string) (float64, bool)) (features.Record, bool) {
	row := make(features.Record, len(index))
	for i, col := range features.Columns {
		p := index[i]
		if p >= len(rec) {
			return nil, false
		}
		v, ok := parseFinite(rec[p])
		if !ok {
			return nil, false
		}
		row[col] = v
	}

	p := index[features.Count]
	if p >= len(rec) {
		return nil, false
	}
	l, ok := label(strings.TrimLeft(rec[p], " "))
	if !ok {
		return nil, false
	}
	row[features.LabelColumn] = l
	return row, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}
