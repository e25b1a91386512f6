package trafficlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadStats counts what a read saw.
type ReadStats struct {
	Rows    int
	Skipped int
}

// ReadAll loads every valid entry from the log at path. A missing file is
// an empty log.
func ReadAll(path string) ([]Entry, ReadStats, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ReadStats{}, nil
	}
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("open traffic log: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses log rows from r. The header row, malformed rows and a torn
// final row are skipped rather than reported.
func Read(r io.Reader) ([]Entry, ReadStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var (
		entries []Entry
		stats   ReadStats
		first   = true
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			stats.Skipped++
			continue
		}
		if err != nil {
			return entries, stats, fmt.Errorf("read traffic log: %w", err)
		}

		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}

		stats.Rows++
		e, err := ParseRecord(rec)
		if err != nil {
			stats.Skipped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, stats, nil
}

func isHeader(rec []string) bool {
	if len(rec) != len(Header) {
		return false
	}
	for i := range Header {
		if rec[i] != Header[i] {
			return false
		}
	}
	return true
}
