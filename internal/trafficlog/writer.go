package trafficlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer appends entries to the log, opening and closing the file on every
// write so that readers in other processes always see complete rows.
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter prepares a writer for path, creating its directory.
func NewWriter(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	return &Writer{path: path}, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Append validates e and writes it as one row. The header is written when
// the file is new or empty. A torn last line left by a crash is terminated
// before the new row so it cannot swallow it.
func (w *Writer) Append(e Entry) (err error) {
	if err := e.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open traffic log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close traffic log: %w", cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat traffic log: %w", err)
	}

	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return fmt.Errorf("read traffic log tail: %w", err)
		}
		if last[0] != '\n' {
			if _, err := f.Write([]byte("\n")); err != nil {
				return fmt.Errorf("terminate torn row: %w", err)
			}
		}
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := cw.Write(e.Record()); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush traffic log: %w", err)
	}
	return nil
}
