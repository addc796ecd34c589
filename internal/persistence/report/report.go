// Package report writes machine-readable load and validation reports as
// zstd-compressed JSONL, rotated hourly. Operational logging stays on the
// injected text logger; these files feed offline diagnostics.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// LoadEntry records one catalog load.
type LoadEntry struct {
	Type    string `json:"type"` // "load"
	At      string `json:"at"`
	Catalog string `json:"catalog"`
	Count   int    `json:"count"`
	Digest  string `json:"digest,omitempty"`
}

// ValidationEntry records one validation run.
type ValidationEntry struct {
	Type   string       `json:"type"` // "validation"
	At     string       `json:"at"`
	OK     bool         `json:"ok"`
	Errors []ErrorEntry `json:"errors,omitempty"`
}

type ErrorEntry struct {
	Source  string `json:"source"`
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

func Now() string { return time.Now().UTC().Format(time.RFC3339) }

// Writer appends JSONL entries to hourly zstd-compressed files.
type Writer struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(baseDir, prefix string) *Writer {
	return &Writer{baseDir: baseDir, prefix: prefix}
}

func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	w.w = nil
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Reporter is the defs-specific writer placed under <dataDir>/reports.
type Reporter struct{ w *Writer }

func NewReporter(dataDir string) *Reporter {
	return &Reporter{w: NewWriter(filepath.Join(dataDir, "reports"), "defs")}
}

func (r *Reporter) WriteLoad(catalog string, count int, digest string) error {
	return r.w.Write(LoadEntry{Type: "load", At: Now(), Catalog: catalog, Count: count, Digest: digest})
}

func (r *Reporter) WriteValidation(ok bool, errs []ErrorEntry) error {
	return r.w.Write(ValidationEntry{Type: "validation", At: Now(), OK: ok, Errors: errs})
}

func (r *Reporter) Close() error { return r.w.Close() }
