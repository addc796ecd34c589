package report

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestReporter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(dir)

	if err := r.WriteLoad("actions", 8, "deadbeef"); err != nil {
		t.Fatalf("write load: %v", err)
	}
	if err := r.WriteValidation(false, []ErrorEntry{
		{Source: "WorkTypes", Message: "dangling chain", Context: "known chains: Chain_Haul"},
	}); err != nil {
		t.Fatalf("write validation: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ents, err := os.ReadDir(filepath.Join(dir, "reports"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(ents) != 1 || !strings.HasSuffix(ents[0].Name(), ".jsonl.zst") {
		t.Fatalf("entries=%v", ents)
	}

	f, err := os.Open(filepath.Join(dir, "reports", ents[0].Name()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var lines []string
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines=%d want 2", len(lines))
	}

	var load LoadEntry
	if err := json.Unmarshal([]byte(lines[0]), &load); err != nil {
		t.Fatalf("decode load: %v", err)
	}
	if load.Type != "load" || load.Catalog != "actions" || load.Count != 8 {
		t.Fatalf("load entry=%+v", load)
	}

	var val ValidationEntry
	if err := json.Unmarshal([]byte(lines[1]), &val); err != nil {
		t.Fatalf("decode validation: %v", err)
	}
	if val.OK || len(val.Errors) != 1 || val.Errors[0].Source != "WorkTypes" {
		t.Fatalf("validation entry=%+v", val)
	}
}
