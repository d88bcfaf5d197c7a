package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func readEntries(t *testing.T, path string) []BuildEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer dec.Close()

	var out []BuildEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e BuildEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestBuildLogger_WritesCompressedJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewBuildLogger(dir)
	if err := l.WriteBuild(BuildEntry{Source: "a.nbt", Output: "a.mcfunction", Lines: 3}); err != nil {
		t.Fatalf("WriteBuild: %v", err)
	}
	if err := l.WriteBuild(BuildEntry{Source: "b.nbt", Cached: true}); err != nil {
		t.Fatalf("WriteBuild: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "builds-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one report file, got %v (%v)", files, err)
	}
	got := readEntries(t, files[0])
	if len(got) != 2 {
		t.Fatalf("entries=%d want 2", len(got))
	}
	if got[0].Source != "a.nbt" || got[0].Lines != 3 || !got[1].Cached {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "builds")
	now := time.Date(2026, 10, 19, 8, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(BuildEntry{Source: "first.nbt"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(BuildEntry{Source: "second.nbt"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "builds-*.jsonl.zst"))
	sort.Strings(files)
	if len(files) != 2 {
		t.Fatalf("expected two hourly files, got %v", files)
	}
	if filepath.Base(files[0]) != "builds-2026-10-19-08.jsonl.zst" {
		t.Fatalf("unexpected file name %s", filepath.Base(files[0]))
	}
	if e := readEntries(t, files[1]); len(e) != 1 || e[0].Source != "second.nbt" {
		t.Fatalf("second hour entries: %+v", e)
	}
}

func TestJSONLZstdWriter_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		l := NewBuildLogger(dir)
		l.w.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
		if err := l.WriteBuild(BuildEntry{Source: "x.nbt", Lines: i}); err != nil {
			t.Fatalf("WriteBuild: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	got := readEntries(t, filepath.Join(dir, "builds-2026-01-01-00.jsonl.zst"))
	if len(got) != 2 {
		t.Fatalf("appended frames should decode as one stream: got %d entries", len(got))
	}
}
