package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/output"
)

var base = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

func export(platform string, at time.Time, total int) output.Export {
	r := model.ScanResult{Platform: platform, Timestamp: at, TotalListings: total}
	return output.NewExport(r, nil, at)
}

func TestSaveWritesNamedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := Save(dir, export("etsy", base, 4))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "scan-etsy-20250602-090000.000.json" {
		t.Fatalf("unexpected file name %s", path)
	}
	exp, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if exp.TotalListings != 4 || exp.Summary.Score != 100 {
		t.Fatalf("unexpected saved export %+v", exp)
	}
}

func TestLatestAndPreviousPerPlatform(t *testing.T) {
	dir := t.TempDir()
	for i, exp := range []output.Export{
		export("etsy", base, 1),
		export("etsy", base.Add(2*time.Hour), 3),
		export("amazon", base.Add(3*time.Hour), 9),
		export("etsy", base.Add(time.Hour), 2),
	} {
		if _, err := Save(dir, exp); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	latest, err := Latest(dir, "etsy")
	if err != nil {
		t.Fatal(err)
	}
	prev, err := Previous(dir, "etsy")
	if err != nil {
		t.Fatal(err)
	}
	if latest.TotalListings != 3 || prev.TotalListings != 2 {
		t.Fatalf("unexpected order: latest=%d previous=%d", latest.TotalListings, prev.TotalListings)
	}

	newest, err := Latest(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if newest.Platform != "amazon" {
		t.Fatalf("expected newest overall to be amazon, got %s", newest.Platform)
	}

	entries, err := List(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("foreign files should be ignored, got %d entries", len(entries))
	}
}

func TestPreviousNeedsTwoScans(t *testing.T) {
	dir := t.TempDir()
	if _, err := Latest(dir, "etsy"); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
	if _, err := Save(dir, export("etsy", base, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := Previous(dir, "etsy"); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}
	if _, err := Latest(filepath.Join(dir, "missing"), "etsy"); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("missing directory should read as empty history, got %v", err)
	}
}
