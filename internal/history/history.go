package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/output"
)

// DefaultDir is the reports directory used when none is configured.
const DefaultDir = "reports"

const stampLayout = "20060102-150405.000"

// ErrNoHistory means the directory holds fewer saved scans than requested.
var ErrNoHistory = errors.New("no saved scans")

// Entry is one saved export on disk.
type Entry struct {
	Path      string
	Platform  string
	Timestamp time.Time
}

// Save writes exp as scan-<platform>-<timestamp>.json under dir and returns
// the path.
func Save(dir string, exp output.Export) (string, error) {
	if exp.Platform == "" {
		return "", fmt.Errorf("save scan: missing platform")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := encode(exp)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fileName(exp.Platform, exp.Timestamp))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func encode(exp output.Export) ([]byte, error) {
	var b strings.Builder
	if err := output.Write(exp, "json", &b); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func fileName(platform string, ts time.Time) string {
	return fmt.Sprintf("scan-%s-%s.json", platform, ts.UTC().Format(stampLayout))
}

func parseName(name string) (Entry, bool) {
	if !strings.HasPrefix(name, "scan-") || !strings.HasSuffix(name, ".json") {
		return Entry{}, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(name, "scan-"), ".json")
	platform, stamp, ok := strings.Cut(rest, "-")
	if !ok {
		return Entry{}, false
	}
	ts, err := time.Parse(stampLayout, stamp)
	if err != nil {
		return Entry{}, false
	}
	return Entry{Platform: platform, Timestamp: ts}, true
}

// List returns the saved scans for platform, newest first. An empty
// platform lists every platform.
func List(dir, platform string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		e, ok := parseName(item.Name())
		if !ok || (platform != "" && e.Platform != platform) {
			continue
		}
		e.Path = filepath.Join(dir, item.Name())
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Latest loads the newest saved scan.
func Latest(dir, platform string) (output.Export, error) {
	return nth(dir, platform, 0)
}

// Previous loads the second newest saved scan.
func Previous(dir, platform string) (output.Export, error) {
	return nth(dir, platform, 1)
}

func nth(dir, platform string, n int) (output.Export, error) {
	entries, err := List(dir, platform)
	if err != nil {
		return output.Export{}, err
	}
	if len(entries) <= n {
		return output.Export{}, fmt.Errorf("%w in %s (found %d)", ErrNoHistory, dir, len(entries))
	}
	return Read(entries[n].Path)
}

func Read(path string) (output.Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return output.Export{}, err
	}
	exp, err := output.ParseJSON(data)
	if err != nil {
		return output.Export{}, fmt.Errorf("%s: %w", path, err)
	}
	return exp, nil
}
