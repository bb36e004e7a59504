package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/analysis"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
)

// DefaultPath is where the CLI looks for accepted violations.
const DefaultPath = ".sellerguard/baseline.json"

// Statuses accepted in a baseline entry.
const (
	StatusAccepted      = "accepted"
	StatusFalsePositive = "false_positive"
)

type File struct {
	Version     string  `json:"version"`
	GeneratedAt string  `json:"generated_at"`
	GeneratedBy string  `json:"generated_by"`
	Entries     []Entry `json:"entries"`
}

// Entry accepts one rule on one listing. Rule IDs carry the platform prefix,
// so the pair is unique across marketplaces.
type Entry struct {
	ListingID string `json:"listing_id"`
	RuleID    string `json:"rule_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	AddedAt   string `json:"added_at"`
	AddedBy   string `json:"added_by"`
}

func (e Entry) key() string {
	return e.ListingID + "|" + e.RuleID
}

func ValidStatus(s string) bool {
	return s == StatusAccepted || s == StatusFalsePositive
}

func Load(path string) (File, error) {
	if path == "" {
		return Empty(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Empty(), nil
		}
		return File{}, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse baseline: %w", err)
	}
	if f.Version == "" {
		f.Version = "1"
	}
	for i, e := range f.Entries {
		if e.ListingID == "" || e.RuleID == "" {
			return File{}, fmt.Errorf("parse baseline: entry %d needs listing_id and rule_id", i)
		}
	}
	return f, nil
}

func Empty() File {
	return File{Version: "1", Entries: []Entry{}}
}

func Save(path string, b File) error {
	if path == "" {
		return fmt.Errorf("baseline path required")
	}
	if b.Version == "" {
		b.Version = "1"
	}
	if b.GeneratedAt == "" {
		b.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if b.GeneratedBy == "" {
		b.GeneratedBy = "sellerguard"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func IsSuppressed(b File, listingID string, v model.Violation) bool {
	for _, e := range b.Entries {
		if e.ListingID == listingID && e.RuleID == v.RuleID {
			return true
		}
	}
	return false
}

// Apply drops every accepted violation from r and recomputes its counts.
func Apply(r model.ScanResult, b File) model.ScanResult {
	if len(b.Entries) == 0 {
		return r
	}
	accepted := make(map[string]bool, len(b.Entries))
	for _, e := range b.Entries {
		accepted[e.key()] = true
	}
	return analysis.Without(r, func(listingID string, v model.Violation) bool {
		return accepted[listingID+"|"+v.RuleID]
	})
}

// UpsertEntries records every violation in r as accepted. Existing entries
// for the same pair are replaced.
func UpsertEntries(base File, r model.ScanResult, status, reason, by string, now time.Time) File {
	out := base
	if out.Version == "" {
		out.Version = "1"
	}
	out.Entries = append([]Entry(nil), base.Entries...)
	index := map[string]int{}
	for i, e := range out.Entries {
		index[e.key()] = i
	}

	stamp := now.UTC().Format(time.RFC3339)
	for _, set := range r.Violations {
		for _, v := range set.Violations {
			entry := Entry{
				ListingID: set.ListingID,
				RuleID:    v.RuleID,
				Status:    status,
				Reason:    reason,
				AddedAt:   stamp,
				AddedBy:   by,
			}
			if idx, ok := index[entry.key()]; ok {
				out.Entries[idx] = entry
				continue
			}
			out.Entries = append(out.Entries, entry)
			index[entry.key()] = len(out.Entries) - 1
		}
	}
	if out.Entries == nil {
		out.Entries = []Entry{}
	}
	out.GeneratedAt = stamp
	out.GeneratedBy = "sellerguard"
	return out
}
