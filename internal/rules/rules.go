// Package rules loads the per-platform compliance rule catalogs and
// evaluates rules against listings.
package rules

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// File is one YAML rules document.
type File struct {
	Platform    listing.Platform `yaml:"platform"`
	Version     string           `yaml:"version"`
	Fees        *FeeSchedule     `yaml:"fees"`
	FixtureBase map[string]any   `yaml:"fixture_base"`
	Rules       []Rule           `yaml:"rules"`
}

// FeeSchedule is the marketplace fee model used by fees conditions.
type FeeSchedule struct {
	TransactionRate float64 `yaml:"transaction_rate"`
	PaymentRate     float64 `yaml:"payment_rate"`
	PaymentFixed    float64 `yaml:"payment_fixed"`
	ListingFee      float64 `yaml:"listing_fee"`
}

type Rule struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Category    string         `yaml:"category"`
	Severity    severity.Level `yaml:"severity"`
	Description string         `yaml:"description"`

	// When, Message, Field and Recommendation are shorthand for a rule with
	// a single case.
	When           *Condition `yaml:"when"`
	Message        string     `yaml:"message"`
	Field          string     `yaml:"field"`
	Recommendation string     `yaml:"recommendation"`

	Cases []Case    `yaml:"cases"`
	Tests RuleTests `yaml:"tests"`

	Platform    listing.Platform `yaml:"-"`
	fees        *FeeSchedule
	fixtureBase map[string]any
	compiled    []compiledCase
}

// Case is one outcome of a rule. Cases are tried in order and the first
// whose condition holds produces the violation.
type Case struct {
	When           Condition `yaml:"when"`
	Message        string    `yaml:"message"`
	Field          string    `yaml:"field"`
	Recommendation string    `yaml:"recommendation"`
}

type compiledCase struct {
	Case
	match   matcher
	message *template.Template
}

type RuleTests struct {
	Positive []RuleTestCase `yaml:"positive"`
	Negative []RuleTestCase `yaml:"negative"`
}

type RuleTestCase struct {
	Listing map[string]any `yaml:"listing"`
	Month   int            `yaml:"month"`
}

// Builtin builds the embedded catalog for a platform.
func Builtin(platform listing.Platform) (*Catalog, error) {
	return Load(platform, "")
}

// Load builds the catalog for a platform from the embedded rules, layering
// rules from customPath on top. A custom rule replaces the built-in rule
// with the same ID in place; new IDs are appended.
func Load(platform listing.Platform, customPath string) (*Catalog, error) {
	base, err := loadBuiltin(platform)
	if err != nil {
		return nil, err
	}

	rules := base.Rules
	version := base.Version
	for i := range rules {
		bindFile(&rules[i], base, nil)
	}

	if customPath != "" {
		files, err := loadFromPath(customPath)
		if err != nil {
			return nil, err
		}
		pos := map[string]int{}
		for i, r := range rules {
			pos[r.ID] = i
		}
		custom := 0
		for _, f := range files {
			if f.Platform != "" && f.Platform != platform {
				continue
			}
			for _, r := range f.Rules {
				if f.Platform == "" && !strings.HasPrefix(r.ID, idPrefix[platform]+"-") {
					continue
				}
				bindFile(&r, f, &base)
				if i, ok := pos[r.ID]; ok {
					rules[i] = r
				} else {
					pos[r.ID] = len(rules)
					rules = append(rules, r)
				}
				custom++
			}
		}
		if custom > 0 {
			version += "+custom"
		}
	}

	return NewCatalog(platform, version, rules)
}

func bindFile(r *Rule, f File, fallback *File) {
	r.Platform = f.Platform
	r.fees = f.Fees
	r.fixtureBase = f.FixtureBase
	if fallback != nil {
		if r.Platform == "" {
			r.Platform = fallback.Platform
		}
		if r.fees == nil {
			r.fees = fallback.Fees
		}
		if r.fixtureBase == nil {
			r.fixtureBase = fallback.FixtureBase
		}
	}
}

func loadBuiltin(platform listing.Platform) (File, error) {
	name := "builtin/" + string(platform) + ".yaml"
	data, err := builtinFS.ReadFile(name)
	if err != nil {
		return File{}, &CatalogError{Platform: platform, Err: fmt.Errorf("no built-in rules: %w", err)}
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, &CatalogError{Platform: platform, Err: fmt.Errorf("parse %s: %w", name, err)}
	}
	if f.Platform != platform {
		return File{}, &CatalogError{Platform: platform, Err: fmt.Errorf("%s declares platform %q", name, f.Platform)}
	}
	return f, nil
}

func loadFromPath(path string) ([]File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat rules path: %w", err)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(d.Name()))
			if ext == ".yml" || ext == ".yaml" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		files = []string{path}
	}

	sort.Strings(files)
	loaded := make([]File, 0, len(files))

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read rules file %s: %w", f, err)
		}

		var rf File
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return nil, fmt.Errorf("parse rules file %s: %w", f, err)
		}
		loaded = append(loaded, rf)
	}

	return loaded, nil
}

func compileRule(r *Rule) error {
	if r.Name == "" {
		r.Name = r.ID
	}
	level, err := severity.Normalize(string(r.Severity))
	if err != nil {
		return err
	}
	r.Severity = level

	cases := r.Cases
	if r.When != nil {
		single := Case{When: *r.When, Message: r.Message, Field: r.Field, Recommendation: r.Recommendation}
		cases = append([]Case{single}, cases...)
	}
	if len(cases) == 0 {
		return fmt.Errorf("rule has no cases")
	}

	compiled := make([]compiledCase, 0, len(cases))
	for i, c := range cases {
		if c.Message == "" {
			return fmt.Errorf("case %d: missing message", i+1)
		}
		m, err := compileCondition(c.When, r.fees)
		if err != nil {
			return fmt.Errorf("case %d: %w", i+1, err)
		}
		tmpl, err := parseTemplate(r.ID, c.Message)
		if err != nil {
			return fmt.Errorf("case %d: parse message: %w", i+1, err)
		}
		compiled = append(compiled, compiledCase{Case: c, match: m, message: tmpl})
	}
	r.compiled = compiled
	return nil
}
