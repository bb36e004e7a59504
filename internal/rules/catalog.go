package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
)

var idPattern = regexp.MustCompile(`^(ETSY|AMZN)-([A-Z]+)-\d{3}$`)

var idPrefix = map[listing.Platform]string{
	listing.Etsy:   "ETSY",
	listing.Amazon: "AMZN",
}

// CatalogError reports a rule catalog that cannot be built. It is fatal:
// no scan may start from a catalog that failed to build.
type CatalogError struct {
	Platform listing.Platform
	RuleID   string
	Err      error
}

func (e *CatalogError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("%s rule catalog: invalid rule %s: %v", e.Platform, e.RuleID, e.Err)
	}
	return fmt.Sprintf("%s rule catalog: %v", e.Platform, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// Catalog is the immutable, ordered rule set of one platform.
type Catalog struct {
	platform   listing.Platform
	version    string
	rules      []Rule
	index      map[string]int
	categories []string
	byCategory map[string][]int
}

// NewCatalog validates and compiles rules in declaration order.
func NewCatalog(platform listing.Platform, version string, rules []Rule) (*Catalog, error) {
	prefix, ok := idPrefix[platform]
	if !ok {
		return nil, &CatalogError{Platform: platform, Err: fmt.Errorf("unsupported platform")}
	}

	c := &Catalog{
		platform:   platform,
		version:    version,
		rules:      make([]Rule, 0, len(rules)),
		index:      make(map[string]int, len(rules)),
		byCategory: map[string][]int{},
	}
	for _, r := range rules {
		if r.ID == "" {
			return nil, &CatalogError{Platform: platform, Err: errors.New("rule with empty id")}
		}
		m := idPattern.FindStringSubmatch(r.ID)
		if m == nil {
			return nil, &CatalogError{Platform: platform, RuleID: r.ID, Err: errors.New("malformed rule id")}
		}
		if m[1] != prefix {
			return nil, &CatalogError{Platform: platform, RuleID: r.ID, Err: fmt.Errorf("rule id must start with %s-", prefix)}
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, &CatalogError{Platform: platform, RuleID: r.ID, Err: errors.New("duplicate rule id")}
		}
		r.Platform = platform
		if err := compileRule(&r); err != nil {
			return nil, &CatalogError{Platform: platform, RuleID: r.ID, Err: err}
		}

		cat := m[2]
		if _, seen := c.byCategory[cat]; !seen {
			c.categories = append(c.categories, cat)
		}
		c.index[r.ID] = len(c.rules)
		c.byCategory[cat] = append(c.byCategory[cat], len(c.rules))
		c.rules = append(c.rules, r)
	}
	return c, nil
}

func (c *Catalog) Platform() listing.Platform { return c.platform }

func (c *Catalog) Version() string { return c.version }

func (c *Catalog) Len() int { return len(c.rules) }

// Rules returns the rules in declaration order. The returned slice is a
// copy; the rules share compiled state and must not be modified.
func (c *Catalog) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

func (c *Catalog) Rule(id string) (*Rule, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return &c.rules[i], true
}

// Index is the declaration position of a rule, or -1.
func (c *Catalog) Index(id string) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// Categories lists the rule ID category segments in first-declared order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

func (c *Catalog) ByCategory(category string) []Rule {
	idx := c.byCategory[category]
	out := make([]Rule, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.rules[i])
	}
	return out
}

// CategoryOf extracts the category segment of a rule ID such as
// "ETSY-PI-004". IDs without one return "".
func CategoryOf(ruleID string) string {
	parts := strings.Split(ruleID, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
