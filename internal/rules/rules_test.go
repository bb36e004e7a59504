package rules

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/severity"
)

func mustBuiltin(t *testing.T, p listing.Platform) *Catalog {
	t.Helper()
	c, err := Builtin(p)
	if err != nil {
		t.Fatalf("load %s catalog: %v", p, err)
	}
	return c
}

func mustRule(t *testing.T, c *Catalog, id string) *Rule {
	t.Helper()
	r, ok := c.Rule(id)
	if !ok {
		t.Fatalf("rule %s not in catalog", id)
	}
	return r
}

func TestBuiltinCatalogs(t *testing.T) {
	cases := []struct {
		platform   listing.Platform
		rules      int
		categories []string
	}{
		{listing.Etsy, 48, []string{"PI", "TD", "PC", "PF", "SS"}},
		{listing.Amazon, 66, []string{"PDP", "BT", "RC", "FBA", "CP", "TR"}},
	}
	for _, tc := range cases {
		c := mustBuiltin(t, tc.platform)
		if c.Len() != tc.rules {
			t.Fatalf("%s: expected %d rules, got %d", tc.platform, tc.rules, c.Len())
		}
		if c.Version() != "2025.1" {
			t.Fatalf("%s: unexpected version %q", tc.platform, c.Version())
		}
		if got := c.Categories(); !reflect.DeepEqual(got, tc.categories) {
			t.Fatalf("%s: unexpected categories %v", tc.platform, got)
		}
		for i, r := range c.Rules() {
			if r.Platform != tc.platform {
				t.Fatalf("%s: rule %s bound to %s", tc.platform, r.ID, r.Platform)
			}
			if c.Index(r.ID) != i {
				t.Fatalf("%s: index of %s = %d, want %d", tc.platform, r.ID, c.Index(r.ID), i)
			}
		}
	}
}

func TestBuiltinRuleFixtures(t *testing.T) {
	for _, p := range listing.Platforms {
		sum := RunTests(mustBuiltin(t, p))
		for _, f := range sum.Failures {
			t.Errorf("%s %s: %s", f.RuleID, f.Case, f.Reason)
		}
		if sum.Fail != 0 {
			t.Fatalf("%s: %d fixture failures", p, sum.Fail)
		}
		if len(sum.Untested) != 0 {
			t.Fatalf("%s: untested rules %v", p, sum.Untested)
		}
		if sum.Pass == 0 {
			t.Fatalf("%s: no fixtures ran", p)
		}
	}
}

func mustEvaluate(t *testing.T, r *Rule, l listing.Listing, env Env) *model.Violation {
	t.Helper()
	v, err := Evaluate(r, l, env)
	if err != nil {
		t.Fatalf("evaluate %s: %v", r.ID, err)
	}
	return v
}

func TestLowProfitMessageIncludesFees(t *testing.T) {
	c := mustBuiltin(t, listing.Etsy)
	l := &listing.EtsyListing{
		ListingID: 1,
		Title:     "Tiny sticker",
		Price:     listing.EtsyPrice{Amount: 100, Divisor: 100, CurrencyCode: "USD"},
	}

	v := mustEvaluate(t, mustRule(t, c, "ETSY-PF-001"), l, Env{})
	if v == nil {
		t.Fatal("expected low profitability violation")
	}
	want := "Price $1.00 may not be profitable (fees: $0.55, profit: $0.45)"
	if v.Message != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", v.Message, want)
	}
	if v.Severity != severity.Warning {
		t.Fatalf("unexpected severity %s", v.Severity)
	}
}

func TestShortAmazonTitleIsCritical(t *testing.T) {
	c := mustBuiltin(t, listing.Amazon)
	title := "Acme Stoneware Coffee Mug with Speckled Glaze 12oz"
	if len(title) != 50 {
		t.Fatalf("fixture title has %d characters", len(title))
	}
	l := &listing.AmazonListing{ASIN: "B0TEST0001", SKU: "ACME-1", Title: title}

	v := mustEvaluate(t, mustRule(t, c, "AMZN-PDP-001"), l, Env{})
	if v == nil {
		t.Fatal("expected title length violation")
	}
	if v.Severity != severity.Critical {
		t.Fatalf("unexpected severity %s", v.Severity)
	}
	if !strings.Contains(v.Message, "(50 characters)") {
		t.Fatalf("message does not cite length: %q", v.Message)
	}
	if v.Field != "title" {
		t.Fatalf("unexpected field %q", v.Field)
	}
}

func TestLinkAndContactRulesFire(t *testing.T) {
	c := mustBuiltin(t, listing.Etsy)
	l := &listing.EtsyListing{
		ListingID:   7,
		Title:       "FREE SHIPPING!!!",
		Description: "Order at https://shop.example.com or write to maker@example.com",
	}

	for _, id := range []string{"ETSY-TD-006", "ETSY-TD-007"} {
		r := mustRule(t, c, id)
		v := mustEvaluate(t, r, l, Env{})
		if v == nil {
			t.Fatalf("expected %s to fire", id)
		}
		if v.Severity != r.Severity {
			t.Fatalf("%s: violation severity %s, rule declares %s", id, v.Severity, r.Severity)
		}
	}
}

func TestKeywordRuleReportsMatchedTerm(t *testing.T) {
	c := mustBuiltin(t, listing.Etsy)
	l := &listing.EtsyListing{ListingID: 3, Title: "Engraved brass knuckles paperweight"}

	v := mustEvaluate(t, mustRule(t, c, "ETSY-PI-001"), l, Env{})
	if v == nil {
		t.Fatal("expected weapons violation")
	}
	if v.MatchedValue != "brass knuckles" {
		t.Fatalf("unexpected matched value %q", v.MatchedValue)
	}
}

func TestSeasonalRuleReadsEnvMonth(t *testing.T) {
	c := mustBuiltin(t, listing.Etsy)
	r := mustRule(t, c, "ETSY-SS-005")
	l := &listing.EtsyListing{ListingID: 4, Title: "Striped summer beach towel"}

	if v := mustEvaluate(t, r, l, EnvAt(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC))); v == nil {
		t.Fatal("expected off-season note in December")
	} else if !strings.HasPrefix(v.Message, "Summer item during winter season") {
		t.Fatalf("unexpected message %q", v.Message)
	}
	if v := mustEvaluate(t, r, l, EnvAt(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))); v != nil {
		t.Fatalf("unexpected violation in June: %q", v.Message)
	}
}

func TestEvaluateSkipsOtherPlatform(t *testing.T) {
	c := mustBuiltin(t, listing.Amazon)
	l := &listing.EtsyListing{ListingID: 5, Title: "x"}
	if v := mustEvaluate(t, mustRule(t, c, "AMZN-TR-008"), l, Env{}); v != nil {
		t.Fatalf("amazon rule fired on etsy listing: %+v", v)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	c := mustBuiltin(t, listing.Amazon)
	l := &listing.AmazonListing{
		ASIN:        "X123",
		Title:       "HOT SALE Best Seller Mug",
		Description: "Call us at 555-123-4567 or visit www.example.com",
	}
	rules := c.Rules()
	first := make([]string, 0, len(rules))
	for i := range rules {
		if v := mustEvaluate(t, &rules[i], l, Env{}); v != nil {
			first = append(first, v.RuleID+"|"+v.Message+"|"+v.MatchedValue)
		}
	}
	for n := 0; n < 5; n++ {
		var again []string
		for i := range rules {
			if v := mustEvaluate(t, &rules[i], l, Env{}); v != nil {
				again = append(again, v.RuleID+"|"+v.Message+"|"+v.MatchedValue)
			}
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%v\n%v", n, first, again)
		}
	}
}

func simpleRule(id string) Rule {
	return Rule{
		ID:       id,
		Severity: "warning",
		When:     &Condition{Always: true},
		Message:  "always",
	}
}

func TestEvaluateReturnsRenderError(t *testing.T) {
	badMessage := simpleRule("ETSY-PI-060")
	badMessage.Message = "bad {{index .Listing 0}}"
	badContains := simpleRule("ETSY-PI-061")
	badContains.When = &Condition{Contains: &Contains{Fields: []string{"title"}, Text: "{{index .Listing 0}}"}}

	c, err := NewCatalog(listing.Etsy, "test", []Rule{badMessage, badContains})
	if err != nil {
		t.Fatal(err)
	}
	l := &listing.EtsyListing{ListingID: 8, Title: "x"}
	cases := []struct {
		id   string
		want string
	}{
		{"ETSY-PI-060", "rule ETSY-PI-060: render message"},
		{"ETSY-PI-061", "rule ETSY-PI-061: render contains text"},
	}
	for _, tc := range cases {
		v, err := Evaluate(mustRule(t, c, tc.id), l, Env{})
		if err == nil {
			t.Fatalf("%s: expected render error, got violation %+v", tc.id, v)
		}
		if v != nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: unexpected result %+v, %v", tc.id, v, err)
		}
	}

	c.rules[0].Tests.Positive = []RuleTestCase{{Listing: map[string]any{"listing_id": 8, "title": "x"}}}
	sum := RunTests(c)
	if sum.Fail != 1 || len(sum.Failures) != 1 || !strings.Contains(sum.Failures[0].Reason, "render message") {
		t.Fatalf("rule tests should report the render failure: %+v", sum)
	}
}

func TestNewCatalogRejectsInvalidRules(t *testing.T) {
	cases := []struct {
		name   string
		rules  []Rule
		ruleID string
	}{
		{"duplicate", []Rule{simpleRule("ETSY-PI-001"), simpleRule("ETSY-PI-001")}, "ETSY-PI-001"},
		{"malformed", []Rule{simpleRule("ETSY-PI-1")}, "ETSY-PI-1"},
		{"wrong prefix", []Rule{simpleRule("AMZN-PDP-001")}, "AMZN-PDP-001"},
		{"bad severity", []Rule{func() Rule { r := simpleRule("ETSY-PI-002"); r.Severity = "urgent"; return r }()}, "ETSY-PI-002"},
		{"no cases", []Rule{{ID: "ETSY-PI-003", Severity: "info"}}, "ETSY-PI-003"},
	}
	for _, tc := range cases {
		_, err := NewCatalog(listing.Etsy, "test", tc.rules)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		var ce *CatalogError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected CatalogError, got %T", tc.name, err)
		}
		if ce.RuleID != tc.ruleID {
			t.Fatalf("%s: error names rule %q, want %q", tc.name, ce.RuleID, tc.ruleID)
		}
	}
}

func TestConditionRequiresExactlyOneKind(t *testing.T) {
	r := simpleRule("ETSY-PI-001")
	r.When = &Condition{Always: true, Missing: []string{"title"}}
	if _, err := NewCatalog(listing.Etsy, "test", []Rule{r}); err == nil {
		t.Fatal("expected error for condition with two kinds")
	}
}

func TestLoadLayersCustomRules(t *testing.T) {
	tmp := t.TempDir()
	etsyRules := `platform: etsy
rules:
  - id: ETSY-PI-001
    severity: info
    when:
      always: true
    message: overridden
  - id: ETSY-SS-099
    severity: warning
    when:
      missing: [materials]
    message: shop rule
`
	amazonRules := `platform: amazon
rules:
  - id: AMZN-TR-099
    severity: info
    when:
      always: true
    message: not for etsy
`
	if err := os.WriteFile(filepath.Join(tmp, "etsy.yaml"), []byte(etsyRules), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "amazon.yml"), []byte(amazonRules), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(listing.Etsy, tmp)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 49 {
		t.Fatalf("expected 49 rules, got %d", c.Len())
	}
	if c.Version() != "2025.1+custom" {
		t.Fatalf("unexpected version %q", c.Version())
	}
	if c.Index("ETSY-PI-001") != 0 {
		t.Fatalf("override moved to index %d", c.Index("ETSY-PI-001"))
	}
	r := mustRule(t, c, "ETSY-PI-001")
	if r.Severity != severity.Info {
		t.Fatalf("override severity not applied: %s", r.Severity)
	}
	if c.Index("ETSY-SS-099") != 48 {
		t.Fatalf("new rule at index %d", c.Index("ETSY-SS-099"))
	}
	if _, ok := c.Rule("AMZN-TR-099"); ok {
		t.Fatal("amazon rule leaked into etsy catalog")
	}
}

func TestLoadBindsPlatformlessCustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.yaml")
	body := `rules:
  - id: ETSY-SS-098
    severity: info
    when:
      always: true
    message: shop note
  - id: AMZN-TR-098
    severity: info
    when:
      always: true
    message: amazon note
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(listing.Etsy, path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 49 {
		t.Fatalf("expected 49 rules, got %d", c.Len())
	}
	r := mustRule(t, c, "ETSY-SS-098")
	if r.Platform != listing.Etsy {
		t.Fatalf("rule platform %q, want etsy from the built-in file", r.Platform)
	}
	if r.fees == nil || r.fixtureBase == nil {
		t.Fatal("custom rule should inherit fees and fixture base from the built-in file")
	}
	if _, ok := c.Rule("AMZN-TR-098"); ok {
		t.Fatal("amazon-prefixed rule leaked into etsy catalog")
	}
}

func TestLoadRejectsBrokenCustomRule(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "rules.yaml")
	body := `platform: etsy
rules:
  - id: ETSY-PI-050
    severity: warning
    when:
      pattern:
        patterns: ['([']
    message: broken
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(listing.Etsy, path)
	var ce *CatalogError
	if !errors.As(err, &ce) || ce.RuleID != "ETSY-PI-050" {
		t.Fatalf("expected catalog error for ETSY-PI-050, got %v", err)
	}
}

func TestCategoryOf(t *testing.T) {
	cases := map[string]string{
		"ETSY-PI-004":  "PI",
		"AMZN-FBA-002": "FBA",
		"CUSTOM":       "",
	}
	for id, want := range cases {
		if got := CategoryOf(id); got != want {
			t.Fatalf("CategoryOf(%q) = %q, want %q", id, got, want)
		}
	}
}
