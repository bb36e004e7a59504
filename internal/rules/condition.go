package rules

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
)

// Condition is one node of a rule predicate. Exactly one field is set.
type Condition struct {
	All    []Condition `yaml:"all"`
	Any    []Condition `yaml:"any"`
	Not    *Condition  `yaml:"not"`
	Always bool        `yaml:"always"`

	Keywords  *KeywordMatch `yaml:"keywords"`
	Pattern   *PatternMatch `yaml:"pattern"`
	Threshold *Threshold    `yaml:"threshold"`
	Missing   []string      `yaml:"missing"`
	Present   []string      `yaml:"present"`
	Equals    *Equals       `yaml:"equals"`
	Contains  *Contains     `yaml:"contains"`
	Fees      *Fees         `yaml:"fees"`
	Compare   *Compare      `yaml:"compare"`
	Month     []int         `yaml:"month"`
}

// KeywordMatch finds the first term, in declared order, that occurs in the
// concatenated fields. Matching is case-insensitive.
type KeywordMatch struct {
	Fields []string `yaml:"fields"`
	Terms  []string `yaml:"terms"`
	// Match is "substring" (default) or "word" for word-boundary matching.
	Match string `yaml:"match"`
	As    string `yaml:"as"`
}

// PatternMatch tests regular expressions against the concatenated fields.
// With MinCount set, every match of every pattern is counted instead.
type PatternMatch struct {
	Fields     []string `yaml:"fields"`
	Patterns   []string `yaml:"patterns"`
	IgnoreCase bool     `yaml:"ignore_case"`
	MinCount   int      `yaml:"min_count"`
	As         string   `yaml:"as"`
}

// Threshold measures an attribute and compares it against every bound set.
type Threshold struct {
	Field     string    `yaml:"field"`
	Fields    []string  `yaml:"fields"`
	Measure   string    `yaml:"measure"`
	ItemLimit int       `yaml:"item_limit"`
	Lt        *float64  `yaml:"lt"`
	Lte       *float64  `yaml:"lte"`
	Gt        *float64  `yaml:"gt"`
	Gte       *float64  `yaml:"gte"`
	Eq        *float64  `yaml:"eq"`
	In        []float64 `yaml:"in"`
	As        string    `yaml:"as"`
}

type Equals struct {
	Field      string   `yaml:"field"`
	Values     []string `yaml:"values"`
	IgnoreCase bool     `yaml:"ignore_case"`
}

// Contains holds when the concatenated fields contain the value of Attr, or
// the Text template rendered with the current bindings.
type Contains struct {
	Fields []string `yaml:"fields"`
	Attr   string   `yaml:"attr"`
	Text   string   `yaml:"text"`
}

// Fees applies the catalog fee schedule to a price attribute and binds
// Price, Fees, Profit and FeePercent.
type Fees struct {
	Field string `yaml:"field"`
}

// Compare tests a numeric binding produced by an earlier condition.
type Compare struct {
	Var string   `yaml:"var"`
	Lt  *float64 `yaml:"lt"`
	Lte *float64 `yaml:"lte"`
	Gt  *float64 `yaml:"gt"`
	Gte *float64 `yaml:"gte"`
}

var defaultTextFields = []string{"title", "description"}

type state struct {
	listing listing.Listing
	env     Env
	vars    map[string]any
	err     error // first template failure seen while matching
}

type matcher interface {
	match(s *state) bool
}

type matchFunc func(s *state) bool

func (f matchFunc) match(s *state) bool { return f(s) }

func compileCondition(c Condition, fees *FeeSchedule) (matcher, error) {
	kinds := 0
	for _, set := range []bool{
		c.All != nil, c.Any != nil, c.Not != nil, c.Always,
		c.Keywords != nil, c.Pattern != nil, c.Threshold != nil,
		c.Missing != nil, c.Present != nil, c.Equals != nil,
		c.Contains != nil, c.Fees != nil, c.Compare != nil, c.Month != nil,
	} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return nil, fmt.Errorf("condition must set exactly one kind, got %d", kinds)
	}

	switch {
	case c.All != nil:
		children, err := compileChildren(c.All, fees)
		if err != nil {
			return nil, fmt.Errorf("all: %w", err)
		}
		return matchFunc(func(s *state) bool {
			for _, m := range children {
				if !m.match(s) {
					return false
				}
			}
			return true
		}), nil
	case c.Any != nil:
		children, err := compileChildren(c.Any, fees)
		if err != nil {
			return nil, fmt.Errorf("any: %w", err)
		}
		return matchFunc(func(s *state) bool {
			for _, m := range children {
				trial := s.fork()
				if m.match(trial) {
					s.vars = trial.vars
					return true
				}
			}
			return false
		}), nil
	case c.Not != nil:
		inner, err := compileCondition(*c.Not, fees)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return matchFunc(func(s *state) bool {
			return !inner.match(s.fork())
		}), nil
	case c.Always:
		return matchFunc(func(*state) bool { return true }), nil
	case c.Keywords != nil:
		return compileKeywords(*c.Keywords)
	case c.Pattern != nil:
		return compilePattern(*c.Pattern)
	case c.Threshold != nil:
		return compileThreshold(*c.Threshold)
	case c.Missing != nil:
		if len(c.Missing) == 0 {
			return nil, fmt.Errorf("missing: no fields")
		}
		fields := c.Missing
		return matchFunc(func(s *state) bool {
			for _, f := range fields {
				if s.listing.Attr(f).Empty() {
					return true
				}
			}
			return false
		}), nil
	case c.Present != nil:
		if len(c.Present) == 0 {
			return nil, fmt.Errorf("present: no fields")
		}
		fields := c.Present
		return matchFunc(func(s *state) bool {
			for _, f := range fields {
				if s.listing.Attr(f).Empty() {
					return false
				}
			}
			return true
		}), nil
	case c.Equals != nil:
		return compileEquals(*c.Equals)
	case c.Contains != nil:
		return compileContains(*c.Contains)
	case c.Fees != nil:
		return compileFees(*c.Fees, fees)
	case c.Compare != nil:
		return compileCompare(*c.Compare)
	default:
		return compileMonth(c.Month)
	}
}

func compileChildren(conds []Condition, fees *FeeSchedule) ([]matcher, error) {
	if len(conds) == 0 {
		return nil, fmt.Errorf("no conditions")
	}
	out := make([]matcher, 0, len(conds))
	for _, c := range conds {
		m, err := compileCondition(c, fees)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *state) fork() *state {
	vars := make(map[string]any, len(s.vars))
	for k, v := range s.vars {
		vars[k] = v
	}
	return &state{listing: s.listing, env: s.env, vars: vars}
}

func (s *state) text(fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, s.listing.Attr(f).String())
	}
	return strings.Join(parts, " ")
}

func compileKeywords(k KeywordMatch) (matcher, error) {
	if len(k.Terms) == 0 {
		return nil, fmt.Errorf("keywords: no terms")
	}
	fields := k.Fields
	if len(fields) == 0 {
		fields = defaultTextFields
	}
	as := k.As
	if as == "" {
		as = "Matched"
	}

	switch k.Match {
	case "", "substring":
		terms := make([]string, len(k.Terms))
		for i, t := range k.Terms {
			terms[i] = strings.ToLower(t)
		}
		return matchFunc(func(s *state) bool {
			text := strings.ToLower(s.text(fields))
			for i, t := range terms {
				if strings.Contains(text, t) {
					s.vars[as] = k.Terms[i]
					return true
				}
			}
			return false
		}), nil
	case "word":
		res := make([]*regexp.Regexp, len(k.Terms))
		for i, t := range k.Terms {
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("keywords: compile %q: %w", t, err)
			}
			res[i] = re
		}
		return matchFunc(func(s *state) bool {
			text := s.text(fields)
			for i, re := range res {
				if re.MatchString(text) {
					s.vars[as] = k.Terms[i]
					return true
				}
			}
			return false
		}), nil
	default:
		return nil, fmt.Errorf("keywords: unknown match mode %q", k.Match)
	}
}

func compilePattern(p PatternMatch) (matcher, error) {
	if len(p.Patterns) == 0 {
		return nil, fmt.Errorf("pattern: no patterns")
	}
	fields := p.Fields
	if len(fields) == 0 {
		fields = defaultTextFields
	}
	as := p.As
	if as == "" {
		as = "Match"
	}
	res := make([]*regexp.Regexp, len(p.Patterns))
	for i, expr := range p.Patterns {
		if p.IgnoreCase {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern: compile %q: %w", p.Patterns[i], err)
		}
		res[i] = re
	}

	if p.MinCount > 0 {
		return matchFunc(func(s *state) bool {
			text := s.text(fields)
			var found []string
			for _, re := range res {
				found = append(found, re.FindAllString(text, -1)...)
			}
			if len(found) < p.MinCount {
				return false
			}
			s.vars[as] = strings.Join(found, ", ")
			s.vars["Count"] = len(found)
			return true
		}), nil
	}
	return matchFunc(func(s *state) bool {
		text := s.text(fields)
		for _, re := range res {
			if m := re.FindStringIndex(text); m != nil {
				s.vars[as] = text[m[0]:m[1]]
				return true
			}
		}
		return false
	}), nil
}

func compileThreshold(t Threshold) (matcher, error) {
	fields := t.Fields
	if t.Field != "" {
		fields = append([]string{t.Field}, fields...)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("threshold: no field")
	}
	if t.Lt == nil && t.Lte == nil && t.Gt == nil && t.Gte == nil && t.Eq == nil && t.In == nil {
		return nil, fmt.Errorf("threshold: no bounds")
	}
	measure, err := measureFor(t, fields)
	if err != nil {
		return nil, err
	}
	as := t.As
	if as == "" {
		as = "Value"
	}
	return matchFunc(func(s *state) bool {
		v, ok := measure(s.listing)
		if !ok {
			return false
		}
		if !inBounds(v.num, t.Lt, t.Lte, t.Gt, t.Gte) {
			return false
		}
		if t.Eq != nil && v.num != *t.Eq {
			return false
		}
		if t.In != nil && !containsFloat(t.In, v.num) {
			return false
		}
		s.vars[as] = v.bound()
		return true
	}), nil
}

func inBounds(n float64, lt, lte, gt, gte *float64) bool {
	if lt != nil && !(n < *lt) {
		return false
	}
	if lte != nil && !(n <= *lte) {
		return false
	}
	if gt != nil && !(n > *gt) {
		return false
	}
	if gte != nil && !(n >= *gte) {
		return false
	}
	return true
}

func containsFloat(set []float64, n float64) bool {
	for _, v := range set {
		if v == n {
			return true
		}
	}
	return false
}

func compileEquals(e Equals) (matcher, error) {
	if e.Field == "" || len(e.Values) == 0 {
		return nil, fmt.Errorf("equals: field and values are required")
	}
	return matchFunc(func(s *state) bool {
		v := s.listing.Attr(e.Field)
		if !v.IsSet() {
			return false
		}
		got := v.String()
		for _, want := range e.Values {
			if got == want || (e.IgnoreCase && strings.EqualFold(got, want)) {
				return true
			}
		}
		return false
	}), nil
}

func compileContains(c Contains) (matcher, error) {
	if len(c.Fields) == 0 {
		return nil, fmt.Errorf("contains: no fields")
	}
	if (c.Attr == "") == (c.Text == "") {
		return nil, fmt.Errorf("contains: set exactly one of attr or text")
	}
	var needle func(s *state) string
	if c.Attr != "" {
		needle = func(s *state) string { return s.listing.Attr(c.Attr).String() }
	} else {
		tmpl, err := parseTemplate("contains", c.Text)
		if err != nil {
			return nil, fmt.Errorf("contains: %w", err)
		}
		needle = func(s *state) string {
			out, err := render(tmpl, s)
			if err != nil {
				if s.err == nil {
					s.err = fmt.Errorf("render contains text: %w", err)
				}
				return ""
			}
			return out
		}
	}
	return matchFunc(func(s *state) bool {
		n := strings.ToLower(needle(s))
		if n == "" {
			return false
		}
		return strings.Contains(strings.ToLower(s.text(c.Fields)), n)
	}), nil
}

func compileFees(f Fees, schedule *FeeSchedule) (matcher, error) {
	if schedule == nil {
		return nil, fmt.Errorf("fees: no fee schedule in rules file")
	}
	field := f.Field
	if field == "" {
		field = "price"
	}
	sched := *schedule
	return matchFunc(func(s *state) bool {
		price, ok := s.listing.Attr(field).Number()
		if !ok {
			return false
		}
		marketplaceFee := price * sched.TransactionRate
		paymentFee := price*sched.PaymentRate + sched.PaymentFixed
		total := marketplaceFee + paymentFee + sched.ListingFee
		s.vars["Price"] = price
		s.vars["Fees"] = total
		s.vars["Profit"] = price - total
		if price > 0 {
			s.vars["FeePercent"] = total / price * 100
		}
		return true
	}), nil
}

func compileCompare(c Compare) (matcher, error) {
	if c.Var == "" {
		return nil, fmt.Errorf("compare: no var")
	}
	return matchFunc(func(s *state) bool {
		n, ok := toFloat(s.vars[c.Var])
		if !ok {
			return false
		}
		return inBounds(n, c.Lt, c.Lte, c.Gt, c.Gte)
	}), nil
}

func compileMonth(months []int) (matcher, error) {
	if len(months) == 0 {
		return nil, fmt.Errorf("month: no months")
	}
	set := map[time.Month]bool{}
	for _, m := range months {
		if m < 1 || m > 12 {
			return nil, fmt.Errorf("month: %d out of range", m)
		}
		set[time.Month(m)] = true
	}
	return matchFunc(func(s *state) bool {
		return set[s.env.Month]
	}), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
