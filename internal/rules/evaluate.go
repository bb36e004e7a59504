package rules

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
	"github.com/RenierB-dev/etsy-compliance-checker/internal/model"
)

// Env carries the inputs a rule may read besides the listing. The scanner
// fixes it once per scan so evaluation never reads the clock.
type Env struct {
	Month time.Month
}

func EnvAt(t time.Time) Env {
	return Env{Month: t.Month()}
}

var messageFuncs = template.FuncMap{
	"money": func(v any) string {
		n, _ := toFloat(v)
		return fmt.Sprintf("%.2f", n)
	},
	"pct": func(v any) string {
		n, _ := toFloat(v)
		return fmt.Sprintf("%.1f", n)
	},
	"sub": func(a, b int) int { return a - b },
	"attr": func(l listing.Listing, name string) string {
		return l.Attr(name).String()
	},
}

func parseTemplate(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(messageFuncs).Parse(text)
}

func render(tmpl *template.Template, s *state) (string, error) {
	data := make(map[string]any, len(s.vars)+1)
	for k, v := range s.vars {
		data[k] = v
	}
	data["Listing"] = s.listing
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Evaluate runs one rule against one listing. It returns nil when the rule
// does not fire or targets another platform. Errors come only from
// templates that fail to render.
func Evaluate(r *Rule, l listing.Listing, env Env) (*model.Violation, error) {
	if r.Platform != "" && r.Platform != l.Platform() {
		return nil, nil
	}
	for _, c := range r.compiled {
		s := &state{listing: l, env: env, vars: map[string]any{}}
		matched := c.match.match(s)
		if s.err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, s.err)
		}
		if !matched {
			continue
		}
		msg, err := render(c.message, s)
		if err != nil {
			return nil, fmt.Errorf("rule %s: render message: %w", r.ID, err)
		}
		v := &model.Violation{
			RuleID:         r.ID,
			Severity:       r.Severity,
			Message:        msg,
			Field:          c.Field,
			Recommendation: c.Recommendation,
		}
		if m, ok := s.vars["Matched"].(string); ok {
			v.MatchedValue = m
		}
		return v, nil
	}
	return nil, nil
}
