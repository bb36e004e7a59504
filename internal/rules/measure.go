package rules

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/RenierB-dev/etsy-compliance-checker/internal/listing"
)

type measured struct {
	num     float64
	integer bool
}

// bound is the value exposed to message templates: counts and lengths as
// int, amounts as float64.
func (m measured) bound() any {
	if m.integer {
		return int(m.num)
	}
	return m.num
}

func countOf(n int) (measured, bool) {
	return measured{num: float64(n), integer: true}, true
}

type measureFunc func(l listing.Listing) (measured, bool)

func measureFor(t Threshold, fields []string) (measureFunc, error) {
	field := fields[0]
	switch t.Measure {
	case "length":
		return func(l listing.Listing) (measured, bool) {
			return countOf(l.Attr(field).Len())
		}, nil
	case "bytes":
		return func(l listing.Listing) (measured, bool) {
			return countOf(len(l.Attr(field).String()))
		}, nil
	case "count":
		return func(l listing.Listing) (measured, bool) {
			return countOf(l.Attr(field).Count())
		}, nil
	case "", "value":
		return func(l listing.Listing) (measured, bool) {
			n, ok := l.Attr(field).Number()
			return measured{num: n}, ok
		}, nil
	case "cents":
		return func(l listing.Listing) (measured, bool) {
			n, ok := l.Attr(field).Number()
			if !ok {
				return measured{}, false
			}
			return countOf(int(math.Round(math.Mod(n, 1) * 100)))
		}, nil
	case "max":
		// Unset fields count as zero.
		return func(l listing.Listing) (measured, bool) {
			best := 0.0
			for _, f := range fields {
				if n, ok := l.Attr(f).Number(); ok && n > best {
					best = n
				}
			}
			return measured{num: best}, true
		}, nil
	case "items_below", "items_above":
		if t.ItemLimit <= 0 {
			return nil, fmt.Errorf("threshold: %s needs item_limit", t.Measure)
		}
		below := t.Measure == "items_below"
		return func(l listing.Listing) (measured, bool) {
			n := 0
			for _, item := range l.Attr(field).Items {
				size := utf8.RuneCountInString(item)
				if (below && size < t.ItemLimit) || (!below && size > t.ItemLimit) {
					n++
				}
			}
			return countOf(n)
		}, nil
	case "tag_overlap":
		if len(fields) != 2 {
			return nil, fmt.Errorf("threshold: tag_overlap needs a text field and a list field")
		}
		return func(l listing.Listing) (measured, bool) {
			return countOf(wordOverlap(l.Attr(fields[0]).String(), l.Attr(fields[1]).Items))
		}, nil
	default:
		return nil, fmt.Errorf("threshold: unknown measure %q", t.Measure)
	}
}

// wordOverlap counts the words longer than three characters in text that
// appear inside at least one of items.
func wordOverlap(text string, items []string) int {
	lowered := make([]string, len(items))
	for i, item := range items {
		lowered[i] = strings.ToLower(item)
	}
	n := 0
	for _, w := range strings.Split(strings.ToLower(text), " ") {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		for _, item := range lowered {
			if strings.Contains(item, w) {
				n++
				break
			}
		}
	}
	return n
}
