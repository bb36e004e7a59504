// Package listing holds the normalized marketplace listing records the
// compliance rules are evaluated against.
package listing

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type Platform string

const (
	Etsy   Platform = "etsy"
	Amazon Platform = "amazon"
)

// Platforms lists the supported marketplaces in a stable order.
var Platforms = []Platform{Etsy, Amazon}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Etsy, Amazon:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", s)
	}
}

// Listing is the platform-agnostic view the scanner works with. Attr never
// fails: an attribute the listing does not carry comes back unset.
type Listing interface {
	Platform() Platform
	ID() string
	URL() string
	Attr(name string) Value
}

// TitleOf returns the listing title attribute.
func TitleOf(l Listing) string {
	return l.Attr("title").String()
}

type Kind int

const (
	Unset Kind = iota
	TextKind
	ListKind
	NumberKind
	BoolKind
)

// Value is a single normalized attribute.
type Value struct {
	Kind  Kind
	Text  string
	Items []string
	Num   float64
	Flag  bool
}

func TextValue(s string) Value { return Value{Kind: TextKind, Text: s} }

func ListValue(items []string) Value {
	if items == nil {
		return Value{}
	}
	return Value{Kind: ListKind, Items: items}
}

func NumberValue(n float64) Value { return Value{Kind: NumberKind, Num: n} }

func BoolValue(b bool) Value { return Value{Kind: BoolKind, Flag: b} }

func (v Value) IsSet() bool { return v.Kind != Unset }

// Empty reports whether the value is absent or blank: unset, whitespace-only
// text, an empty list, zero, or false.
func (v Value) Empty() bool {
	switch v.Kind {
	case TextKind:
		return strings.TrimSpace(v.Text) == ""
	case ListKind:
		return len(v.Items) == 0
	case NumberKind:
		return v.Num == 0
	case BoolKind:
		return !v.Flag
	default:
		return true
	}
}

// String renders the value as searchable text. List items are joined with a
// single space.
func (v Value) String() string {
	switch v.Kind {
	case TextKind:
		return v.Text
	case ListKind:
		return strings.Join(v.Items, " ")
	case NumberKind:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case BoolKind:
		return strconv.FormatBool(v.Flag)
	default:
		return ""
	}
}

// Len is the length of String in code points.
func (v Value) Len() int {
	return utf8.RuneCountInString(v.String())
}

// Count is the number of list items, or 1 for any other non-empty value.
func (v Value) Count() int {
	switch v.Kind {
	case ListKind:
		return len(v.Items)
	case Unset:
		return 0
	default:
		if v.Empty() {
			return 0
		}
		return 1
	}
}

// Number returns the numeric form of the value, if it has one.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case NumberKind:
		return v.Num, true
	case BoolKind:
		if v.Flag {
			return 1, true
		}
		return 0, true
	case TextKind:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func intValue(p *int64) Value {
	if p == nil {
		return Value{}
	}
	return NumberValue(float64(*p))
}

func floatValue(p *float64) Value {
	if p == nil {
		return Value{}
	}
	return NumberValue(*p)
}

func textValue(s string) Value {
	if s == "" {
		return Value{}
	}
	return TextValue(s)
}
