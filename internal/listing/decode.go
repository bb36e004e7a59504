package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type envelope struct {
	Listings json.RawMessage `json:"listings"`
}

// Decode reads a JSON array of platform listings, or an object with a
// "listings" array. An empty input decodes to no listings.
func Decode(platform Platform, r io.Reader) ([]Listing, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read listings: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '{' {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("parse listings: %w", err)
		}
		if len(env.Listings) == 0 {
			return nil, fmt.Errorf("parse listings: object has no listings array")
		}
		data = env.Listings
	}

	switch platform {
	case Etsy:
		var items []*EtsyListing
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse etsy listings: %w", err)
		}
		out := make([]Listing, 0, len(items))
		for i, item := range items {
			if item == nil {
				return nil, fmt.Errorf("parse etsy listings: item %d is null", i)
			}
			out = append(out, item)
		}
		return out, nil
	case Amazon:
		var items []*AmazonListing
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse amazon listings: %w", err)
		}
		out := make([]Listing, 0, len(items))
		for i, item := range items {
			if item == nil {
				return nil, fmt.Errorf("parse amazon listings: item %d is null", i)
			}
			out = append(out, item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}

// FromMap builds a single listing from a generic field map such as a YAML
// fixture, using the platform's JSON field names.
func FromMap(platform Platform, fields map[string]any) (Listing, error) {
	data, err := json.Marshal(normalizeMap(fields))
	if err != nil {
		return nil, fmt.Errorf("encode listing fields: %w", err)
	}
	switch platform {
	case Etsy:
		var l EtsyListing
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("decode etsy listing: %w", err)
		}
		return &l, nil
	case Amazon:
		var l AmazonListing
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("decode amazon listing: %w", err)
		}
		return &l, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", platform)
	}
}

// normalizeMap converts map[any]any values, which JSON cannot encode, into
// map[string]any.
func normalizeMap(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeMap(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeMap(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeMap(item)
		}
		return out
	default:
		return v
	}
}
