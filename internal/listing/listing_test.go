package listing

import (
	"strings"
	"testing"
)

func TestParsePlatform(t *testing.T) {
	cases := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{in: "etsy", want: Etsy},
		{in: " Amazon ", want: Amazon},
		{in: "ebay", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParsePlatform(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: got %s want %s", tc.in, got, tc.want)
		}
	}
}

func TestEtsyAttributes(t *testing.T) {
	section := int64(7)
	l := &EtsyListing{
		ListingID:     42,
		Title:         "Handmade mug",
		Price:         EtsyPrice{Amount: 1999, Divisor: 100, CurrencyCode: "USD"},
		Tags:          []string{"mug", "ceramic"},
		Images:        []EtsyImage{{URLFullxFull: "https://img/1.jpg"}},
		ShopSectionID: &section,
	}

	if l.ID() != "42" {
		t.Fatalf("unexpected id: %s", l.ID())
	}
	if l.URL() != "https://www.etsy.com/listing/42" {
		t.Fatalf("unexpected url: %s", l.URL())
	}
	if TitleOf(l) != "Handmade mug" {
		t.Fatalf("unexpected title: %s", TitleOf(l))
	}
	price, ok := l.Attr("price").Number()
	if !ok || price != 19.99 {
		t.Fatalf("unexpected price: %v %v", price, ok)
	}
	if got := l.Attr("tags").Count(); got != 2 {
		t.Fatalf("expected 2 tags, got %d", got)
	}
	if !l.Attr("materials").Empty() || !l.Attr("materials").IsSet() {
		t.Fatalf("missing materials should be a set, empty list")
	}
	if l.Attr("taxonomy_id").IsSet() {
		t.Fatalf("taxonomy_id should be unset")
	}
	if got := l.Attr("images").String(); got != "https://img/1.jpg" {
		t.Fatalf("unexpected images: %s", got)
	}
	if n, _ := l.Attr("shop_section_id").Number(); n != 7 {
		t.Fatalf("unexpected shop section: %v", n)
	}
}

func TestEtsyZeroDivisorLeavesPriceUnset(t *testing.T) {
	l := &EtsyListing{ListingID: 1, Price: EtsyPrice{Amount: 100}}
	if l.Attr("price").IsSet() {
		t.Fatalf("price with zero divisor should be unset")
	}
}

func TestAmazonAttributes(t *testing.T) {
	price := 24.5
	l := &AmazonListing{
		ASIN:       "B000TEST01",
		SKU:        "MUG-RED-01",
		Title:      "Red Mug",
		Price:      &price,
		Keywords:   []string{"mug", "coffee"},
		Attributes: map[string]any{"brandRegistry": true},
		Dimensions: &AmazonDimensions{Length: 4, Unit: "in"},
	}

	if l.URL() != "https://www.amazon.com/dp/B000TEST01" {
		t.Fatalf("unexpected url: %s", l.URL())
	}
	if got := l.Attr("search_terms").String(); got != "mug coffee" {
		t.Fatalf("search terms should fall back to keywords, got %q", got)
	}
	if l.Attr("brand_registry").Empty() {
		t.Fatalf("brand registry should be true")
	}
	if l.Attr("brand").IsSet() {
		t.Fatalf("empty brand should be unset")
	}
	if n, ok := l.Attr("dimensions.length").Number(); !ok || n != 4 {
		t.Fatalf("unexpected length: %v %v", n, ok)
	}
	if !l.Attr("dimensions.weight").Empty() {
		t.Fatalf("zero weight should be empty")
	}
	if l.Attr("quantity").IsSet() {
		t.Fatalf("quantity should be unset")
	}
}

func TestValueLenCountsRunes(t *testing.T) {
	if got := TextValue("héllo").Len(); got != 5 {
		t.Fatalf("expected 5 runes, got %d", got)
	}
	if got := ListValue([]string{"a", "bc"}).Len(); got != 4 {
		t.Fatalf("expected joined length 4, got %d", got)
	}
}

func TestDecodeArrayAndEnvelope(t *testing.T) {
	arr := `[{"listing_id": 1, "title": "A"}, {"listing_id": 2, "title": "B"}]`
	got, err := Decode(Etsy, strings.NewReader(arr))
	if err != nil {
		t.Fatalf("decode array: %v", err)
	}
	if len(got) != 2 || got[1].ID() != "2" {
		t.Fatalf("unexpected listings: %#v", got)
	}

	env := `{"listings": [{"asin": "B01", "sku": "S", "title": "T"}]}`
	got, err = Decode(Amazon, strings.NewReader(env))
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if len(got) != 1 || got[0].Platform() != Amazon || got[0].ID() != "B01" {
		t.Fatalf("unexpected listings: %#v", got)
	}

	got, err = Decode(Etsy, strings.NewReader("  "))
	if err != nil || len(got) != 0 {
		t.Fatalf("empty input should decode to nothing: %v %v", got, err)
	}

	if _, err := Decode(Etsy, strings.NewReader("{bad")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDecodeRejectsNullItems(t *testing.T) {
	cases := []struct {
		platform Platform
		input    string
		want     string
	}{
		{Etsy, `[{"listing_id": 1, "title": "ok"}, null]`, "parse etsy listings: item 1 is null"},
		{Amazon, `{"listings": [null]}`, "parse amazon listings: item 0 is null"},
	}
	for _, tc := range cases {
		got, err := Decode(tc.platform, strings.NewReader(tc.input))
		if err == nil {
			t.Fatalf("%s: expected error, got %d listings", tc.platform, len(got))
		}
		if err.Error() != tc.want {
			t.Fatalf("%s: unexpected error %q", tc.platform, err)
		}
	}
}

func TestFromMapHandlesNestedYAMLMaps(t *testing.T) {
	l, err := FromMap(Etsy, map[string]any{
		"listing_id": 9,
		"title":      "Tote",
		"price":      map[any]any{"amount": 500, "divisor": 100},
	})
	if err != nil {
		t.Fatalf("from map: %v", err)
	}
	if n, _ := l.Attr("price").Number(); n != 5 {
		t.Fatalf("unexpected price: %v", n)
	}
}
