package listing

import "strconv"

type EtsyPrice struct {
	Amount       float64 `json:"amount"`
	Divisor      float64 `json:"divisor"`
	CurrencyCode string  `json:"currency_code"`
}

type EtsyImage struct {
	URLFullxFull string `json:"url_fullxfull"`
}

// EtsyListing mirrors the Etsy Open API v3 listing resource.
type EtsyListing struct {
	ListingID         int64       `json:"listing_id"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Price             EtsyPrice   `json:"price"`
	Quantity          int64       `json:"quantity"`
	State             string      `json:"state"`
	Tags              []string    `json:"tags"`
	Materials         []string    `json:"materials"`
	TaxonomyID        *int64      `json:"taxonomy_id,omitempty"`
	ShippingProfileID *int64      `json:"shipping_profile_id,omitempty"`
	ProcessingMin     *int64      `json:"processing_min,omitempty"`
	ProcessingMax     *int64      `json:"processing_max,omitempty"`
	WhoMade           string      `json:"who_made,omitempty"`
	WhenMade          string      `json:"when_made,omitempty"`
	IsSupply          *bool       `json:"is_supply,omitempty"`
	Images            []EtsyImage `json:"images,omitempty"`
	ShopSectionID     *int64      `json:"shop_section_id,omitempty"`
	ListingURL        string      `json:"url,omitempty"`
}

func (l *EtsyListing) Platform() Platform { return Etsy }

func (l *EtsyListing) ID() string { return strconv.FormatInt(l.ListingID, 10) }

func (l *EtsyListing) URL() string {
	if l.ListingURL != "" {
		return l.ListingURL
	}
	return "https://www.etsy.com/listing/" + l.ID()
}

// UnitPrice is amount/divisor; ok is false when the divisor is not positive.
func (l *EtsyListing) UnitPrice() (float64, bool) {
	if l.Price.Divisor <= 0 {
		return 0, false
	}
	return l.Price.Amount / l.Price.Divisor, true
}

func (l *EtsyListing) Attr(name string) Value {
	switch name {
	case "id", "listing_id":
		return TextValue(l.ID())
	case "title":
		return TextValue(l.Title)
	case "description":
		return TextValue(l.Description)
	case "price":
		if p, ok := l.UnitPrice(); ok {
			return NumberValue(p)
		}
		return Value{}
	case "currency":
		return textValue(l.Price.CurrencyCode)
	case "quantity":
		return NumberValue(float64(l.Quantity))
	case "state":
		return TextValue(l.State)
	case "tags":
		return ListValue(nonNil(l.Tags))
	case "materials":
		return ListValue(nonNil(l.Materials))
	case "taxonomy_id":
		return intValue(l.TaxonomyID)
	case "shipping_profile_id":
		return intValue(l.ShippingProfileID)
	case "processing_min":
		return intValue(l.ProcessingMin)
	case "processing_max":
		return intValue(l.ProcessingMax)
	case "who_made":
		return textValue(l.WhoMade)
	case "when_made":
		return textValue(l.WhenMade)
	case "is_supply":
		if l.IsSupply == nil {
			return Value{}
		}
		return BoolValue(*l.IsSupply)
	case "images":
		urls := make([]string, 0, len(l.Images))
		for _, img := range l.Images {
			urls = append(urls, img.URLFullxFull)
		}
		return ListValue(urls)
	case "shop_section_id":
		return intValue(l.ShopSectionID)
	default:
		return Value{}
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
