package listing

type AmazonDimensions struct {
	Length float64 `json:"length,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Weight float64 `json:"weight,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

type AmazonIssue struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	Severity      string `json:"severity"`
	AttributeName string `json:"attributeName,omitempty"`
}

// AmazonListing mirrors the SP-API listings item summary used by the scanner.
type AmazonListing struct {
	ASIN               string            `json:"asin"`
	SKU                string            `json:"sku"`
	SellerSKU          string            `json:"sellerSku,omitempty"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	BulletPoints       []string          `json:"bulletPoints,omitempty"`
	Brand              string            `json:"brand,omitempty"`
	Manufacturer       string            `json:"manufacturer,omitempty"`
	ProductType        string            `json:"productType,omitempty"`
	Price              *float64          `json:"price,omitempty"`
	Currency           string            `json:"currency,omitempty"`
	ListPrice          *float64          `json:"listPrice,omitempty"`
	BusinessPrice      *float64          `json:"businessPrice,omitempty"`
	Quantity           *int64            `json:"quantity,omitempty"`
	FulfillmentChannel string            `json:"fulfillmentChannel,omitempty"`
	Condition          string            `json:"condition,omitempty"`
	ConditionNote      string            `json:"conditionNote,omitempty"`
	MainImageURL       string            `json:"mainImageUrl,omitempty"`
	Images             []string          `json:"images,omitempty"`
	Category           string            `json:"category,omitempty"`
	ProductCategory    string            `json:"productCategory,omitempty"`
	ItemClassification string            `json:"itemClassification,omitempty"`
	BrowseNodes        []string          `json:"browseNodes,omitempty"`
	Attributes         map[string]any    `json:"attributes,omitempty"`
	Dimensions         *AmazonDimensions `json:"dimensions,omitempty"`
	Keywords           []string          `json:"keywords,omitempty"`
	SearchTerms        []string          `json:"searchTerms,omitempty"`
	TargetAudience     string            `json:"targetAudience,omitempty"`
	Status             string            `json:"status,omitempty"`
	ListingID          string            `json:"listingId,omitempty"`
	IssueMessages      []AmazonIssue     `json:"issueMessages,omitempty"`
	CreatedDate        string            `json:"createdDate,omitempty"`
	LastUpdatedDate    string            `json:"lastUpdatedDate,omitempty"`
}

func (l *AmazonListing) Platform() Platform { return Amazon }

func (l *AmazonListing) ID() string { return l.ASIN }

func (l *AmazonListing) URL() string {
	if l.ASIN == "" {
		return ""
	}
	return "https://www.amazon.com/dp/" + l.ASIN
}

func (l *AmazonListing) Attr(name string) Value {
	switch name {
	case "id", "asin":
		return textValue(l.ASIN)
	case "sku":
		return TextValue(l.SKU)
	case "seller_sku":
		return textValue(l.SellerSKU)
	case "title":
		return TextValue(l.Title)
	case "description":
		return textValue(l.Description)
	case "bullet_points":
		return ListValue(l.BulletPoints)
	case "brand":
		return textValue(l.Brand)
	case "manufacturer":
		return textValue(l.Manufacturer)
	case "product_type":
		return textValue(l.ProductType)
	case "price":
		return floatValue(l.Price)
	case "currency":
		return textValue(l.Currency)
	case "list_price":
		return floatValue(l.ListPrice)
	case "business_price":
		return floatValue(l.BusinessPrice)
	case "quantity":
		return intValue(l.Quantity)
	case "fulfillment_channel":
		return textValue(l.FulfillmentChannel)
	case "condition":
		return textValue(l.Condition)
	case "condition_note":
		return textValue(l.ConditionNote)
	case "main_image_url":
		return textValue(l.MainImageURL)
	case "images":
		return ListValue(l.Images)
	case "category":
		return textValue(l.Category)
	case "product_category":
		return textValue(l.ProductCategory)
	case "item_classification":
		return textValue(l.ItemClassification)
	case "browse_nodes":
		return ListValue(l.BrowseNodes)
	case "brand_registry":
		return BoolValue(truthy(l.Attributes["brandRegistry"]))
	case "dimensions":
		return BoolValue(l.Dimensions != nil)
	case "dimensions.length":
		return l.dimension(func(d *AmazonDimensions) float64 { return d.Length })
	case "dimensions.width":
		return l.dimension(func(d *AmazonDimensions) float64 { return d.Width })
	case "dimensions.height":
		return l.dimension(func(d *AmazonDimensions) float64 { return d.Height })
	case "dimensions.weight":
		return l.dimension(func(d *AmazonDimensions) float64 { return d.Weight })
	case "keywords":
		return ListValue(l.Keywords)
	case "search_terms":
		// Backend search terms fall back to the keyword list.
		if l.SearchTerms != nil {
			return ListValue(l.SearchTerms)
		}
		return ListValue(nonNil(l.Keywords))
	case "target_audience":
		return textValue(l.TargetAudience)
	case "status":
		return textValue(l.Status)
	default:
		return Value{}
	}
}

func (l *AmazonListing) dimension(get func(*AmazonDimensions) float64) Value {
	if l.Dimensions == nil {
		return Value{}
	}
	return NumberValue(get(l.Dimensions))
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}
