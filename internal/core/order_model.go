package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackingStatus is the carrier-reported state of an order shipment.
type TrackingStatus string

const (
	TrackingLabelCreated   TrackingStatus = "label_created"
	TrackingInTransit      TrackingStatus = "in_transit"
	TrackingOutForDelivery TrackingStatus = "out_for_delivery"
	TrackingDelivered      TrackingStatus = "delivered"
	TrackingUnknown        TrackingStatus = "unknown"
)

// Category classifies a product for return-policy purposes.
// Gift cards and custom items are never returnable for preference reasons.
type Category string

const (
	CategoryApparel             Category = "apparel"
	CategoryFootwearAccessories Category = "footwear_accessories"
	CategoryGiftCard            Category = "gift_card"
	CategoryCustomPersonalized  Category = "custom_personalized"
	CategoryOther               Category = "other"
)

// Product holds the catalog metadata the classifier needs for a SKU.
// WarrantyDays, when set, overrides the category default warranty window.
type Product struct {
	SKU          string   `json:"sku"`
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	IsFinalSale  bool     `json:"is_final_sale"`
	WarrantyDays *int     `json:"warranty_days,omitempty"`
}

// LineItem is one line on an order. Product is attached during enrichment
// and stays nil until then.
type LineItem struct {
	SKU       string          `json:"sku"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Product   *Product        `json:"product,omitempty"`
}

// Order is an immutable input fact: fetched once per request, never
// mutated by the pipeline.
type Order struct {
	OrderID        string         `json:"order_id"`
	PlacedAt       time.Time      `json:"placed_at"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	TrackingStatus TrackingStatus `json:"tracking_status"`
	IsGift         bool           `json:"is_gift"`
	Currency       string         `json:"currency"`
	Items          []LineItem     `json:"items"`
}

// ItemSubtotal returns the sum of unit_price × qty across all line items.
func (o *Order) ItemSubtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total
}

// PolicyChunk is one retrieved passage of written policy.
// Distance is the vector-store score: lower means more relevant.
type PolicyChunk struct {
	Content  string  `json:"content"`
	Source   string  `json:"source"`
	Distance float64 `json:"distance"`
}
