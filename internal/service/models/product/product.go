package product

import (
	"encoding/json"
	"fmt"
)

// Product is a basket line item. Quantity is carried alongside the
// product fields but is not part of the product's identity.
type Product struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	ArticleNo        string         `json:"articleNo"`
	Description      string         `json:"description"`
	UnitPriceCents   int64          `json:"unitPrice"`
	DisplayPrice     string         `json:"displayPrice"`
	DisplayUnitPrice string         `json:"display_unitPrice"`
	Class            string         `json:"class"`
	CustomFields     map[string]any `json:"customFields,omitempty"`
	CustomData       map[string]any `json:"customData,omitempty"`
	Quantity         int            `json:"quantity"`
	Active           bool           `json:"active"`
}

// NormalizeQuantity clamps the quantity to a positive value.
// Invalid and negative input defaults to 1.
func (p *Product) NormalizeQuantity() {
	if p.Quantity <= 0 {
		p.Quantity = 1
	}
}

// compareFields is the canonical subset of fields that decides whether two
// line items represent the same product. Quantity is deliberately excluded
// so that quantity differences never block a merge.
type compareFields struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	ArticleNo        string         `json:"articleNo"`
	Description      string         `json:"description"`
	UnitPriceCents   int64          `json:"unitPrice"`
	DisplayPrice     string         `json:"displayPrice"`
	Class            string         `json:"class"`
	CustomFields     map[string]any `json:"customFields,omitempty"`
	CustomData       map[string]any `json:"customData,omitempty"`
	DisplayUnitPrice string         `json:"display_unitPrice"`
}

// CompareKey returns the canonical merge key of a product.
// Two products with the same key are the same basket line.
func CompareKey(p Product) (string, error) {
	key, err := json.Marshal(compareFields{
		ID:               p.ID,
		Title:            p.Title,
		ArticleNo:        p.ArticleNo,
		Description:      p.Description,
		UnitPriceCents:   p.UnitPriceCents,
		DisplayPrice:     p.DisplayPrice,
		Class:            p.Class,
		CustomFields:     p.CustomFields,
		CustomData:       p.CustomData,
		DisplayUnitPrice: p.DisplayUnitPrice,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build product compare key: %w", err)
	}

	return string(key), nil
}

// MergeList collapses entries that share a compare key into a single entry
// whose quantity is the sum of the merged entries. Input order is preserved.
func MergeList(products []Product) []Product {
	merged := make([]Product, 0, len(products))
	index := make(map[string]int, len(products))

	for _, p := range products {
		p.NormalizeQuantity()

		key, err := CompareKey(p)
		if err != nil {
			// Unkeyable products are kept as separate lines.
			merged = append(merged, p)
			continue
		}

		if at, ok := index[key]; ok {
			merged[at].Quantity += p.Quantity
			continue
		}

		index[key] = len(merged)
		merged = append(merged, p)
	}

	return merged
}

// ListFromJSON decodes a persisted product list. Invalid JSON degrades to
// an empty list, it never fails the caller.
func ListFromJSON(data []byte) []Product {
	if len(data) == 0 {
		return []Product{}
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return []Product{}
	}

	return products
}

// ListToJSON encodes a product list for persistence.
func ListToJSON(products []Product) []byte {
	if products == nil {
		products = []Product{}
	}

	data, err := json.Marshal(products)
	if err != nil {
		return []byte("[]")
	}

	return data
}
