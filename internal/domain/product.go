package domain

import (
	"strings"
	"time"
)

// ProductGIDPrefix is the fully-qualified global identifier prefix Shopify
// uses for products. All product ids are stored and compared in this form.
const ProductGIDPrefix = "gid://shopify/Product/"

// Product is one row of the local catalog mirror. Identity is
// (MerchantDomain, ProductID) with ProductID always in normalized GID form;
// the product repository enforces that pair with a compound unique index.
type Product struct {
	MerchantDomain string           `json:"merchant_domain" bson:"merchant_domain"`
	ProductID      string           `json:"product_id" bson:"product_id"`
	Title          string           `json:"title" bson:"title"`
	ProductType    string           `json:"product_type" bson:"product_type"`
	Tags           []string         `json:"tags" bson:"tags"`
	Price          string           `json:"price" bson:"price"`
	Image          string           `json:"image" bson:"image"`
	Variants       []ProductVariant `json:"variants" bson:"variants"`
	Vendor         string           `json:"vendor" bson:"vendor"`
	Handle         string           `json:"handle" bson:"handle"`
	UpdatedAt      time.Time        `json:"updated_at" bson:"updated_at"`
}

// ProductVariant is a purchasable variation of a product.
type ProductVariant struct {
	ID             string `json:"id" bson:"id"`
	Title          string `json:"title" bson:"title"`
	Price          string `json:"price" bson:"price"`
	CompareAtPrice string `json:"compare_at_price,omitempty" bson:"compare_at_price,omitempty"`
	SKU            string `json:"sku,omitempty" bson:"sku,omitempty"`
}

// NormalizeProductID converts a caller-supplied product id into the
// fully-qualified GID form. Bare numeric ids ("123") and already-qualified
// ids ("gid://shopify/Product/123") are both accepted.
func NormalizeProductID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return ProductGIDPrefix + id
}

// NormalizeProductIDs normalizes a list of ids, dropping empty entries.
func NormalizeProductIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if normalized := NormalizeProductID(id); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}
