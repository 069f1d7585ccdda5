package application

import (
	"strconv"
	"strings"

	"cartwise-orchestrator/internal/domain"
	"cartwise-orchestrator/internal/ports"
)

// imageFields is the priority-ordered resolution list for a product's
// representative image. Platform API versions disagree on where the image
// lives; the first non-empty match wins.
var imageFields = []func(ports.CatalogProduct) string{
	func(raw ports.CatalogProduct) string { return nestedString(raw, "featuredImage", "url") },
	func(raw ports.CatalogProduct) string { return nestedString(raw, "image", "src") },
	func(raw ports.CatalogProduct) string { return firstListString(raw, "images", "src") },
	func(raw ports.CatalogProduct) string { return firstListString(raw, "images", "url") },
}

// TransformProduct converts a raw platform record (GraphQL node or webhook
// payload) into the canonical local-mirror shape. It never fails: malformed
// attributes degrade to zero values so one odd record cannot poison a sync.
func TransformProduct(shopDomain string, raw ports.CatalogProduct) *domain.Product {
	product := &domain.Product{
		MerchantDomain: shopDomain,
		ProductID:      domain.NormalizeProductID(anyToString(raw["id"])),
		Title:          anyToString(raw["title"]),
		ProductType:    firstNonEmpty(anyToString(raw["productType"]), anyToString(raw["product_type"])),
		Tags:           NormalizeTags(raw["tags"]),
		Vendor:         anyToString(raw["vendor"]),
		Handle:         anyToString(raw["handle"]),
		Variants:       transformVariants(raw["variants"]),
	}

	// Representative price is the first variant's price; products with no
	// variants get a zero-value placeholder rather than failing.
	product.Price = "0.00"
	if len(product.Variants) > 0 && product.Variants[0].Price != "" {
		product.Price = product.Variants[0].Price
	}

	for _, resolve := range imageFields {
		if image := resolve(raw); image != "" {
			product.Image = image
			break
		}
	}

	return product
}

// NormalizeTags accepts tags as a delimited string or a list and returns a
// deduplicated, trimmed list with empty entries dropped. Malformed input
// degrades to an empty list, never an error.
func NormalizeTags(value interface{}) []string {
	var candidates []string
	switch v := value.(type) {
	case string:
		candidates = strings.Split(v, ",")
	case []string:
		candidates = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	}

	tags := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, tag := range candidates {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	return tags
}

func transformVariants(value interface{}) []domain.ProductVariant {
	list, ok := value.([]interface{})
	if !ok {
		return nil
	}

	variants := make([]domain.ProductVariant, 0, len(list))
	for _, item := range list {
		raw, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		variants = append(variants, domain.ProductVariant{
			ID:             anyToString(raw["id"]),
			Title:          anyToString(raw["title"]),
			Price:          anyToString(raw["price"]),
			CompareAtPrice: firstNonEmpty(anyToString(raw["compareAtPrice"]), anyToString(raw["compare_at_price"])),
			SKU:            anyToString(raw["sku"]),
		})
	}

	return variants
}

// anyToString renders scalar JSON values as strings. Numeric ids arrive as
// float64 after unmarshalling and must not pick up an exponent.
func anyToString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func nestedString(raw ports.CatalogProduct, key, subKey string) string {
	nested, ok := raw[key].(map[string]interface{})
	if !ok {
		return ""
	}
	return anyToString(nested[subKey])
}

// firstListString resolves list-shaped image fields: the first element may
// be an object carrying subKey or a bare URL string.
func firstListString(raw ports.CatalogProduct, key, subKey string) string {
	list, ok := raw[key].([]interface{})
	if !ok || len(list) == 0 {
		return ""
	}
	switch first := list[0].(type) {
	case map[string]interface{}:
		return anyToString(first[subKey])
	case string:
		return first
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
