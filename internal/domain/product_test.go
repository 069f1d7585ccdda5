package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeProductID(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"123", "gid://shopify/Product/123"},
		{"gid://shopify/Product/123", "gid://shopify/Product/123"},
		{" 456 ", "gid://shopify/Product/456"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range cases {
		if got := NormalizeProductID(tc.input); got != tc.want {
			t.Fatalf("NormalizeProductID(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeProductIDsDropsEmpty(t *testing.T) {
	got := NormalizeProductIDs([]string{"1", "", "gid://shopify/Product/2", "  "})
	want := []string{"gid://shopify/Product/1", "gid://shopify/Product/2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeProductIDs = %v, want %v", got, want)
	}
}
