package concept

import (
	"regexp"
	"testing"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestDeriveID(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  string
	}{
		{"words with symbols", "Blog Post (Draft #1)", "blog-post-draft-1"},
		{"screaming snake", "MY_BLOG_POST", "my-blog-post"},
		{"camel case", "PurchaseOrder", "purchase-order"},
		{"lower camel", "purchaseOrderLine", "purchase-order-line"},
		{"plain two words", "Purchase Order", "purchase-order"},
		{"surrounding whitespace", "  Invoice  ", "invoice"},
		{"mixed separators", "tax__form - W2", "tax-form-w2"},
		{"acronym", "XMLParser", "xmlparser"},
		{"non ascii dropped", "Café Menu", "caf-menu"},
		{"non-breaking space", "Sales\u00a0Order", "sales-order"},
		{"ideographic space", "Delivery\u3000Note", "delivery-note"},
		{"empty", "", ""},
		{"symbols only", "#!?", ""},
		{"hyphens only", "---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveID(tt.label)
			if got != tt.want {
				t.Errorf("DeriveID(%q) = %q, want %q", tt.label, got, tt.want)
			}
		})
	}
}

func TestDeriveIDIdempotentAndWellFormed(t *testing.T) {
	inputs := []string{
		"Blog Post (Draft #1)",
		"MY_BLOG_POST",
		"PurchaseOrder",
		"  --Leading and trailing--  ",
		"a  b\tc\nd",
		"Ünïcödé Läbel",
		"123 Numbers First",
		"",
		"%%%",
	}

	for _, in := range inputs {
		once := DeriveID(in)
		twice := DeriveID(once)
		if once != twice {
			t.Errorf("DeriveID not idempotent for %q: %q then %q", in, once, twice)
		}
		if once != "" && !slugPattern.MatchString(once) {
			t.Errorf("DeriveID(%q) = %q, not a slug", in, once)
		}
	}
}
