package concept

import (
	"strings"
	"unicode"
)

// DeriveID 由显示名称生成 URL 安全的标识符
// 例如 "Blog Post (Draft #1)" -> "blog-post-draft-1"，"PurchaseOrder" -> "purchase-order"
func DeriveID(label string) string {
	var spaced strings.Builder
	spaced.Grow(len(label) + 4)

	var prev rune
	for i, r := range label {
		switch {
		case unicode.IsSpace(r) || r == '_':
			spaced.WriteByte('-')
		default:
			if i > 0 && isLowerASCII(prev) && isUpperASCII(r) {
				spaced.WriteByte('-')
			}
			spaced.WriteString(strings.ToLower(string(r)))
		}
		prev = r
	}

	var out strings.Builder
	out.Grow(spaced.Len())
	for _, r := range spaced.String() {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			out.WriteRune(r)
		case r == '-':
			s := out.String()
			if s != "" && s[len(s)-1] != '-' {
				out.WriteByte('-')
			}
		}
	}
	return strings.TrimRight(out.String(), "-")
}

func isLowerASCII(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpperASCII(r rune) bool { return r >= 'A' && r <= 'Z' }
