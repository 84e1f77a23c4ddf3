package roster

import (
	"net/url"
	"strings"
)

// EncodeComponent percent-encodes s so it can be embedded in an attribute
// value or a URL component. Every byte other than letters, digits and
// "-_.~" is escaped; spaces become %20.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// DecodeComponent reverses EncodeComponent. A literal "+" is kept as is.
func DecodeComponent(s string) (string, error) {
	return url.PathUnescape(s)
}
