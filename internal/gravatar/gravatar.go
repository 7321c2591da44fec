// Package gravatar builds Gravatar image URLs.
package gravatar

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// URL returns the protocol-relative Gravatar URL for email: 200px,
// PG rated, "mystery person" fallback.
func URL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "//www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=200&r=pg&d=mm"
}
