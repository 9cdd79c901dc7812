// Package fingerprint derives the cache key and share token for a URL.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
)

// Length is the number of hex characters kept from the digest.
const Length = 16

// Of returns the fingerprint of url. The URL is hashed byte for byte as
// submitted, query and fragment included.
func Of(url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:Length], nil
}

// Valid reports whether s has the shape of a fingerprint.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
