package entity

import (
	"encoding/hex"
	"net/url"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// NormalizeURL canonicalizes a URL for deduplication.
// The scheme and host are lower-cased, the fragment is dropped and an empty
// path becomes "/". Unparseable input is returned unchanged.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}

	return u.String()
}

// HashFingerprint returns the hex BLAKE2b-256 digest of the normalized URL.
// It is meant to be used as a URLEntity.FingerprintFunc so that equivalent
// URLs share a fixed-size key, which keeps remote filters compact.
func HashFingerprint(rawURL string) string {
	sum := blake2b.Sum256([]byte(NormalizeURL(rawURL)))
	return hex.EncodeToString(sum[:])
}
