// Package digest derives stable identifiers from content.
package digest

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Sum returns the hex blake3 hash of parts joined by a NUL separator.
func Sum(parts ...string) string {
	h := blake3.New()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ID returns a short identifier of the form "<kind>-<16 hex chars>".
func ID(kind string, parts ...string) string {
	return kind + "-" + Sum(append([]string{kind}, parts...)...)[:16]
}

// Join renders a list of task IDs for hashing, independent of nil vs empty.
func Join(ids []string) string {
	return strings.Join(ids, ",")
}
