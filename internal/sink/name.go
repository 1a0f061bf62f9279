package sink

import (
	"crypto/sha1" //nolint:gosec // file name hash, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugLen is the maximum length of a title slug in a file name.
const maxSlugLen = 40

// Slug turns title into a file name fragment. Accents are folded to their
// base letters, every other character outside [0-9A-Za-z_-] becomes '_',
// and the result is cut to 40 characters. An empty result is "page".
func Slug(title string) string {
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(fold, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	for _, r := range folded {
		if isSlugRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		if b.Len() == maxSlugLen {
			break
		}
	}
	if b.Len() == 0 {
		return "page"
	}
	return b.String()
}

func isSlugRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z')
}

// ShortHash returns the first 8 hex characters of the SHA-1 of s.
func ShortHash(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // file name hash, not a security boundary
	return hex.EncodeToString(sum[:])[:8]
}

// PageFileName returns the side-file name of the seq-th matching page.
func PageFileName(seq int, title, pageURL string) string {
	return fmt.Sprintf("%04d_%s_%s.json", seq, Slug(title), ShortHash(pageURL))
}

// ResourceFileName returns the side-file name of a resource match.
// Datastore records carry their index so that records of one resource do
// not overwrite each other.
func ResourceFileName(datasetID, resourceID, resourceURL string, recordIndex int) string {
	id := Slug(resourceID)
	if recordIndex >= 0 {
		return fmt.Sprintf("%s_%s_%04d_%s.json", Slug(datasetID), id, recordIndex, ShortHash(resourceURL))
	}
	return fmt.Sprintf("%s_%s_%s.json", Slug(datasetID), id, ShortHash(resourceURL))
}
