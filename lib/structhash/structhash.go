// Package structhash fingerprints the structural shape of fetched
// markup. A scraper that silently extracts nothing because a site was
// redesigned looks exactly like "no events currently scheduled"; the
// fingerprint changing while the event count drops to zero is the
// signal an external monitor needs to tell the two apart.
package structhash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Fingerprint derives a stable hash from tag names and class lists,
// ignoring text content and every other attribute. Content-only edits
// (new events, changed venues) leave it unchanged; layout and styling
// rewrites move it.
func Fingerprint(markup []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(markup))
	h := sha256.New()

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := tokenizer.TagName()
		h.Write(name)

		if !hasAttr {
			h.Write([]byte{'>'})
			continue
		}
		var classes []string
		for {
			key, val, more := tokenizer.TagAttr()
			if string(key) == "class" {
				classes = append(classes, strings.Fields(string(val))...)
			}
			if !more {
				break
			}
		}
		// class order is presentational, the set is what identifies shape
		sort.Strings(classes)
		for _, c := range classes {
			h.Write([]byte{'.'})
			h.Write([]byte(c))
		}
		h.Write([]byte{'>'})
	}

	return hex.EncodeToString(h.Sum(nil))
}
