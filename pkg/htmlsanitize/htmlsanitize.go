package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips every tag from user-supplied text and trims it.
// Entities produced by the sanitizer for quotes and ampersands are decoded back
// so stored notes read as typed.
func PlainText(input string) string {
	cleaned := strict.Sanitize(input)
	cleaned = entityReplacer.Replace(cleaned)
	return strings.TrimSpace(cleaned)
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&#39;", "'",
	"&#34;", `"`,
	"&quot;", `"`,
)
