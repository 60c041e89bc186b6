package engine

import (
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

var (
	markupTagRe = regexp.MustCompile(`<[^>]*>`)
	spaceRunRe  = regexp.MustCompile(`\s+`)
)

// captionEntities runs after a single &amp; pass, so one level of double escaping
// decodes ("&amp;lt;" becomes "<") and deeper levels keep their remaining escapes.
var captionEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
)

// DecodeCaptionMarkup turns a caption markup payload into plain text:
// tags become spaces, the fixed entity set is decoded, whitespace runs
// collapse to one space, and the result is trimmed.
func DecodeCaptionMarkup(s string) string {
	s = markupTagRe.ReplaceAllString(s, " ")
	s = DecodeEntities(s)
	return CollapseSpaces(s)
}

// DecodeEntities decodes the caption entity set. It is not a general HTML decoder.
func DecodeEntities(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	return captionEntities.Replace(s)
}

// CollapseSpaces replaces whitespace runs with a single space and trims.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Pass suffix="" for no suffix. Safe for UTF-8 (Cyrillic, CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// TruncateAtWord truncates a string to maxLen runes at a word boundary.
func TruncateAtWord(s string, maxLen int) string {
	return strutil.TruncateAtWord(s, maxLen)
}

// RuneLen is the length of s in characters.
func RuneLen(s string) int {
	return len([]rune(s))
}

// SplitList splits a comma-separated list, trimming blanks and dropping empties.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
