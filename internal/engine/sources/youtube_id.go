package sources

import "regexp"

// videoIDRe matches watch, short-link, embed, /v/, /e/, shorts and live URLs.
// The identifier is always the 11 characters after the matched prefix.
var videoIDRe = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?|shorts|live)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)

// ExtractVideoID returns the 11-character video identifier embedded in rawURL.
// It is a pure function; ok is false when no identifier is present.
func ExtractVideoID(rawURL string) (id string, ok bool) {
	m := videoIDRe.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}
