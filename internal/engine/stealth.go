package engine

import (
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// RandomUserAgent returns a current desktop browser User-Agent.
func RandomUserAgent() string { return stealth.RandomUserAgent() }

// BrowserHeaders returns Chrome-like request headers with a random User-Agent.
// Accept-Encoding is left to net/http so responses are decompressed transparently.
func BrowserHeaders() http.Header {
	h := http.Header{}
	for k, v := range stealth.ChromeHeaders() {
		if http.CanonicalHeaderKey(k) == "Accept-Encoding" {
			continue
		}
		h.Set(k, v)
	}
	h.Set("User-Agent", stealth.RandomUserAgent())
	return h
}
