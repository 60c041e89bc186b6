package engine

import "testing"

func TestBrowserHeaders(t *testing.T) {
	h := BrowserHeaders()
	if h.Get("User-Agent") == "" {
		t.Error("expected a User-Agent")
	}
	if h.Get("Accept-Encoding") != "" {
		t.Error("Accept-Encoding must be left to net/http")
	}
}
