package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewBrowserClient(t *testing.T) {
	bc, err := NewBrowserClient(0)
	if err != nil {
		t.Fatalf("NewBrowserClient() error = %v", err)
	}
	if bc == nil || bc.client == nil {
		t.Fatal("NewBrowserClient() returned an unusable client")
	}
}

func TestBrowserClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Language") != "en-US,en;q=0.9" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("<html>watch page</html>"))
	}))
	defer srv.Close()

	bc, err := NewBrowserClient(5 * time.Second)
	if err != nil {
		t.Fatalf("NewBrowserClient() error = %v", err)
	}

	h := http.Header{}
	h.Set("Accept-Language", "en-US,en;q=0.9")
	body, status, err := bc.Get(context.Background(), srv.URL, h, 1024)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if string(body) != "<html>watch page</html>" {
		t.Errorf("body = %q", body)
	}

	body, _, err = bc.Get(context.Background(), srv.URL, h, 6)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "<html>" {
		t.Errorf("limited body = %q, want %q", body, "<html>")
	}
}
