package sources

import "testing"

func TestExtractVideoID(t *testing.T) {
	const id = "dQw4w9WgXcQ"
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"canonical watch", "https://www.youtube.com/watch?v=" + id, id, true},
		{"watch with extra params", "https://www.youtube.com/watch?feature=share&v=" + id + "&t=42s", id, true},
		{"short link", "https://youtu.be/" + id, id, true},
		{"short link with timestamp", "https://youtu.be/" + id + "?t=10", id, true},
		{"embed", "https://www.youtube.com/embed/" + id, id, true},
		{"v path", "https://www.youtube.com/v/" + id, id, true},
		{"shorts", "https://youtube.com/shorts/" + id, id, true},
		{"mobile", "https://m.youtube.com/watch?v=" + id, id, true},
		{"no scheme", "youtube.com/watch?v=" + id, id, true},
		{"other host", "https://vimeo.com/123456789", "", false},
		{"id too short", "https://youtu.be/abc", "", false},
		{"no id", "https://www.youtube.com/", "", false},
		{"empty", "", "", false},
		{"not a url", "hello world", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.url)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractVideoID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractVideoIDSameVideoSameID(t *testing.T) {
	forms := []string{
		"https://www.youtube.com/watch?v=aqz-KE-bpKQ",
		"https://youtu.be/aqz-KE-bpKQ",
		"https://www.youtube.com/embed/aqz-KE-bpKQ?autoplay=1",
	}
	var first string
	for i, u := range forms {
		got, ok := ExtractVideoID(u)
		if !ok {
			t.Fatalf("ExtractVideoID(%q) found nothing", u)
		}
		if i == 0 {
			first = got
		} else if got != first {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", u, got, first)
		}
	}
}
