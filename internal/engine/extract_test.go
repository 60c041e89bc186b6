package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	A int    `json:"a"`
	B string `json:"b"`
}

func TestExtractStructured(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    sample
		wantErr bool
	}{
		{name: "leading and trailing prose", raw: `Here you go: {"a":1} thanks`, want: sample{A: 1}},
		{name: "bare object", raw: `{"a":2,"b":"x"}`, want: sample{A: 2, B: "x"}},
		{name: "markdown fence", raw: "```json\n{\"a\":3}\n```", want: sample{A: 3}},
		{name: "nested braces", raw: `Result: {"a":4,"b":"{not a brace}"}`, want: sample{A: 4, B: "{not a brace}"}},
		{name: "stray brace after payload", raw: `{"a":5} and a closing } remark`, want: sample{A: 5}},
		{name: "no braces", raw: "I cannot help with that.", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "broken json", raw: `{"a": 1,, }`, wantErr: true},
		{name: "reversed braces", raw: `} nothing {`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractStructured[sample](tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedResponse), "want ErrMalformedResponse, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":{"b":1}} tail`, `{"a":{"b":1}}`},
		{`{"s":"quote \" and } brace"} x`, `{"s":"quote \" and } brace"}`},
		{`{"s":"backslash \\"} x`, `{"s":"backslash \\"}`},
		{`{"open":`, ``},
		{`no object`, ``},
	}
	for _, tt := range tests {
		got := string(ExtractJSON([]byte(tt.in)))
		if got != tt.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
