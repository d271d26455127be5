package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"<script>", "&lt;script&gt;"},
		{`a & b`, "a &amp; b"},
		{`"quoted" 'single'`, "&quot;quoted&quot; &#39;single&#39;"},
		{"a/b=c", "a&#x2F;b&#x3D;c"},
		{"`code`", "&#x60;code&#x60;"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeInput(tt.in))
		})
	}
}

func TestSanitizeInput_NoRawAngleBrackets(t *testing.T) {
	out := SanitizeInput(`<img src=x onerror="alert(1)"></img>`)
	assert.NotContains(t, out, "<")
	assert.NotContains(t, out, ">")
}

func TestSanitizeInput_NotIdempotent(t *testing.T) {
	once := SanitizeInput("<")
	assert.Equal(t, "&lt;", once)
	assert.Equal(t, "&amp;lt;", SanitizeInput(once))
}
