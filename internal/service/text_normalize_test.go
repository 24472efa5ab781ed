package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{" Paris ", "paris"},
		{"New   York\tCity", "new york city"},
		{"北京 市", "北京市"},
		{" 東京　タワー ", "東京タワー"},
		{"<b>Paris</b>", "paris"},
		{"<p>北京</p> <p>市</p>", "北京市"},
		{"AT&amp;T", "at&t"},
		{"ＡＢＣ１２３", "abc123"},
		{"x<y", "x<y"},
		{"x<z", "x<z"},
		{"a < b", "a < b"},
		{"Paris<br/>", "paris"},
		{"<!-- hint -->Paris", "paris"},
		{"1 &lt; 2", "1 < 2"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeText(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeTextKeepsUnclosedAngleBracket(t *testing.T) {
	assert.NotEqual(t, NormalizeText("x<y"), NormalizeText("x<z"))
	assert.NotEqual(t, NormalizeText("a<b"), NormalizeText("a<anything at all"))
}
