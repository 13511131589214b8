package schematic

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want *color.RGBA
		ok   bool
	}{
		{"none", nil, true},
		{"#f00", &color.RGBA{R: 255, A: 255}, true},
		{"#1E3A5F", &color.RGBA{R: 0x1e, G: 0x3a, B: 0x5f, A: 255}, true},
		{"rgb(10, 20, 30)", &color.RGBA{R: 10, G: 20, B: 30, A: 255}, true},
		{"SteelBlue", &color.RGBA{R: 70, G: 130, B: 180, A: 255}, true},
		{"currentColor", &color.RGBA{A: 255}, true},
		{"#12", nil, false},
		{"url(#grad)", nil, false},
		{"rgb(1,2)", nil, false},
	}
	for _, tc := range cases {
		got, ok := ParseColor(tc.in)
		assert.Equal(t, tc.ok, ok, "color %q", tc.in)
		assert.Equal(t, tc.want, got, "color %q", tc.in)
	}
}
