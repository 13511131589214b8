package schematic

import (
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor парсит значение заливки SVG. nil при ok == true означает
// "none". ok == false - значение не распознано, унаследованная заливка
// остается.
func ParseColor(s string) (c *color.RGBA, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch {
	case s == "none" || s == "transparent":
		return nil, true
	case s == "currentcolor":
		return &color.RGBA{A: 0xff}, true
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGB(s[4 : len(s)-1])
	}

	if named, found := colornames.Map[s]; found {
		return &named, true
	}
	return nil, false
}

func parseHex(h string) (*color.RGBA, bool) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return nil, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return nil, false
	}
	return &color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}

func parseRGB(args string) (*color.RGBA, bool) {
	parts := strings.Split(args, ",")
	if len(parts) != 3 {
		return nil, false
	}
	var rgb [3]uint8
	for i, part := range parts {
		part = strings.TrimSpace(part)
		scale := 1.0
		if strings.HasSuffix(part, "%") {
			part = strings.TrimSuffix(part, "%")
			scale = 255.0 / 100.0
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, false
		}
		v *= scale
		switch {
		case v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		rgb[i] = uint8(v + 0.5)
	}
	return &color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff}, true
}
