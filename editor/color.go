package editor

import (
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

func parseColor(hex string) (colorful.Color, error) {
	hex = strings.TrimSpace(hex)
	if len(hex) != 4 && len(hex) != 7 {
		return colorful.Color{}, &ValidationError{Field: "color", Reason: "must be a #RRGGBB hex value"}
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, &ValidationError{Field: "color", Reason: "must be a #RRGGBB hex value"}
	}
	return c, nil
}

// NormalizeHex parses a #RGB or #RRGGBB color and returns it as upper-case
// #RRGGBB.
func NormalizeHex(hex string) (string, error) {
	c, err := parseColor(hex)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(c.Hex()), nil
}

// ParseHex converts a hex color to an opaque RGBA value.
func ParseHex(hex string) (color.RGBA, error) {
	c, err := parseColor(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

func mustParseHex(hex string) color.RGBA {
	c, err := ParseHex(hex)
	if err != nil {
		panic(err)
	}
	return c
}
