package editor

import "strings"

const (
	DefaultCanvasColor  = "#FFFFFF"
	DefaultCanvasWidth  = 300
	DefaultCanvasHeight = 400
)

// Canvas is the garment base color, optional background image and grid
// toggle. Only the color and background survive serialization.
type Canvas struct {
	color      string
	palette    []string
	background string
	grid       bool
}

// NewCanvas creates a canvas restricted to palette. The first palette entry
// is the initial color. An empty palette accepts any valid hex color.
func NewCanvas(palette []string) *Canvas {
	c := &Canvas{color: DefaultCanvasColor, grid: true}
	for _, p := range palette {
		if hex, err := NormalizeHex(p); err == nil {
			c.palette = append(c.palette, hex)
		}
	}
	if len(c.palette) > 0 {
		c.color = c.palette[0]
	}
	return c
}

// SetBaseColor sets the garment color. Colors outside the product palette
// are rejected.
func (c *Canvas) SetBaseColor(hex string) error {
	norm, err := NormalizeHex(hex)
	if err != nil {
		return err
	}
	if len(c.palette) > 0 && !c.allowed(norm) {
		return &ValidationError{Field: "color", Reason: norm + " is not offered for this product"}
	}
	c.color = norm
	return nil
}

func (c *Canvas) allowed(hex string) bool {
	for _, p := range c.palette {
		if strings.EqualFold(p, hex) {
			return true
		}
	}
	return false
}

// SetBackgroundImage stores an already accepted encoded image. Size limits
// are enforced at ingestion, see IngestBackground.
func (c *Canvas) SetBackgroundImage(encoded string) {
	c.background = encoded
}

func (c *Canvas) ClearBackgroundImage() {
	c.background = ""
}

func (c *Canvas) SetGridVisible(visible bool) {
	c.grid = visible
}

func (c *Canvas) Color() string           { return c.color }
func (c *Canvas) BackgroundImage() string { return c.background }
func (c *Canvas) GridVisible() bool       { return c.grid }

func (c *Canvas) Palette() []string {
	out := make([]string, len(c.palette))
	copy(out, c.palette)
	return out
}
