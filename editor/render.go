package editor

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"

	"apparel-studio/core"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	GridCellSize = 20
	GridColor    = "#E5E7EB"

	HighlightColor = "#8B5CF6"
	highlightWidth = 2

	// The outline is a fixed placeholder box, not real glyph metrics.
	highlightPad      = 5
	highlightBoxWidth = 100

	defaultFontSize = 48

	// Font sizes are rounded to this step before a face is looked up.
	fontSizeStep   = 0.5
	maxCachedFaces = 32

	maxCachedBackgrounds = 4
)

// Frame is everything the renderer needs. Rendering a frame has no effect
// on the model it was taken from.
type Frame struct {
	Elements        []core.DesignElement
	CanvasColor     string
	BackgroundImage string
	SelectedID      string
	GridVisible     bool
	Width           int
	Height          int
}

type backgroundKey struct {
	uri  string
	size image.Point
}

// Renderer rasterises frames. Faces are cached per rounded font size and
// the most recently decoded backgrounds are kept so re-renders do not
// decode them again. Both caches are bounded.
type Renderer struct {
	mu    sync.Mutex
	font  *opentype.Font
	faces map[float64]font.Face

	backgrounds map[backgroundKey]*image.RGBA
	bgOrder     []backgroundKey
}

func NewRenderer() (*Renderer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{
		font:        f,
		faces:       make(map[float64]font.Face),
		backgrounds: make(map[backgroundKey]*image.RGBA),
	}, nil
}

// Render paints a frame: base color and background, grid, elements in
// order, then the selection outline.
func (r *Renderer) Render(f Frame) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultCanvasWidth, DefaultCanvasHeight
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	base, err := ParseHex(f.CanvasColor)
	if err != nil {
		base = mustParseHex(DefaultCanvasColor)
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(base), image.Point{}, draw.Src)

	if f.BackgroundImage != "" {
		if bg := r.background(f.BackgroundImage, w, h); bg != nil {
			draw.Draw(dst, dst.Bounds(), bg, image.Point{}, draw.Over)
		}
	}

	if f.GridVisible {
		drawGrid(dst, mustParseHex(GridColor))
	}

	var selected *core.DesignElement
	for i := range f.Elements {
		el := &f.Elements[i]
		r.drawElement(dst, el)
		if f.SelectedID != "" && el.ID == f.SelectedID {
			selected = el
		}
	}

	if selected != nil {
		size := selected.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		x := int(math.Round(selected.X)) - highlightPad
		y := int(math.Round(selected.Y)) - highlightPad
		box := image.Rect(x, y, x+highlightBoxWidth, y+int(math.Round(size))+2*highlightPad)
		strokeRect(dst, box, highlightWidth, mustParseHex(HighlightColor))
	}
	return dst
}

func (r *Renderer) face(size float64) (font.Face, error) {
	size = math.Round(size/fontSizeStep) * fontSizeStep
	if size <= 0 {
		size = defaultFontSize
	}
	if face, ok := r.faces[size]; ok {
		return face, nil
	}
	if len(r.faces) >= maxCachedFaces {
		for _, f := range r.faces {
			f.Close()
		}
		r.faces = make(map[float64]font.Face)
	}
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	r.faces[size] = face
	return face, nil
}

func (r *Renderer) drawElement(dst *image.RGBA, el *core.DesignElement) {
	face, err := r.face(el.FontSize)
	if err != nil {
		logrus.WithFields(logrus.Fields{"element_id": el.ID, "font_size": el.FontSize}).WithError(err).Warn("Skipping element with unusable font size")
		return
	}
	fg, err := ParseHex(el.Color)
	if err != nil {
		fg = color.RGBA{A: 0xff}
	}
	opacity := math.Max(0, math.Min(1, el.Opacity))
	src := image.NewUniform(color.NRGBA{R: fg.R, G: fg.G, B: fg.B, A: uint8(math.Round(opacity * 0xff))})

	// Anchor the glyph box's top-left corner at (X, Y).
	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(math.Round(el.X * 64)),
			Y: fixed.Int26_6(math.Round(el.Y*64)) + face.Metrics().Ascent,
		},
	}
	d.DrawString(el.Content)
}

// background decodes the data URI and scales it to cover the canvas,
// centred. Decode failures are logged and the image is skipped.
func (r *Renderer) background(uri string, w, h int) *image.RGBA {
	key := backgroundKey{uri: uri, size: image.Pt(w, h)}
	if img, ok := r.backgrounds[key]; ok {
		return img
	}
	img, err := decodeDataURI(uri)
	if err != nil {
		logrus.WithError(err).Warn("Failed to decode background image")
		return nil
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}

	var scaled *image.RGBA
	if b.Dx() == w && b.Dy() == h {
		scaled = clone.AsRGBA(img)
	} else {
		scale := math.Max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
		sw := int(math.Ceil(float64(b.Dx()) * scale))
		sh := int(math.Ceil(float64(b.Dy()) * scale))
		scaled = transform.Resize(img, sw, sh, transform.Linear)
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	offset := image.Pt((scaled.Bounds().Dx()-w)/2, (scaled.Bounds().Dy()-h)/2)
	draw.Draw(out, out.Bounds(), scaled, scaled.Bounds().Min.Add(offset), draw.Src)

	r.cacheBackground(key, out)
	return out
}

func (r *Renderer) cacheBackground(key backgroundKey, img *image.RGBA) {
	if len(r.bgOrder) >= maxCachedBackgrounds {
		delete(r.backgrounds, r.bgOrder[0])
		r.bgOrder = r.bgOrder[1:]
	}
	r.backgrounds[key] = img
	r.bgOrder = append(r.bgOrder, key)
}

func drawGrid(dst *image.RGBA, c color.RGBA) {
	b := dst.Bounds()
	line := image.NewUniform(c)
	for x := b.Min.X; x < b.Max.X; x += GridCellSize {
		draw.Draw(dst, image.Rect(x, b.Min.Y, x+1, b.Max.Y), line, image.Point{}, draw.Src)
	}
	for y := b.Min.Y; y < b.Max.Y; y += GridCellSize {
		draw.Draw(dst, image.Rect(b.Min.X, y, b.Max.X, y+1), line, image.Point{}, draw.Src)
	}
}

// strokeRect draws an outline of the given width centred on r's edges.
func strokeRect(dst *image.RGBA, r image.Rectangle, width int, c color.RGBA) {
	half := width / 2
	in := image.NewUniform(c)
	bands := []image.Rectangle{
		image.Rect(r.Min.X-half, r.Min.Y-half, r.Max.X+half, r.Min.Y+width-half),
		image.Rect(r.Min.X-half, r.Max.Y-half, r.Max.X+half, r.Max.Y+width-half),
		image.Rect(r.Min.X-half, r.Min.Y-half, r.Min.X+width-half, r.Max.Y+half),
		image.Rect(r.Max.X-half, r.Min.Y-half, r.Max.X+width-half, r.Max.Y+half),
	}
	for _, band := range bands {
		draw.Draw(dst, band.Intersect(dst.Bounds()), in, image.Point{}, draw.Src)
	}
}

// EncodePNG renders f and writes it as PNG.
func (r *Renderer) EncodePNG(w io.Writer, f Frame) error {
	return png.Encode(w, r.Render(f))
}
