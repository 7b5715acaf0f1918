// Package catalog holds the fixed product line, sticker sets and text
// palette offered by the storefront.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"apparel-studio/core"
	"apparel-studio/editor"

	"gopkg.in/yaml.v3"
)

const (
	MaxTextLength   = 50
	MinFontSize     = 16
	MaxFontSize     = 120
	DefaultFontSize = 48
)

//go:embed catalog.yaml
var defaultData []byte

type (
	StickerCategory struct {
		ID     string   `json:"id" yaml:"id"`
		Name   string   `json:"name" yaml:"name"`
		Glyphs []string `json:"glyphs" yaml:"glyphs"`
	}

	NamedColor struct {
		Name  string `json:"name" yaml:"name"`
		Value string `json:"value" yaml:"value"`
	}

	Catalog struct {
		products []core.Product
		byID     map[string]core.Product
		stickers []StickerCategory
		palette  []NamedColor
	}
)

type document struct {
	Products []core.Product    `yaml:"products"`
	Stickers []StickerCategory `yaml:"stickers"`
	Palette  []NamedColor      `yaml:"palette"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultData)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded data is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse builds a catalog from YAML. Every product needs a unique id and at
// least one valid hex colour.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		byID:     make(map[string]core.Product, len(doc.Products)),
		stickers: doc.Stickers,
		palette:  doc.Palette,
	}
	for _, p := range doc.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("product %q has no id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if len(p.Colors) == 0 {
			return nil, fmt.Errorf("product %q has no colors", p.ID)
		}
		for i, hex := range p.Colors {
			norm, err := editor.NormalizeHex(hex)
			if err != nil {
				return nil, fmt.Errorf("product %q: %w", p.ID, err)
			}
			p.Colors[i] = norm
		}
		c.products = append(c.products, p)
		c.byID[p.ID] = p
	}
	return c, nil
}

func (c *Catalog) Products() []core.Product {
	out := make([]core.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (core.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return core.Product{}, fmt.Errorf("product %s: %w", id, core.ErrNotFound)
	}
	return p, nil
}

func (c *Catalog) Stickers() []StickerCategory {
	out := make([]StickerCategory, len(c.stickers))
	copy(out, c.stickers)
	return out
}

func (c *Catalog) Palette() []NamedColor {
	out := make([]NamedColor, len(c.palette))
	copy(out, c.palette)
	return out
}

// ValidateSticker reports whether glyph belongs to one of the sticker sets.
func (c *Catalog) ValidateSticker(glyph string) error {
	if glyph == "" {
		return &editor.ValidationError{Field: "sticker", Reason: "glyph must not be empty"}
	}
	for _, cat := range c.stickers {
		for _, g := range cat.Glyphs {
			if g == glyph {
				return nil
			}
		}
	}
	return &editor.ValidationError{Field: "sticker", Reason: "glyph is not in the sticker catalog"}
}

// ValidateText applies the storefront's limits to a text layer before it is
// handed to the editor.
func ValidateText(content string, fontSize float64, color string) error {
	if n := utf8.RuneCountInString(content); n > MaxTextLength {
		return &editor.ValidationError{Field: "content", Reason: fmt.Sprintf("must be at most %d characters", MaxTextLength)}
	}
	if fontSize < MinFontSize || fontSize > MaxFontSize {
		return &editor.ValidationError{Field: "fontSize", Reason: fmt.Sprintf("must be between %d and %d", MinFontSize, MaxFontSize)}
	}
	if _, err := editor.NormalizeHex(color); err != nil {
		return err
	}
	return nil
}

// ValidatePatch checks the fields a partial element update sets.
func ValidatePatch(p editor.Patch) error {
	if p.Content != nil {
		if strings.TrimSpace(*p.Content) == "" {
			return &editor.ValidationError{Field: "content", Reason: "must not be empty"}
		}
		if utf8.RuneCountInString(*p.Content) > MaxTextLength {
			return &editor.ValidationError{Field: "content", Reason: fmt.Sprintf("must be at most %d characters", MaxTextLength)}
		}
	}
	if p.FontSize != nil && (*p.FontSize < MinFontSize || *p.FontSize > MaxFontSize) {
		return &editor.ValidationError{Field: "fontSize", Reason: fmt.Sprintf("must be between %d and %d", MinFontSize, MaxFontSize)}
	}
	if p.Color != nil {
		if _, err := editor.NormalizeHex(*p.Color); err != nil {
			return err
		}
	}
	if p.Opacity != nil && (*p.Opacity < 0 || *p.Opacity > 1) {
		return &editor.ValidationError{Field: "opacity", Reason: "must be between 0 and 1"}
	}
	return nil
}
