package catalog

import (
	"strings"
	"testing"

	"apparel-studio/core"
	"apparel-studio/editor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Products(t *testing.T) {
	c := Default()
	products := c.Products()
	require.Len(t, products, 4)

	tshirt, err := c.Product("tshirt-1")
	require.NoError(t, err)
	assert.Equal(t, core.ProductTShirt, tshirt.Type)
	assert.InDelta(t, 19.99, tshirt.BasePrice, 1e-9)
	assert.Equal(t, []string{"#FFFFFF", "#000000", "#1E3A8A", "#DC2626", "#059669"}, tshirt.Colors)

	hoodie, err := c.Product("hoodie-1")
	require.NoError(t, err)
	assert.Equal(t, "#000000", hoodie.Colors[0])
}

func TestDefault_UnknownProduct(t *testing.T) {
	_, err := Default().Product("socks-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDefault_StickersAndPalette(t *testing.T) {
	c := Default()
	stickers := c.Stickers()
	require.Len(t, stickers, 5)
	assert.Equal(t, "anime", stickers[0].ID)
	assert.Contains(t, stickers[4].Glyphs, "🚀")

	palette := c.Palette()
	require.Len(t, palette, 8)
	assert.Equal(t, NamedColor{Name: "Púrpura", Value: "#8B5CF6"}, palette[3])
}

func TestProducts_ReturnsCopy(t *testing.T) {
	c := Default()
	ps := c.Products()
	ps[0].BasePrice = 0

	p, err := c.Product(ps[0].ID)
	require.NoError(t, err)
	assert.NotZero(t, p.BasePrice)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate id": "products:\n  - {id: a, colors: ['#FFFFFF']}\n  - {id: a, colors: ['#FFFFFF']}\n",
		"no colors":    "products:\n  - {id: a}\n",
		"bad color":    "products:\n  - {id: a, colors: ['white']}\n",
		"missing id":   "products:\n  - {name: x, colors: ['#FFFFFF']}\n",
		"not yaml":     "products: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestParse_NormalizesColors(t *testing.T) {
	c, err := Parse([]byte("products:\n  - {id: a, colors: ['#fff', '#1e3a8a']}\n"))
	require.NoError(t, err)

	p, err := c.Product("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"#FFFFFF", "#1E3A8A"}, p.Colors)
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("HELLO", DefaultFontSize, "#000000"))
	assert.NoError(t, ValidateText(strings.Repeat("á", MaxTextLength), MinFontSize, "#fff"))

	assert.ErrorIs(t, ValidateText(strings.Repeat("a", MaxTextLength+1), 48, "#000000"), editor.ErrValidation)
	assert.ErrorIs(t, ValidateText("HI", MinFontSize-1, "#000000"), editor.ErrValidation)
	assert.ErrorIs(t, ValidateText("HI", MaxFontSize+1, "#000000"), editor.ErrValidation)
	assert.ErrorIs(t, ValidateText("HI", 48, "black"), editor.ErrValidation)
}

func TestValidatePatch(t *testing.T) {
	str := func(s string) *string { return &s }
	num := func(f float64) *float64 { return &f }

	assert.NoError(t, ValidatePatch(editor.Patch{}))
	assert.NoError(t, ValidatePatch(editor.Patch{Content: str("BYE"), FontSize: num(120), Color: str("#EC4899"), Opacity: num(0)}))

	bad := map[string]editor.Patch{
		"blank content": {Content: str("  ")},
		"long content":  {Content: str(strings.Repeat("x", MaxTextLength+1))},
		"small font":    {FontSize: num(8)},
		"bad color":     {Color: str("pink")},
		"opacity":       {Opacity: num(1.5)},
	}
	for name, p := range bad {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidatePatch(p), editor.ErrValidation)
		})
	}
}

func TestValidateSticker(t *testing.T) {
	cat := Default()
	assert.NoError(t, cat.ValidateSticker("✨"))
	assert.NoError(t, cat.ValidateSticker("🚀"))

	assert.ErrorIs(t, cat.ValidateSticker(""), editor.ErrValidation)
	assert.ErrorIs(t, cat.ValidateSticker("🦄"), editor.ErrValidation)
	assert.ErrorIs(t, cat.ValidateSticker(strings.Repeat("✨", 500)), editor.ErrValidation)
}
