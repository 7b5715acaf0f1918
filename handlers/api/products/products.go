package products

import (
	"errors"
	"net/http"

	"apparel-studio/catalog"
	"apparel-studio/core"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func HandleListProducts(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, cat.Products())
	}
}

func HandleGetProduct(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := cat.Product(chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Product not found"})
				return
			}
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load product"})
			return
		}
		render.JSON(w, r, product)
	}
}

func HandleListStickers(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, cat.Stickers())
	}
}

// HandlePalette returns the text colours and editor limits.
func HandlePalette(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"colors":          cat.Palette(),
			"maxTextLength":   catalog.MaxTextLength,
			"minFontSize":     catalog.MinFontSize,
			"maxFontSize":     catalog.MaxFontSize,
			"defaultFontSize": catalog.DefaultFontSize,
		})
	}
}
