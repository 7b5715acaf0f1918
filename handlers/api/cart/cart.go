package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"apparel-studio/cart"
	"apparel-studio/core"
	"apparel-studio/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type cartResponse struct {
	Items    []core.CartItem `json:"items"`
	Subtotal float64         `json:"subtotal"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func HandleGetCart(carts *cart.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}

		items := carts.Items(userID)
		render.JSON(w, r, cartResponse{Items: items, Subtotal: cart.Subtotal(items)})
	}
}

func HandleUpdateItem(carts *cart.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}

		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		item, err := carts.SetQuantity(userID, chi.URLParam(r, "itemId"), req.Quantity)
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, core.ErrNotFound):
			renderError(w, r, http.StatusNotFound, "Cart item not found")
			return
		}
		render.JSON(w, r, item)
	}
}

func HandleRemoveItem(carts *cart.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}

		if err := carts.Remove(userID, chi.URLParam(r, "itemId")); err != nil {
			renderError(w, r, http.StatusNotFound, "Cart item not found")
			return
		}
		items := carts.Items(userID)
		render.JSON(w, r, cartResponse{Items: items, Subtotal: cart.Subtotal(items)})
	}
}
