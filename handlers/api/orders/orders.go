package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"apparel-studio/cart"
	"apparel-studio/checkout"
	"apparel-studio/core"
	"apparel-studio/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// HandleCheckout turns the caller's cart into a paid order.
func HandleCheckout(svc *checkout.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}

		var req checkout.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}

		order, err := svc.Checkout(r.Context(), userID, req)
		switch {
		case err == nil:
		case errors.Is(err, checkout.ErrEmptyCart), errors.Is(err, checkout.ErrInvalid):
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, cart.ErrCheckoutInProgress):
			renderError(w, r, http.StatusConflict, err.Error())
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			renderError(w, r, http.StatusRequestTimeout, "Payment was interrupted")
			return
		default:
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": userID,
			}).Error("Checkout failed")
			renderError(w, r, http.StatusInternalServerError, "Checkout failed")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, order)
	}
}

func HandleListOrders(store core.OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}

		orders, err := store.ListOrders(r.Context(), userID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": userID,
			}).Error("Failed to list orders")
			renderError(w, r, http.StatusInternalServerError, "Failed to list orders")
			return
		}

		if orders == nil {
			orders = []*core.Order{}
		}
		render.JSON(w, r, orders)
	}
}

func HandleGetOrder(store core.OrderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}

		id := chi.URLParam(r, "id")
		order, err := store.GetOrder(r.Context(), userID, id)
		if errors.Is(err, core.ErrNotFound) {
			renderError(w, r, http.StatusNotFound, "Order not found")
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": userID,
				"id":     id,
			}).Error("Failed to get order")
			renderError(w, r, http.StatusInternalServerError, "Failed to get order")
			return
		}
		render.JSON(w, r, order)
	}
}
