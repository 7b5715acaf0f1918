package designs

import (
	"errors"
	"net/http"

	"apparel-studio/core"
	"apparel-studio/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

func HandleListDesigns(store core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		designs, err := store.ListDesigns(r.Context(), userID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": userID,
			}).Error("Failed to list designs")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list designs"})
			return
		}

		if designs == nil {
			designs = []*core.SavedDesign{}
		}
		render.JSON(w, r, designs)
	}
}

func HandleGetDesign(store core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		id := chi.URLParam(r, "id")
		design, err := store.GetDesign(r.Context(), userID, id)
		if errors.Is(err, core.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Design not found"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": userID,
				"id":     id,
			}).Error("Failed to get design")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to get design"})
			return
		}

		render.JSON(w, r, design)
	}
}

func HandleDeleteDesign(store core.DesignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		id := chi.URLParam(r, "id")
		err := store.DeleteDesign(r.Context(), userID, id)
		if errors.Is(err, core.ErrNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Design not found"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": userID,
				"id":     id,
			}).Error("Failed to delete design")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to delete design"})
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
