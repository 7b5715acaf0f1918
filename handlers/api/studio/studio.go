package studio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"apparel-studio/cart"
	"apparel-studio/catalog"
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/metrics"
	"apparel-studio/middleware"
	"apparel-studio/sessions"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// uploadOverhead leaves room for multipart framing around a maximum-size
// background image.
const uploadOverhead = 64 << 10

type (
	sessionResponse struct {
		ID        string       `json:"id"`
		ProductID string       `json:"productId"`
		State     editor.State `json:"state"`
	}

	elementResponse struct {
		ID    string       `json:"id"`
		State editor.State `json:"state"`
	}

	saveResponse struct {
		Design   *core.SavedDesign `json:"design"`
		CartItem core.CartItem     `json:"cartItem"`
	}
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// renderEditError maps editor errors onto HTTP statuses.
func renderEditError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, editor.ErrValidation):
		renderError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound), errors.Is(err, editor.ErrNotFound):
		renderError(w, r, http.StatusNotFound, err.Error())
	default:
		logrus.WithError(err).Error("Editor operation failed")
		renderError(w, r, http.StatusInternalServerError, "Editor operation failed")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		renderError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// withSession resolves {sid} for the authenticated user before calling fn.
func withSession(reg *sessions.Registry, fn func(w http.ResponseWriter, r *http.Request, e *sessions.Entry)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}
		e, err := reg.Get(userID, chi.URLParam(r, "sid"))
		if err != nil {
			renderError(w, r, http.StatusNotFound, "Session not found")
			return
		}
		fn(w, r, e)
	}
}

func HandleOpenSession(reg *sessions.Registry, cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}

		var req struct {
			ProductID string `json:"productId"`
		}
		if !decode(w, r, &req) {
			return
		}
		product, err := cat.Product(req.ProductID)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "Unknown product")
			return
		}

		e := reg.Open(userID, product)
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, sessionResponse{ID: e.ID, ProductID: product.ID, State: e.Session.State()})
	}
}

func HandleGetSession(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		render.JSON(w, r, sessionResponse{ID: e.ID, ProductID: e.Product.ID, State: e.Session.State()})
	})
}

func HandleCloseSession(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		if err := reg.Close(e.UserID, e.ID); err != nil {
			renderEditError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func HandleAddText(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		req := struct {
			Content  string  `json:"content"`
			FontSize float64 `json:"fontSize"`
			Color    string  `json:"color"`
		}{FontSize: catalog.DefaultFontSize, Color: "#000000"}
		if !decode(w, r, &req) {
			return
		}
		if err := catalog.ValidateText(req.Content, req.FontSize, req.Color); err != nil {
			renderEditError(w, r, err)
			return
		}
		color, err := editor.NormalizeHex(req.Color)
		if err != nil {
			renderEditError(w, r, err)
			return
		}

		id, err := e.Session.AddText(req.Content, req.FontSize, color)
		if err != nil {
			renderEditError(w, r, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, elementResponse{ID: id, State: e.Session.State()})
	})
}

// HandleAddSticker accepts only glyphs offered by the catalog's sticker sets.
func HandleAddSticker(reg *sessions.Registry, cat *catalog.Catalog) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		var req struct {
			Glyph string `json:"glyph"`
		}
		if !decode(w, r, &req) {
			return
		}
		if err := cat.ValidateSticker(req.Glyph); err != nil {
			renderEditError(w, r, err)
			return
		}

		id, err := e.Session.AddSticker(req.Glyph)
		if err != nil {
			renderEditError(w, r, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, elementResponse{ID: id, State: e.Session.State()})
	})
}

func HandleUpdateElement(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		var patch editor.Patch
		if !decode(w, r, &patch) {
			return
		}
		if err := catalog.ValidatePatch(patch); err != nil {
			renderEditError(w, r, err)
			return
		}
		if patch.Color != nil {
			color, err := editor.NormalizeHex(*patch.Color)
			if err != nil {
				renderEditError(w, r, err)
				return
			}
			patch.Color = &color
		}

		if !e.Session.Update(chi.URLParam(r, "eid"), patch) {
			renderError(w, r, http.StatusNotFound, "Element not found")
			return
		}
		render.JSON(w, r, e.Session.State())
	})
}

func HandleDuplicateElement(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		id, ok := e.Session.Duplicate(chi.URLParam(r, "eid"))
		if !ok {
			renderError(w, r, http.StatusNotFound, "Element not found")
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, elementResponse{ID: id, State: e.Session.State()})
	})
}

func HandleRemoveElement(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		if !e.Session.Remove(chi.URLParam(r, "eid")) {
			renderError(w, r, http.StatusNotFound, "Element not found")
			return
		}
		render.JSON(w, r, e.Session.State())
	})
}

// HandleSelect moves the selection. A null or empty id clears it.
func HandleSelect(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		var req struct {
			ID *string `json:"id"`
		}
		if !decode(w, r, &req) {
			return
		}

		id := ""
		if req.ID != nil {
			id = *req.ID
		}
		e.Session.Select(id)
		render.JSON(w, r, e.Session.State())
	})
}

func HandleSetColor(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		var req struct {
			Color string `json:"color"`
		}
		if !decode(w, r, &req) {
			return
		}
		if err := e.Session.SetBaseColor(req.Color); err != nil {
			renderEditError(w, r, err)
			return
		}
		render.JSON(w, r, e.Session.State())
	})
}

func HandleSetGrid(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		var req struct {
			Visible bool `json:"visible"`
		}
		if !decode(w, r, &req) {
			return
		}
		e.Session.SetGridVisible(req.Visible)
		render.JSON(w, r, e.Session.State())
	})
}

// HandleSetBackground accepts a multipart upload in the "file" field.
func HandleSetBackground(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		r.Body = http.MaxBytesReader(w, r.Body, editor.MaxBackgroundBytes+uploadOverhead)
		file, _, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				renderError(w, r, http.StatusBadRequest, "invalid backgroundImage: image is larger than 2MB")
				return
			}
			renderError(w, r, http.StatusBadRequest, "A file field is required")
			return
		}
		defer file.Close()

		encoded, err := editor.IngestBackground(file)
		if err != nil {
			renderEditError(w, r, err)
			return
		}
		e.Session.SetBackgroundImage(encoded)
		render.JSON(w, r, e.Session.State())
	})
}

func HandleClearBackground(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		e.Session.ClearBackgroundImage()
		render.JSON(w, r, e.Session.State())
	})
}

func HandlePreview(reg *sessions.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, e *sessions.Entry) {
		data, rev, err := e.Session.PreviewPNG()
		if err != nil {
			renderEditError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Revision", strconv.FormatUint(rev, 10))
		w.Write(data)
	})
}

// HandleSave serialises the session, stores the design, adds it to the cart
// and closes the session. The session is claimed before anything is written,
// so a session turns into at most one design; it is put back if storing fails.
func HandleSave(reg *sessions.Registry, designs core.DesignStore, carts *cart.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			renderError(w, r, http.StatusUnauthorized, "User claims not found")
			return
		}
		e, err := reg.Take(userID, chi.URLParam(r, "sid"))
		if err != nil {
			renderError(w, r, http.StatusNotFound, "Session not found")
			return
		}

		design, err := e.Session.Serialize()
		if err != nil {
			reg.Restore(e)
			renderEditError(w, r, err)
			return
		}

		saved := &core.SavedDesign{
			ID:        design.ID,
			UserID:    e.UserID,
			ProductID: e.Product.ID,
			Design:    design,
			CreatedAt: design.CreatedAt,
		}
		if err := designs.SaveDesign(r.Context(), saved); err != nil {
			reg.Restore(e)
			logrus.WithFields(logrus.Fields{
				"error":      err,
				"userID":     e.UserID,
				"session_id": e.ID,
			}).Error("Failed to save design")
			renderError(w, r, http.StatusInternalServerError, "Failed to save design")
			return
		}
		metrics.RecordDesignSaved(e.Product.ID)

		item := carts.AddDesign(e.UserID, e.Product, design)
		reg.Retire(e)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, saveResponse{Design: saved, CartItem: item})
	}
}
