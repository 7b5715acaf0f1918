package core

import (
	"context"
	"strings"
	"time"
)

// ElementKind is the kind of a placed design element.
type ElementKind string

const (
	KindText    ElementKind = "text"
	KindSticker ElementKind = "sticker"
	KindImage   ElementKind = "image"
)

// Valid reports whether k is one of the known element kinds.
func (k ElementKind) Valid() bool {
	switch k {
	case KindText, KindSticker, KindImage:
		return true
	}
	return false
}

// UnmarshalText accepts the legacy "emoji" kind, which is rendered exactly
// like text and is stored as such.
func (k *ElementKind) UnmarshalText(b []byte) error {
	v := ElementKind(strings.ToLower(string(b)))
	if v == "emoji" {
		v = KindText
	}
	*k = v
	return nil
}

type (
	// DesignElement is one placed text, sticker or image layer on the canvas.
	DesignElement struct {
		ID       string      `json:"id"`
		Kind     ElementKind `json:"type"`
		Content  string      `json:"content"`
		X        float64     `json:"x"`
		Y        float64     `json:"y"`
		FontSize float64     `json:"fontSize"`
		Color    string      `json:"color"`
		Rotation float64     `json:"rotation"`
		Opacity  float64     `json:"opacity"`
	}

	// Design is an immutable snapshot of an editing session. Elements are
	// in paint order, the last element is drawn on top.
	Design struct {
		ID              string          `json:"id"`
		CanvasColor     string          `json:"canvasColor"`
		Elements        []DesignElement `json:"elements"`
		BackgroundImage string          `json:"backgroundImage,omitempty"`
		CreatedAt       time.Time       `json:"createdAt"`
	}

	// SavedDesign is a Design persisted on behalf of a user for a product.
	SavedDesign struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		ProductID string    `json:"productId"`
		Design    Design    `json:"design"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// DesignStore persists saved designs. All operations are scoped to a user.
	DesignStore interface {
		// SaveDesign stores a new design. ID and UserID must be set.
		SaveDesign(ctx context.Context, design *SavedDesign) error

		// ListDesigns returns all designs owned by a user, oldest first.
		ListDesigns(ctx context.Context, userID string) ([]*SavedDesign, error)

		// GetDesign returns a single design, ensuring it belongs to the user.
		GetDesign(ctx context.Context, userID, id string) (*SavedDesign, error)

		// DeleteDesign removes a design, ensuring it belongs to the user.
		DeleteDesign(ctx context.Context, userID, id string) error
	}
)
