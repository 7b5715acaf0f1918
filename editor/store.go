// Package editor implements the garment design editor: an ordered element
// store with a single selection cursor, the canvas state, a deterministic
// renderer and the serializer that snapshots a session into a core.Design.
package editor

import (
	"math/rand"
	"strings"
	"time"

	"apparel-studio/core"

	"github.com/oklog/ulid/v2"
)

const (
	DefaultTextX = 100
	DefaultTextY = 100

	// Stickers land at StickerBase plus a jitter in [0, StickerJitter) on
	// each axis so repeated stickers do not stack exactly.
	StickerBase   = 150
	StickerJitter = 100
	StickerSize   = 64
	StickerColor  = "#000000"

	DuplicateOffset = 20
)

// Patch is a partial update of an element. Nil fields are left unchanged.
// Id and kind cannot be patched.
type Patch struct {
	Content  *string  `json:"content,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	FontSize *float64 `json:"fontSize,omitempty"`
	Color    *string  `json:"color,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty"`
}

func (p Patch) apply(el *core.DesignElement) {
	if p.Content != nil {
		el.Content = *p.Content
	}
	if p.X != nil {
		el.X = *p.X
	}
	if p.Y != nil {
		el.Y = *p.Y
	}
	if p.FontSize != nil {
		el.FontSize = *p.FontSize
	}
	if p.Color != nil {
		el.Color = *p.Color
	}
	if p.Rotation != nil {
		el.Rotation = *p.Rotation
	}
	if p.Opacity != nil {
		el.Opacity = *p.Opacity
	}
}

// StoreOption configures an ElementStore.
type StoreOption func(*ElementStore)

// WithRand sets the random source used for sticker placement.
func WithRand(rnd *rand.Rand) StoreOption {
	return func(s *ElementStore) { s.rnd = rnd }
}

// WithIDSource replaces the element id generator.
func WithIDSource(fn func(kind core.ElementKind) string) StoreOption {
	return func(s *ElementStore) { s.newID = fn }
}

// ElementStore owns the ordered element collection and the selection
// cursor. It is not safe for concurrent use; Session serialises access.
type ElementStore struct {
	elements []core.DesignElement
	selected string
	issued   map[string]struct{}
	rnd      *rand.Rand
	newID    func(kind core.ElementKind) string
}

func NewElementStore(opts ...StoreOption) *ElementStore {
	s := &ElementStore{
		issued: make(map[string]struct{}),
		newID: func(kind core.ElementKind) string {
			return string(kind) + "-" + ulid.Make().String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// mint returns an id that has never been handed out by this store.
func (s *ElementStore) mint(kind core.ElementKind) string {
	for {
		id := s.newID(kind)
		if _, used := s.issued[id]; !used && id != "" {
			s.issued[id] = struct{}{}
			return id
		}
	}
}

func (s *ElementStore) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.elements {
		if s.elements[i].ID == id {
			return i
		}
	}
	return -1
}

// AddText appends a text element at the default anchor and selects it.
// Blank content is rejected and leaves the store untouched.
func (s *ElementStore) AddText(content string, fontSize float64, color string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", &ValidationError{Field: "content", Reason: "text must not be empty"}
	}
	el := core.DesignElement{
		ID:       s.mint(core.KindText),
		Kind:     core.KindText,
		Content:  content,
		X:        DefaultTextX,
		Y:        DefaultTextY,
		FontSize: fontSize,
		Color:    color,
		Rotation: 0,
		Opacity:  1,
	}
	s.elements = append(s.elements, el)
	s.selected = el.ID
	return el.ID, nil
}

// AddSticker appends a sticker glyph near the middle of the canvas and
// selects it.
func (s *ElementStore) AddSticker(glyph string) (string, error) {
	if glyph == "" {
		return "", &ValidationError{Field: "sticker", Reason: "glyph must not be empty"}
	}
	el := core.DesignElement{
		ID:       s.mint(core.KindSticker),
		Kind:     core.KindSticker,
		Content:  glyph,
		X:        StickerBase + s.rnd.Float64()*StickerJitter,
		Y:        StickerBase + s.rnd.Float64()*StickerJitter,
		FontSize: StickerSize,
		Color:    StickerColor,
		Rotation: 0,
		Opacity:  1,
	}
	s.elements = append(s.elements, el)
	s.selected = el.ID
	return el.ID, nil
}

// Update merges p into the element with the given id. It reports false and
// changes nothing when the id is absent.
func (s *ElementStore) Update(id string, p Patch) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	p.apply(&s.elements[i])
	return true
}

// Duplicate copies an element under a fresh id, offset by DuplicateOffset
// on both axes, places it on top and selects it.
func (s *ElementStore) Duplicate(id string) (string, bool) {
	i := s.index(id)
	if i < 0 {
		return "", false
	}
	el := s.elements[i]
	el.ID = s.mint(el.Kind)
	el.X += DuplicateOffset
	el.Y += DuplicateOffset
	s.elements = append(s.elements, el)
	s.selected = el.ID
	return el.ID, true
}

// Remove deletes an element. The selection is cleared only when it pointed
// at the removed element.
func (s *ElementStore) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.elements = append(s.elements[:i:i], s.elements[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	return true
}

// Select moves the cursor. Existence is not checked here; SelectedID treats
// a dangling id as no selection.
func (s *ElementStore) Select(id string) {
	s.selected = id
}

func (s *ElementStore) ClearSelection() {
	s.selected = ""
}

// SelectedID returns the selected element id, or "" when nothing (or an
// element that no longer exists) is selected.
func (s *ElementStore) SelectedID() string {
	if s.index(s.selected) < 0 {
		return ""
	}
	return s.selected
}

// Selected returns the selected element.
func (s *ElementStore) Selected() (core.DesignElement, bool) {
	return s.Get(s.selected)
}

func (s *ElementStore) Get(id string) (core.DesignElement, bool) {
	i := s.index(id)
	if i < 0 {
		return core.DesignElement{}, false
	}
	return s.elements[i], true
}

// Elements returns a copy of the elements in paint order.
func (s *ElementStore) Elements() []core.DesignElement {
	out := make([]core.DesignElement, len(s.elements))
	copy(out, s.elements)
	return out
}

func (s *ElementStore) Len() int {
	return len(s.elements)
}
