package editor

import (
	"bytes"
	"image"
	"image/png"
	"sync"
	"time"

	"apparel-studio/core"
)

// Rendered is delivered to subscribers after every committed change.
type Rendered struct {
	Revision uint64
	Image    *image.RGBA
}

// State is a read-only view of a session for the host surface.
type State struct {
	Elements      []core.DesignElement `json:"elements"`
	SelectedID    string               `json:"selectedId,omitempty"`
	CanvasColor   string               `json:"canvasColor"`
	Palette       []string             `json:"palette"`
	HasBackground bool                 `json:"hasBackground"`
	GridVisible   bool                 `json:"gridVisible"`
	Revision      uint64               `json:"revision"`
}

// Session is one editor instance for one product. Every operation is
// atomic: the element store and canvas are never observed half-updated, and
// each committed change re-renders the preview before subscribers are told.
type Session struct {
	mu         sync.Mutex
	elements   *ElementStore
	canvas     *Canvas
	renderer   *Renderer
	serializer *Serializer
	width      int
	height     int

	revision   uint64
	preview    *image.RGBA
	lastActive time.Time
	now        func() time.Time

	subMu   sync.Mutex
	subs    map[int]func(Rendered)
	nextSub int

	notifyMu  sync.Mutex
	delivered uint64
}

type SessionOption func(*Session)

func WithStore(store *ElementStore) SessionOption {
	return func(s *Session) { s.elements = store }
}

func WithSerializer(ser *Serializer) SessionOption {
	return func(s *Session) { s.serializer = ser }
}

func WithCanvasSize(w, h int) SessionOption {
	return func(s *Session) { s.width, s.height = w, h }
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession opens an empty editor for a product palette.
func NewSession(renderer *Renderer, palette []string, opts ...SessionOption) *Session {
	s := &Session{
		canvas:   NewCanvas(palette),
		renderer: renderer,
		width:    DefaultCanvasWidth,
		height:   DefaultCanvasHeight,
		now:      time.Now,
		subs:     make(map[int]func(Rendered)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.elements == nil {
		s.elements = NewElementStore()
	}
	if s.serializer == nil {
		s.serializer = NewSerializer()
	}
	s.lastActive = s.now()
	s.preview = s.renderer.Render(s.frameLocked())
	return s
}

// Subscribe registers fn for render notifications and returns a function
// that removes it. Notifications arrive one at a time with strictly
// increasing revisions; a render superseded before delivery is dropped.
// fn must not mutate the session.
func (s *Session) Subscribe(fn func(Rendered)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// mutate runs fn under the session lock. When fn reports a change the
// preview is re-rendered and subscribers are notified after unlocking.
func (s *Session) mutate(fn func() bool) {
	s.mu.Lock()
	s.lastActive = s.now()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.revision++
	s.preview = s.renderer.Render(s.frameLocked())
	ev := Rendered{Revision: s.revision, Image: s.preview}
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if ev.Revision <= s.delivered {
		return
	}
	s.delivered = ev.Revision

	s.subMu.Lock()
	subs := make([]func(Rendered), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		sub(ev)
	}
}

func (s *Session) frameLocked() Frame {
	return Frame{
		Elements:        s.elements.Elements(),
		CanvasColor:     s.canvas.Color(),
		BackgroundImage: s.canvas.BackgroundImage(),
		SelectedID:      s.elements.SelectedID(),
		GridVisible:     s.canvas.GridVisible(),
		Width:           s.width,
		Height:          s.height,
	}
}

func (s *Session) AddText(content string, fontSize float64, color string) (id string, err error) {
	s.mutate(func() bool {
		id, err = s.elements.AddText(content, fontSize, color)
		return err == nil
	})
	return id, err
}

func (s *Session) AddSticker(glyph string) (id string, err error) {
	s.mutate(func() bool {
		id, err = s.elements.AddSticker(glyph)
		return err == nil
	})
	return id, err
}

func (s *Session) Update(id string, p Patch) (ok bool) {
	s.mutate(func() bool {
		ok = s.elements.Update(id, p)
		return ok
	})
	return ok
}

func (s *Session) Duplicate(id string) (newID string, ok bool) {
	s.mutate(func() bool {
		newID, ok = s.elements.Duplicate(id)
		return ok
	})
	return newID, ok
}

func (s *Session) Remove(id string) (ok bool) {
	s.mutate(func() bool {
		ok = s.elements.Remove(id)
		return ok
	})
	return ok
}

// Select moves the selection cursor; an empty id clears it.
func (s *Session) Select(id string) {
	s.mutate(func() bool {
		if id == "" {
			s.elements.ClearSelection()
		} else {
			s.elements.Select(id)
		}
		return true
	})
}

func (s *Session) SetBaseColor(hex string) (err error) {
	s.mutate(func() bool {
		err = s.canvas.SetBaseColor(hex)
		return err == nil
	})
	return err
}

func (s *Session) SetBackgroundImage(encoded string) {
	s.mutate(func() bool {
		s.canvas.SetBackgroundImage(encoded)
		return true
	})
}

func (s *Session) ClearBackgroundImage() {
	s.mutate(func() bool {
		s.canvas.ClearBackgroundImage()
		return true
	})
}

func (s *Session) SetGridVisible(visible bool) {
	s.mutate(func() bool {
		s.canvas.SetGridVisible(visible)
		return true
	})
}

// Serialize snapshots the session into a Design. Later edits do not affect
// the returned value.
func (s *Session) Serialize() (core.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()
	return s.serializer.Serialize(s.elements.Elements(), s.canvas.Color(), s.canvas.BackgroundImage())
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Elements:      s.elements.Elements(),
		SelectedID:    s.elements.SelectedID(),
		CanvasColor:   s.canvas.Color(),
		Palette:       s.canvas.Palette(),
		HasBackground: s.canvas.BackgroundImage() != "",
		GridVisible:   s.canvas.GridVisible(),
		Revision:      s.revision,
	}
}

// PreviewPNG returns the latest rendered preview and its revision.
func (s *Session) PreviewPNG() ([]byte, uint64, error) {
	s.mu.Lock()
	img, rev := s.preview, s.revision
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), rev, nil
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
