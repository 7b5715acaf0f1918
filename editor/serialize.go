package editor

import (
	"fmt"
	"sync"
	"time"

	"apparel-studio/core"

	"github.com/jinzhu/copier"
	"github.com/oklog/ulid/v2"
)

// Serializer turns live editor state into immutable core.Design values.
type Serializer struct {
	mu    sync.Mutex
	now   func() time.Time
	newID func() string
	last  time.Time
}

type SerializerOption func(*Serializer)

// WithClock sets the time source used for CreatedAt.
func WithClock(now func() time.Time) SerializerOption {
	return func(s *Serializer) { s.now = now }
}

func NewSerializer(opts ...SerializerOption) *Serializer {
	s := &Serializer{
		now:   time.Now,
		newID: func() string { return "design-" + ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialize snapshots elements into a new Design. The returned elements
// never alias the input slice. CreatedAt never goes backwards between calls
// on the same serializer.
func (s *Serializer) Serialize(elements []core.DesignElement, canvasColor, backgroundImage string) (core.Design, error) {
	seen := make(map[string]struct{}, len(elements))
	for _, el := range elements {
		if _, dup := seen[el.ID]; dup || el.ID == "" {
			return core.Design{}, fmt.Errorf("%w: element id %q is not unique", ErrInvariant, el.ID)
		}
		seen[el.ID] = struct{}{}
	}

	owned := make([]core.DesignElement, 0, len(elements))
	if len(elements) > 0 {
		if err := copier.CopyWithOption(&owned, elements, copier.Option{DeepCopy: true}); err != nil {
			return core.Design{}, fmt.Errorf("copy elements: %w", err)
		}
	}

	s.mu.Lock()
	createdAt := s.now()
	if createdAt.Before(s.last) {
		createdAt = s.last
	}
	s.last = createdAt
	id := s.newID()
	s.mu.Unlock()

	return core.Design{
		ID:              id,
		CanvasColor:     canvasColor,
		Elements:        owned,
		BackgroundImage: backgroundImage,
		CreatedAt:       createdAt,
	}, nil
}
