package cart

import (
	"testing"

	"apparel-studio/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tshirt = core.Product{ID: "tshirt-1", BasePrice: 19.99, Colors: []string{"#FFFFFF"}}
	hoodie = core.Product{ID: "hoodie-1", BasePrice: 39.99, Colors: []string{"#000000"}}
)

func TestAddDesign(t *testing.T) {
	s := NewService()
	d := core.Design{ID: "design-1", CanvasColor: "#FFFFFF", Elements: []core.DesignElement{}}

	item := s.AddDesign("user-1", tshirt, d)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, 1, item.Quantity)
	assert.InDelta(t, 19.99, item.Price, 1e-9)
	assert.Equal(t, "design-1", item.Design.ID)

	items := s.Items("user-1")
	require.Len(t, items, 1)
	assert.Equal(t, item, items[0])
	assert.Empty(t, s.Items("user-2"))
	assert.NotNil(t, s.Items("user-2"))
}

func TestSetQuantityAndSubtotal(t *testing.T) {
	s := NewService()
	a := s.AddDesign("user-1", tshirt, core.Design{ID: "d1"})
	s.AddDesign("user-1", hoodie, core.Design{ID: "d2"})

	_, err := s.SetQuantity("user-1", a.ID, 3)
	require.NoError(t, err)
	assert.InDelta(t, 99.96, s.Subtotal("user-1"), 1e-9)

	_, err = s.SetQuantity("user-1", a.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.SetQuantity("user-1", "missing", 2)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.SetQuantity("user-2", a.ID, 2)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRemove(t *testing.T) {
	s := NewService()
	a := s.AddDesign("user-1", tshirt, core.Design{ID: "d1"})
	b := s.AddDesign("user-1", hoodie, core.Design{ID: "d2"})
	snapshot := s.Items("user-1")

	require.NoError(t, s.Remove("user-1", a.ID))
	assert.ErrorIs(t, s.Remove("user-1", a.ID), core.ErrNotFound)

	items := s.Items("user-1")
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, snapshot[0].ID)
}

func TestDiscardKeepsNewItems(t *testing.T) {
	s := NewService()
	a := s.AddDesign("user-1", tshirt, core.Design{ID: "d1"})
	late := s.AddDesign("user-1", hoodie, core.Design{ID: "d2"})

	s.Discard("user-1", []string{a.ID, "gone"})
	items := s.Items("user-1")
	require.Len(t, items, 1)
	assert.Equal(t, late.ID, items[0].ID)

	s.Discard("user-1", []string{late.ID})
	assert.Empty(t, s.Items("user-1"))
}

func TestClear(t *testing.T) {
	s := NewService()
	s.AddDesign("user-1", tshirt, core.Design{ID: "d1"})
	s.Clear("user-1")
	assert.Empty(t, s.Items("user-1"))
	assert.Zero(t, s.Subtotal("user-1"))
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 0.3, RoundCents(0.1+0.2))
	assert.Equal(t, 59.98, RoundCents(19.99+39.99))
}

func TestReserve(t *testing.T) {
	s := NewService()
	s.AddDesign("user-1", tshirt, core.Design{ID: "design-1"})

	items, release, err := s.Reserve("user-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, _, err = s.Reserve("user-1")
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	_, releaseOther, err := s.Reserve("user-2")
	require.NoError(t, err)
	releaseOther()

	release()
	release()
	_, release, err = s.Reserve("user-1")
	require.NoError(t, err)
	release()
}
