// Package cart keeps each shopper's pending items in memory until checkout.
package cart

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"apparel-studio/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrCheckoutInProgress = errors.New("a checkout for this cart is already in progress")
)

type Service struct {
	mu          sync.Mutex
	carts       map[string][]core.CartItem
	checkingOut map[string]bool
}

func NewService() *Service {
	return &Service{
		carts:       make(map[string][]core.CartItem),
		checkingOut: make(map[string]bool),
	}
}

// Reserve snapshots the user's cart for checkout. Until release is called
// further reservations for the same user fail with ErrCheckoutInProgress.
func (s *Service) Reserve(userID string) (items []core.CartItem, release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkingOut[userID] {
		return nil, nil, ErrCheckoutInProgress
	}
	s.checkingOut[userID] = true

	items = make([]core.CartItem, len(s.carts[userID]))
	copy(items, s.carts[userID])

	var once sync.Once
	release = func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.checkingOut, userID)
			s.mu.Unlock()
		})
	}
	return items, release, nil
}

// AddDesign puts one unit of design printed on product into the user's cart.
// The item price is the product's base price at the time it is added.
func (s *Service) AddDesign(userID string, product core.Product, design core.Design) core.CartItem {
	item := core.CartItem{
		ID:       "item-" + ulid.Make().String(),
		Design:   design,
		Product:  product,
		Quantity: 1,
		Price:    product.BasePrice,
	}

	s.mu.Lock()
	s.carts[userID] = append(s.carts[userID], item)
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"item_id":    item.ID,
		"product_id": product.ID,
	}).Info("Design added to cart")
	return item
}

// Items returns a copy of the user's cart, never nil.
func (s *Service) Items(userID string) []core.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]core.CartItem, len(s.carts[userID]))
	copy(items, s.carts[userID])
	return items
}

func (s *Service) SetQuantity(userID, itemID string, quantity int) (core.CartItem, error) {
	if quantity < 1 {
		return core.CartItem{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			return items[i], nil
		}
	}
	return core.CartItem{}, fmt.Errorf("cart item %s: %w", itemID, core.ErrNotFound)
}

func (s *Service) Remove(userID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	for i := range items {
		if items[i].ID == itemID {
			s.carts[userID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("cart item %s: %w", itemID, core.ErrNotFound)
}

// Discard removes the given items, ignoring any that are already gone.
// Items added after a checkout started are left alone.
func (s *Service) Discard(userID string, itemIDs []string) {
	drop := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.carts[userID][:0:0]
	for _, item := range s.carts[userID] {
		if _, ok := drop[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		delete(s.carts, userID)
		return
	}
	s.carts[userID] = kept
}

func (s *Service) Clear(userID string) {
	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()
}

func (s *Service) Subtotal(userID string) float64 {
	return Subtotal(s.Items(userID))
}

// Subtotal sums price times quantity, rounded to cents.
func Subtotal(items []core.CartItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.Price * float64(item.Quantity)
	}
	return RoundCents(sum)
}

func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
