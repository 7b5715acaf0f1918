package memory

import (
	"context"
	"fmt"
	"sync"

	"apparel-studio/core"
	"apparel-studio/stores/record"

	"github.com/sirupsen/logrus"
)

// memStore implements DesignStore, OrderStore and UserStore in memory.
type memStore struct {
	mu sync.RWMutex
	// designs and orders are keyed by userID and kept in insertion order.
	designs map[string][]*core.SavedDesign
	orders  map[string][]*core.Order
	// users is keyed by normalised email.
	users map[string]*core.User
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		designs: make(map[string][]*core.SavedDesign),
		orders:  make(map[string][]*core.Order),
		users:   make(map[string]*core.User),
	}
}

// SaveDesign stores a new design. Part of the DesignStore interface.
func (s *memStore) SaveDesign(ctx context.Context, design *core.SavedDesign) error {
	if design.UserID == "" {
		return fmt.Errorf("UserID cannot be empty")
	}
	if design.ID == "" {
		return fmt.Errorf("design ID cannot be empty for save operation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"user_id": design.UserID, "design_id": design.ID})
	for _, d := range s.designs[design.UserID] {
		if d.ID == design.ID {
			log.Warn("Design already exists")
			return fmt.Errorf("design %s: %w", design.ID, core.ErrAlreadyExists)
		}
	}

	stored := *design
	s.designs[design.UserID] = append(s.designs[design.UserID], &stored)
	log.Info("Design saved successfully")
	return nil
}

// ListDesigns returns all designs owned by a user. Part of the DesignStore interface.
func (s *memStore) ListDesigns(ctx context.Context, userID string) ([]*core.SavedDesign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userDesigns := s.designs[userID]
	designs := make([]*core.SavedDesign, 0, len(userDesigns))
	for _, d := range userDesigns {
		c := *d
		designs = append(designs, &c)
	}

	logrus.WithField("user_id", userID).Infof("Listed %d designs", len(designs))
	return designs, nil
}

// GetDesign returns a single design, ensuring it belongs to the user. Part of the DesignStore interface.
func (s *memStore) GetDesign(ctx context.Context, userID, id string) (*core.SavedDesign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})
	for _, d := range s.designs[userID] {
		if d.ID == id {
			c := *d
			log.Info("Design retrieved successfully")
			return &c, nil
		}
	}
	log.Warn("Design not found for user")
	return nil, fmt.Errorf("design %s: %w", id, core.ErrNotFound)
}

// DeleteDesign removes a design, ensuring it belongs to the user. Part of the DesignStore interface.
func (s *memStore) DeleteDesign(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})
	userDesigns := s.designs[userID]
	for i, d := range userDesigns {
		if d.ID == id {
			s.designs[userID] = append(userDesigns[:i:i], userDesigns[i+1:]...)
			log.Info("Design deleted successfully")
			return nil
		}
	}
	log.Warn("Design not found for deletion")
	return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
}

// CreateOrder stores a placed order. Part of the OrderStore interface.
func (s *memStore) CreateOrder(ctx context.Context, order *core.Order) error {
	if order.UserID == "" || order.ID == "" {
		return fmt.Errorf("order requires both ID and UserID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders[order.UserID] {
		if o.ID == order.ID {
			return fmt.Errorf("order %s: %w", order.ID, core.ErrAlreadyExists)
		}
	}
	stored := *order
	s.orders[order.UserID] = append(s.orders[order.UserID], &stored)
	logrus.WithFields(logrus.Fields{"user_id": order.UserID, "order_id": order.ID}).Info("Order created successfully")
	return nil
}

// ListOrders returns a user's orders, oldest first. Part of the OrderStore interface.
func (s *memStore) ListOrders(ctx context.Context, userID string) ([]*core.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*core.Order, 0, len(s.orders[userID]))
	for _, o := range s.orders[userID] {
		c := *o
		orders = append(orders, &c)
	}
	return orders, nil
}

// GetOrder returns one order owned by the user. Part of the OrderStore interface.
func (s *memStore) GetOrder(ctx context.Context, userID, id string) (*core.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders[userID] {
		if o.ID == id {
			c := *o
			return &c, nil
		}
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "order_id": id}).Warn("Order not found for user")
	return nil, fmt.Errorf("order %s: %w", id, core.ErrNotFound)
}

// CreateUser registers an account. Part of the UserStore interface.
func (s *memStore) CreateUser(ctx context.Context, user *core.User) error {
	key := record.NormalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[key]; exists {
		return fmt.Errorf("user %s: %w", key, core.ErrAlreadyExists)
	}
	stored := *user
	s.users[key] = &stored
	logrus.WithField("user_id", user.ID).Info("User created successfully")
	return nil
}

// FindUserByEmail looks an account up case-insensitively. Part of the UserStore interface.
func (s *memStore) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	key := record.NormalizeEmail(email)

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[key]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", key, core.ErrNotFound)
	}
	c := *u
	return &c, nil
}
