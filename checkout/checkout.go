// Package checkout validates shipping and payment details, simulates the
// card charge and turns a cart into a persisted order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"apparel-studio/cart"
	"apparel-studio/core"
	"apparel-studio/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	DefaultShippingCost = 9.99
	DefaultPaymentDelay = 2 * time.Second

	StatusPaid = "paid"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrInvalid   = errors.New("invalid checkout details")
)

// FieldError names the first offending field of a checkout request.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalid
}

type (
	PaymentInfo struct {
		CardNumber string `json:"cardNumber"`
		ExpiryDate string `json:"expiryDate"`
		CVV        string `json:"cvv"`
		CardName   string `json:"cardName"`
	}

	Request struct {
		Shipping core.ShippingInfo `json:"shipping"`
		Payment  PaymentInfo       `json:"payment"`
	}
)

func ValidateShipping(s core.ShippingInfo) error {
	required := []struct{ field, value string }{
		{"fullName", s.FullName},
		{"address", s.Address},
		{"city", s.City},
		{"postalCode", s.PostalCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &FieldError{Field: r.field, Reason: "is required"}
		}
	}
	return nil
}

func ValidatePayment(p PaymentInfo) error {
	if p.CardNumber == "" || p.ExpiryDate == "" || p.CVV == "" || strings.TrimSpace(p.CardName) == "" {
		return &FieldError{Field: "payment", Reason: "requires every field"}
	}
	if card := strings.ReplaceAll(p.CardNumber, " ", ""); len(card) != 16 || !digits(card) {
		return &FieldError{Field: "cardNumber", Reason: "must have 16 digits"}
	}
	if len(p.CVV) != 3 || !digits(p.CVV) {
		return &FieldError{Field: "cvv", Reason: "must have 3 digits"}
	}
	return nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PaymentMethod describes a validated card for display on the order.
func PaymentMethod(cardNumber string) string {
	card := strings.ReplaceAll(cardNumber, " ", "")
	if len(card) < 4 {
		return "Visa"
	}
	return "Visa ending in " + card[len(card)-4:]
}

type Service struct {
	cart         *cart.Service
	orders       core.OrderStore
	shippingCost float64
	delay        time.Duration
	now          func() time.Time
}

type Option func(*Service)

func WithShippingCost(cost float64) Option {
	return func(s *Service) { s.shippingCost = cost }
}

// WithPaymentDelay sets how long the simulated card charge takes.
func WithPaymentDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(carts *cart.Service, orders core.OrderStore, opts ...Option) *Service {
	s := &Service{
		cart:         carts,
		orders:       orders,
		shippingCost: DefaultShippingCost,
		delay:        DefaultPaymentDelay,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout charges the user's current cart and stores the resulting order.
// Only the items present when checkout started are removed from the cart.
// A second checkout for the same user while one is pending fails with
// cart.ErrCheckoutInProgress.
func (s *Service) Checkout(ctx context.Context, userID string, req Request) (*core.Order, error) {
	log := logrus.WithField("user_id", userID)

	items, release, err := s.cart.Reserve(userID)
	if err != nil {
		metrics.RecordCheckout("conflict", 0)
		return nil, err
	}
	defer release()
	if len(items) == 0 {
		metrics.RecordCheckout("empty", 0)
		return nil, ErrEmptyCart
	}
	if err := ValidateShipping(req.Shipping); err != nil {
		metrics.RecordCheckout("invalid", 0)
		return nil, err
	}
	if err := ValidatePayment(req.Payment); err != nil {
		metrics.RecordCheckout("invalid", 0)
		return nil, err
	}

	if err := s.charge(ctx); err != nil {
		log.WithError(err).Warn("Payment interrupted")
		metrics.RecordCheckout("cancelled", 0)
		return nil, err
	}

	subtotal := cart.Subtotal(items)
	order := &core.Order{
		ID:            "order-" + ulid.Make().String(),
		UserID:        userID,
		Items:         items,
		Subtotal:      subtotal,
		ShippingCost:  s.shippingCost,
		Total:         cart.RoundCents(subtotal + s.shippingCost),
		PaymentMethod: PaymentMethod(req.Payment.CardNumber),
		Shipping:      req.Shipping,
		Status:        StatusPaid,
		CreatedAt:     s.now(),
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		log.WithError(err).Error("Failed to store order")
		metrics.RecordCheckout("failed", 0)
		return nil, fmt.Errorf("store order: %w", err)
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	s.cart.Discard(userID, ids)

	metrics.RecordCheckout(StatusPaid, order.Total)
	log.WithFields(logrus.Fields{"order_id": order.ID, "total": order.Total}).Info("Order placed")
	return order, nil
}

func (s *Service) charge(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
