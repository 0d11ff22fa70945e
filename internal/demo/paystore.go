// Package demo is a small payments API used as a synthesis target: its
// swagger spec is the canonical input for exercising the full configure,
// validate, synthesize cycle against a live server.
package demo

import (
	"fmt"
	"sync"
	"time"
)

// Payment statuses.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusSent      = "SENT"
)

// Payment is one initiated payment.
type Payment struct {
	ID          string     `json:"payment_id"`
	Status      string     `json:"status"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Reference   string     `json:"reference,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// Payout is one sent payout.
type Payout struct {
	ID        string    `json:"payout_id"`
	Status    string    `json:"status"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Recipient string    `json:"recipient"`
	SentAt    time.Time `json:"sent_at"`
}

// PayStore is a concurrency-safe in-memory store for payments and payouts.
// Records are stored in maps keyed by ID with separate slices maintaining
// insertion order for deterministic listing.
type PayStore struct {
	mu         sync.RWMutex
	payments   map[string]*Payment
	payouts    map[string]*Payout
	paymentIDs []string // insertion-order payment IDs
	payoutIDs  []string // insertion-order payout IDs
}

// NewPayStore returns an initialized PayStore ready for use.
func NewPayStore() *PayStore {
	return &PayStore{
		payments: make(map[string]*Payment),
		payouts:  make(map[string]*Payout),
	}
}

// CreatePayment stores a new payment. It returns an error if a payment with
// the same ID already exists.
func (s *PayStore) CreatePayment(p Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID]; exists {
		return fmt.Errorf("payment %q already exists", p.ID)
	}
	s.payments[p.ID] = &p
	s.paymentIDs = append(s.paymentIDs, p.ID)
	return nil
}

// GetPayment returns a deep copy of the payment with the given ID. The
// returned copy is safe to mutate without affecting the store.
func (s *PayStore) GetPayment(id string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %q not found", id)
	}
	return copyPayment(p), nil
}

// UpdatePayment applies fn to the payment identified by id under a write
// lock. The function receives the stored pointer, so mutations apply
// in-place.
func (s *PayStore) UpdatePayment(id string, fn func(*Payment)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return fmt.Errorf("payment %q not found", id)
	}
	fn(p)
	return nil
}

// ListPayments returns deep copies of all payments in insertion order.
func (s *PayStore) ListPayments() []*Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Payment, 0, len(s.paymentIDs))
	for _, id := range s.paymentIDs {
		out = append(out, copyPayment(s.payments[id]))
	}
	return out
}

// CreatePayout stores a new payout.
func (s *PayStore) CreatePayout(p Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payouts[p.ID]; exists {
		return fmt.Errorf("payout %q already exists", p.ID)
	}
	s.payouts[p.ID] = &p
	s.payoutIDs = append(s.payoutIDs, p.ID)
	return nil
}

// GetPayout returns a deep copy of the payout with the given ID.
func (s *PayStore) GetPayout(id string) (*Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payouts[id]
	if !ok {
		return nil, fmt.Errorf("payout %q not found", id)
	}
	cp := *p
	return &cp, nil
}

func copyPayment(p *Payment) *Payment {
	cp := *p
	if p.ProcessedAt != nil {
		t := *p.ProcessedAt
		cp.ProcessedAt = &t
	}
	return &cp
}
