package fake

import (
	"context"
	"sync"

	"github.com/slok/ordersaga/internal/provider"
)

// Membership is an in-memory provider.Membership, registrations are idempotent.
type Membership struct {
	mu      sync.Mutex
	members map[string]bool
}

var _ provider.Membership = &Membership{}

// NewMembership returns an empty membership registry.
func NewMembership() *Membership {
	return &Membership{members: map[string]bool{}}
}

func (m *Membership) Register(ctx context.Context, customerID, offerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[customerID+"/"+offerID] = true
	return nil
}

func (m *Membership) Unregister(ctx context.Context, customerID, offerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, customerID+"/"+offerID)
	return nil
}

// IsMember returns true if the customer is registered in the offer.
func (m *Membership) IsMember(customerID, offerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[customerID+"/"+offerID]
}
