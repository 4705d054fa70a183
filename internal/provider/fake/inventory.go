package fake

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/slok/ordersaga/internal/model"
	"github.com/slok/ordersaga/internal/provider"
)

// ReservationState is the state of a fake reservation.
type ReservationState string

const (
	ReservationHeld      ReservationState = "Held"
	ReservationConfirmed ReservationState = "Confirmed"
	ReservationReleased  ReservationState = "Released"
)

// Reservation is a reservation stored by the fake inventory.
type Reservation struct {
	Ref   string
	Offer model.OfferAuthorization
	State ReservationState
}

// Inventory is an in-memory provider.Inventory. Seats (event + seat) can only
// be held by one active reservation.
type Inventory struct {
	mu           sync.Mutex
	reservations map[string]*Reservation
	slots        map[string]string
	failWith     error
}

var _ provider.Inventory = &Inventory{}

// NewInventory returns an empty fake inventory.
func NewInventory() *Inventory {
	return &Inventory{
		reservations: map[string]*Reservation{},
		slots:        map[string]string{},
	}
}

// FailWith makes every following call fail with err, nil restores it.
func (i *Inventory) FailWith(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.failWith = err
}

func (i *Inventory) Reserve(ctx context.Context, offer model.OfferAuthorization) (*model.ReservationResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.check(ctx); err != nil {
		return nil, err
	}
	if err := offer.Validate(); err != nil {
		return nil, &provider.Error{Kind: provider.KindValidation, Code: "INVALID_OFFER", Message: err.Error()}
	}

	slot := slotKey(offer)
	if slot != "" {
		if _, ok := i.slots[slot]; ok {
			return nil, &provider.Error{Kind: provider.KindConflict, Code: "SEAT_TAKEN", Message: "seat " + slot + " is already reserved"}
		}
	}

	r := &Reservation{Ref: ulid.Make().String(), Offer: offer, State: ReservationHeld}
	i.reservations[r.Ref] = r
	if slot != "" {
		i.slots[slot] = r.Ref
	}

	return &model.ReservationResult{ReservationRef: r.Ref, Price: offer.Price()}, nil
}

func (i *Inventory) Confirm(ctx context.Context, reservationRef string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.check(ctx); err != nil {
		return err
	}
	r, err := i.get(reservationRef)
	if err != nil {
		return err
	}
	switch r.State {
	case ReservationConfirmed:
		return nil
	case ReservationReleased:
		return &provider.Error{Kind: provider.KindConflict, Code: "RELEASED", Message: "reservation " + reservationRef + " was released"}
	}

	r.State = ReservationConfirmed
	return nil
}

func (i *Inventory) Release(ctx context.Context, reservationRef string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.check(ctx); err != nil {
		return err
	}
	r, err := i.get(reservationRef)
	if err != nil {
		return err
	}
	if r.State == ReservationReleased {
		return nil
	}

	r.State = ReservationReleased
	if slot := slotKey(r.Offer); slot != "" && i.slots[slot] == r.Ref {
		delete(i.slots, slot)
	}
	return nil
}

// Reservation returns a copy of a reservation.
func (i *Inventory) Reservation(ref string) (Reservation, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	r, ok := i.reservations[ref]
	if !ok {
		return Reservation{}, false
	}
	return *r, true
}

func (i *Inventory) get(ref string) (*Reservation, error) {
	r, ok := i.reservations[ref]
	if !ok {
		return nil, &provider.Error{Kind: provider.KindValidation, Code: "UNKNOWN_RESERVATION", Message: "reservation " + ref + " does not exist"}
	}
	return r, nil
}

func (i *Inventory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.failWith
}

func slotKey(o model.OfferAuthorization) string {
	if o.SeatID == "" {
		return ""
	}
	return o.EventID + "/" + o.SeatID
}
