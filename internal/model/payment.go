package model

import "fmt"

// PaymentMethod is the closed set of payment methods a transaction can be paid with.
type PaymentMethod string

const (
	PaymentMethodCreditCard  PaymentMethod = "CreditCard"
	PaymentMethodMovieTicket PaymentMethod = "MovieTicket"
	// PaymentMethodAccount is a point account transfer.
	PaymentMethodAccount PaymentMethod = "Account"
)

// AllPaymentMethods lists every payment method, mapping tables are checked against it.
var AllPaymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodMovieTicket,
	PaymentMethodAccount,
}

// Validate checks the payment method is a known one.
func (p PaymentMethod) Validate() error {
	for _, m := range AllPaymentMethods {
		if p == m {
			return nil
		}
	}
	return fmt.Errorf("unknown payment method %q: %w", p, ErrArgument)
}

// OfferType is the closed set of offer kinds that can be reserved.
type OfferType string

const (
	// OfferTypeEventReservation is a seat on a screening event.
	OfferTypeEventReservation OfferType = "EventReservation"
	OfferTypeProduct          OfferType = "Product"
	// OfferTypeMembership is a membership service that gets registered on the customer.
	OfferTypeMembership OfferType = "Membership"
)

// AllOfferTypes lists every offer type.
var AllOfferTypes = []OfferType{
	OfferTypeEventReservation,
	OfferTypeProduct,
	OfferTypeMembership,
}

// Validate checks the offer type is a known one.
func (o OfferType) Validate() error {
	for _, t := range AllOfferTypes {
		if o == t {
			return nil
		}
	}
	return fmt.Errorf("unknown offer type %q: %w", o, ErrArgument)
}

// PaymentStatus tells if an authorized payment still needs settlement.
type PaymentStatus string

const (
	PaymentStatusDue      PaymentStatus = "PaymentDue"
	PaymentStatusComplete PaymentStatus = "PaymentComplete"
)
