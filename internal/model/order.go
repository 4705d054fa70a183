package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPriceCurrency is the currency prices are expressed in.
const DefaultPriceCurrency = "JPY"

// Order is the result of a confirmed place order transaction.
type Order struct {
	OrderNumber        string          `json:"orderNumber"`
	ConfirmationNumber string          `json:"confirmationNumber,omitempty"`
	Customer           Party           `json:"customer"`
	Seller             Party           `json:"seller"`
	Price              decimal.Decimal `json:"price"`
	PriceCurrency      string          `json:"priceCurrency"`
	AcceptedOffers     []AcceptedOffer `json:"acceptedOffers"`
	PaymentMethods     []OrderPayment  `json:"paymentMethods"`
	OrderDate          time.Time       `json:"orderDate"`
}

// AcceptedOffer is an offer reserved for the order.
type AcceptedOffer struct {
	ActionID       string             `json:"actionId"`
	Offer          OfferAuthorization `json:"offer"`
	ReservationRef string             `json:"reservationRef"`
}

// OrderPayment is a payment used on the order.
type OrderPayment struct {
	ActionID              string          `json:"actionId"`
	Method                PaymentMethod   `json:"method"`
	AccountID             string          `json:"accountId,omitempty"`
	PendingTransactionRef string          `json:"pendingTransactionRef"`
	Amount                decimal.Decimal `json:"amount"`
}

// PotentialActions is the declarative tree of side effects captured at confirm time.
type PotentialActions struct {
	Pay               []PayAction           `json:"pay,omitempty"`
	SendOrder         []SendOrderAction     `json:"sendOrder,omitempty"`
	RegisterService   []ServiceAction       `json:"registerService,omitempty"`
	Refund            []PayAction           `json:"refund,omitempty"`
	CancelReservation []SendOrderAction     `json:"cancelReservation,omitempty"`
	UnRegisterService []ServiceAction       `json:"unRegisterService,omitempty"`
	MoneyTransfer     []MoneyTransferAction `json:"moneyTransfer,omitempty"`
	SendEmailMessage  []EmailMessage        `json:"sendEmailMessage,omitempty"`
}

// PayAction settles (or refunds) one authorized payment.
type PayAction struct {
	ActionID              string          `json:"actionId"`
	Method                PaymentMethod   `json:"method"`
	PendingTransactionRef string          `json:"pendingTransactionRef"`
	Amount                decimal.Decimal `json:"amount"`
}

// SendOrderAction confirms (or cancels) one reservation.
type SendOrderAction struct {
	ActionID       string `json:"actionId"`
	ReservationRef string `json:"reservationRef"`
}

// ServiceAction registers (or unregisters) a membership service on the customer.
type ServiceAction struct {
	ActionID   string `json:"actionId"`
	OfferID    string `json:"offerId"`
	CustomerID string `json:"customerId"`
}

// MoneyTransferAction settles one point transfer.
type MoneyTransferAction struct {
	ActionID              string          `json:"actionId"`
	PendingTransactionRef string          `json:"pendingTransactionRef"`
	Amount                decimal.Decimal `json:"amount"`
	ToAccountID           string          `json:"toAccountId"`
}

// EmailMessage is a notification to be sent to the customer.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}
