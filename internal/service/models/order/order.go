package order

import (
	"time"

	"github.com/shopkit/order/internal/service/models/address"
	"github.com/shopkit/order/internal/service/models/article"
	"github.com/shopkit/order/internal/service/models/currency"
	"github.com/shopkit/order/internal/service/models/customer"
)

// Comment is a customer visible note on the order.
type Comment struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryEntry is one line of the internal audit trail.
type HistoryEntry struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// FrontendMessage is a transient notice surfaced to the customer exactly
// once, then discarded.
type FrontendMessage struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusMail records one status-change notification that was sent.
type StatusMail struct {
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// PaidEntry is one recorded payment on the order. TxID deduplicates
// repeated provider callbacks.
type PaidEntry struct {
	TxID        string    `json:"txid"`
	AmountCents int64     `json:"amount"`
	Date        time.Time `json:"date"`
}

// Order is one order at either lifecycle stage. The hash is assigned at
// draft creation, never changes, and joins a draft to the final order it
// is promoted into. Only final orders carry a numeric ID.
type Order struct {
	ID    int64  `json:"id,omitempty"`
	Hash  string `json:"hash"`
	Stage Stage  `json:"stage"`

	// OrderID links a draft to its promoted final order. Once set, the
	// draft row is a read-through proxy and must not be mutated.
	OrderID int64 `json:"orderId,omitempty"`

	InvoiceID int64 `json:"invoiceId,omitempty"`

	CustomerID int64             `json:"customerId"`
	Customer   customer.Customer `json:"customer"`

	InvoiceAddress address.Address `json:"addressInvoice"`
	// DeliveryAddress may be empty, meaning "same as invoice address".
	DeliveryAddress address.Address `json:"addressDelivery"`

	Currency currency.Currency `json:"currency"`
	Articles *article.List     `json:"articles"`

	// Data is the opaque key/value bag other modules attach to.
	Data map[string]any `json:"data,omitempty"`

	PaymentID     int64         `json:"paymentId,omitempty"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	PaidStatus    PaymentStatus `json:"paidStatus"`
	PaidDate      time.Time     `json:"paidDate,omitzero"`
	Paid          []PaidEntry   `json:"paidData"`

	ShippingID     int64 `json:"shippingId,omitempty"`
	ShippingStatus int   `json:"shippingStatus,omitempty"`

	Status     int  `json:"status"`
	Successful bool `json:"successful"`

	// NoAutoInvoice suppresses invoice creation on promotion.
	NoAutoInvoice bool `json:"noAutoInvoice,omitempty"`

	CreatedBy int64     `json:"cUser"`
	CreatedAt time.Time `json:"cDate"`

	Comments         []Comment         `json:"comments"`
	History          []HistoryEntry    `json:"history"`
	FrontendMessages []FrontendMessage `json:"frontendMessages"`
	StatusMails      []StatusMail      `json:"statusMails"`
}

// DeliveryAddressOrInvoice returns the delivery address, falling back to
// the invoice address when none is set.
func (o *Order) DeliveryAddressOrInvoice() address.Address {
	if o.DeliveryAddress.IsEmpty() {
		return o.InvoiceAddress
	}

	return o.DeliveryAddress
}

// IsPromoted reports whether a draft already has a final order.
func (o *Order) IsPromoted() bool {
	return o.Stage == StageDraft && o.OrderID != 0
}

// PaidSumCents is the sum of all recorded payments.
func (o *Order) PaidSumCents() int64 {
	var sum int64
	for _, e := range o.Paid {
		sum += e.AmountCents
	}

	return sum
}

// HasPaidEntry reports whether a transaction id was already applied.
func (o *Order) HasPaidEntry(txID string) bool {
	for _, e := range o.Paid {
		if e.TxID == txID {
			return true
		}
	}

	return false
}

func (o *Order) AddComment(msg string) {
	o.Comments = append(o.Comments, Comment{Message: msg, CreatedAt: time.Now()})
}

func (o *Order) AddHistory(msg string) {
	o.History = append(o.History, HistoryEntry{Message: msg, CreatedAt: time.Now()})
}

func (o *Order) AddFrontendMessage(msg string) {
	o.FrontendMessages = append(o.FrontendMessages, FrontendMessage{Message: msg, CreatedAt: time.Now()})
}

func (o *Order) AddStatusMail(recipient, subject, msg string) {
	o.StatusMails = append(o.StatusMails, StatusMail{
		Recipient: recipient,
		Subject:   subject,
		Message:   msg,
		CreatedAt: time.Now(),
	})
}

// PopFrontendMessages returns the pending messages and clears them.
// Delivery is one-shot.
func (o *Order) PopFrontendMessages() []FrontendMessage {
	msgs := o.FrontendMessages
	o.FrontendMessages = nil

	return msgs
}
