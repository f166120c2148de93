// Package logic holds the order lifecycle: the active/completed book, status
// transitions with their timestamps, edit-in-place and the derived kitchen
// views.
package logic

import (
	"time"

	"github.com/angzarr-io/pos/catalog"
	"github.com/shopspring/decimal"
)

// Status is the kitchen lifecycle of an order. It only moves forward.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusKitchen   Status = "Kitchen"
	StatusReady     Status = "Ready"
	StatusCompleted Status = "Completed"
)

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusKitchen:
		return 1
	case StatusReady:
		return 2
	case StatusCompleted:
		return 3
	}
	return -1
}

// PaymentStatus summarizes how much of the total has been settled.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "Unpaid"
	PaymentPartial  PaymentStatus = "Partial"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

// PaymentMethod is the tender type.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "Cash"
	MethodCard     PaymentMethod = "Card"
	MethodTransfer PaymentMethod = "Transfer"
	// MethodSplit marks a payment settled by several tenders.
	MethodSplit PaymentMethod = "Split"
)

// Valid reports whether m is a known method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodSplit:
		return true
	}
	return false
}

// OrderType is the service channel.
type OrderType string

const (
	DineIn   OrderType = "DineIn"
	Takeout  OrderType = "Takeout"
	Delivery OrderType = "Delivery"
)

// Valid reports whether t is a known channel.
func (t OrderType) Valid() bool {
	switch t {
	case DineIn, Takeout, Delivery:
		return true
	}
	return false
}

// SystemInfo records where and by whom an order was taken.
type SystemInfo struct {
	StoreID    string `json:"storeId"`
	TerminalID string `json:"terminalId"`
	StaffID    string `json:"staffId"`
	ShiftID    string `json:"shiftId,omitempty"`
}

// LoyaltySnapshot freezes the tier shown on the ticket at creation time.
type LoyaltySnapshot struct {
	TierName     string          `json:"tierName"`
	TierColor    string          `json:"tierColor"`
	PointsEarned decimal.Decimal `json:"pointsEarned"`
}

// VIPSnapshot is used when an order is flagged loyalty without a bound profile.
func VIPSnapshot() *LoyaltySnapshot {
	return &LoyaltySnapshot{TierName: "VIP", TierColor: "yellow-400", PointsEarned: decimal.Zero}
}

// Tender is one settled portion of a payment.
type Tender struct {
	Method PaymentMethod   `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// Payment is the finalized outcome of a checkout. Amount is the signed
// portion of the balance settled, excluding tip; it is negative for refunds.
type Payment struct {
	Method             PaymentMethod    `json:"method"`
	Amount             decimal.Decimal  `json:"amount"`
	IsFull             bool             `json:"isFull"`
	ConfirmationNumber string           `json:"confirmationNumber,omitempty"`
	TenderedAmount     *decimal.Decimal `json:"tenderedAmount,omitempty"`
	TipAmount          decimal.Decimal  `json:"tipAmount"`
	Tenders            []Tender         `json:"tenders,omitempty"`
}

// SavedOrder is an order submitted to the kitchen. Its items are a frozen
// snapshot, changed only through an edit cycle.
type SavedOrder struct {
	ID                 string              `json:"id"`
	Table              string              `json:"table"`
	SystemInfo         SystemInfo          `json:"systemInfo"`
	CreatedAt          time.Time           `json:"createdAt"`
	CookingStartedAt   *time.Time          `json:"cookingStartedAt,omitempty"`
	ReadyAt            *time.Time          `json:"readyAt,omitempty"`
	CompletedAt        *time.Time          `json:"completedAt,omitempty"`
	Items              []catalog.OrderItem `json:"items"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	Tax                decimal.Decimal     `json:"tax"`
	Total              decimal.Decimal     `json:"total"`
	AmountPaid         decimal.Decimal     `json:"amountPaid"`
	TipAmount          decimal.Decimal     `json:"tipAmount"`
	Status             Status              `json:"status"`
	PaymentStatus      PaymentStatus       `json:"paymentStatus"`
	Method             PaymentMethod       `json:"method,omitempty"`
	OrderType          OrderType           `json:"orderType"`
	ConfirmationNumber string              `json:"confirmationNumber,omitempty"`
	TenderedAmount     *decimal.Decimal    `json:"tenderedAmount,omitempty"`
	IsLoyalty          bool                `json:"isLoyalty"`
	CustomerID         string              `json:"customerId,omitempty"`
	LoyaltySnapshot    *LoyaltySnapshot    `json:"loyaltySnapshot,omitempty"`
	Tenders            []Tender            `json:"tenders,omitempty"`
}

func (o *SavedOrder) IsPending() bool {
	return o.Status == StatusPending
}

func (o *SavedOrder) IsCompleted() bool {
	return o.Status == StatusCompleted
}

// Clone returns a deep copy.
func (o SavedOrder) Clone() SavedOrder {
	out := o
	out.Items = catalog.CloneItems(o.Items)
	out.Tenders = append([]Tender(nil), o.Tenders...)
	out.CookingStartedAt = cloneTime(o.CookingStartedAt)
	out.ReadyAt = cloneTime(o.ReadyAt)
	out.CompletedAt = cloneTime(o.CompletedAt)
	if o.TenderedAmount != nil {
		v := *o.TenderedAmount
		out.TenderedAmount = &v
	}
	if o.LoyaltySnapshot != nil {
		s := *o.LoyaltySnapshot
		out.LoyaltySnapshot = &s
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CloneOrders deep-copies a list of orders.
func CloneOrders(orders []SavedOrder) []SavedOrder {
	if orders == nil {
		return nil
	}
	out := make([]SavedOrder, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out
}
