package logic

import (
	"sort"
	"strconv"
	"time"

	"github.com/angzarr-io/pos/catalog"
	"github.com/angzarr-io/pos/pos"
	"github.com/shopspring/decimal"
)

// orderIDBase offsets sequential order numbers.
const orderIDBase = 100

// Book partitions every order into the active working set and the
// completed archive. An order is in Completed iff its status is Completed.
type Book struct {
	Active    []SavedOrder `json:"activeOrders"`
	Completed []SavedOrder `json:"completedOrders"`
}

// NextID is 100 + |active| + |completed| + 1.
func (b *Book) NextID() string {
	return strconv.Itoa(orderIDBase + len(b.Active) + len(b.Completed) + 1)
}

func (b *Book) activeIndex(id string) int {
	for i := range b.Active {
		if b.Active[i].ID == id {
			return i
		}
	}
	return -1
}

// Find looks an order up in either partition.
func (b *Book) Find(id string) (SavedOrder, bool) {
	if i := b.activeIndex(id); i >= 0 {
		return b.Active[i], true
	}
	for _, o := range b.Completed {
		if o.ID == id {
			return o, true
		}
	}
	return SavedOrder{}, false
}

// Submission is the cart being checked out.
type Submission struct {
	Items      []catalog.OrderItem
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	OrderType  OrderType
	SystemInfo SystemInfo
	IsLoyalty  bool
	CustomerID string
	Loyalty    *LoyaltySnapshot
}

// Validate checks totals and channel. New orders also need at least one
// item; an edit may empty the cart for a full refund.
func (s Submission) Validate(requireItems bool) error {
	if requireItems {
		if err := pos.RequireNotEmpty(s.Items, ErrMsgItemsRequired); err != nil {
			return err
		}
	}
	if s.Subtotal.IsNegative() || s.Tax.IsNegative() || s.Total.IsNegative() {
		return NewInvalidArgument(ErrMsgTotalsNegative)
	}
	if !s.OrderType.Valid() {
		return NewInvalidArgument(ErrMsgOrderTypeInvalid)
	}
	return nil
}

func (s Submission) snapshot() *LoyaltySnapshot {
	if s.Loyalty != nil {
		snap := *s.Loyalty
		return &snap
	}
	if s.IsLoyalty {
		return VIPSnapshot()
	}
	return nil
}

// NewOrder builds a fresh counter order from a submission and its payment.
func NewOrder(id string, sub Submission, pay Payment, now time.Time) SavedOrder {
	status := PaymentPartial
	if pay.IsFull {
		status = PaymentPaid
	}
	return SavedOrder{
		ID:                 id,
		Table:              "Counter",
		SystemInfo:         sub.SystemInfo,
		CreatedAt:          now,
		Items:              catalog.CloneItems(sub.Items),
		Subtotal:           sub.Subtotal,
		Tax:                sub.Tax,
		Total:              sub.Total,
		AmountPaid:         pay.Amount,
		TipAmount:          pay.TipAmount,
		Status:             StatusPending,
		PaymentStatus:      status,
		Method:             pay.Method,
		OrderType:          sub.OrderType,
		ConfirmationNumber: pay.ConfirmationNumber,
		TenderedAmount:     pay.TenderedAmount,
		IsLoyalty:          sub.IsLoyalty || sub.Loyalty != nil,
		CustomerID:         sub.CustomerID,
		LoyaltySnapshot:    sub.snapshot(),
		Tenders:            append([]Tender(nil), pay.Tenders...),
	}
}

// Place assigns the next id to a new order and puts it at the front of the
// active set.
func (b *Book) Place(sub Submission, pay Payment, now time.Time) (SavedOrder, error) {
	if err := sub.Validate(true); err != nil {
		return SavedOrder{}, err
	}
	if !pay.Method.Valid() {
		return SavedOrder{}, NewInvalidArgument(ErrMsgPaymentMethodReq)
	}
	order := NewOrder(b.NextID(), sub, pay, now)
	b.Active = append([]SavedOrder{order.Clone()}, b.Active...)
	return order, nil
}

// MergeEdit folds a new payment and the edited cart into the original order.
// Identity, creation time, lifecycle stamps and system context are kept;
// paid and tip amounts accumulate.
func MergeEdit(original SavedOrder, sub Submission, pay Payment) SavedOrder {
	merged := original.Clone()
	merged.Items = catalog.CloneItems(sub.Items)
	merged.Subtotal = sub.Subtotal
	merged.Tax = sub.Tax
	merged.Total = sub.Total
	merged.AmountPaid = original.AmountPaid.Add(pay.Amount)
	merged.TipAmount = original.TipAmount.Add(pay.TipAmount)
	merged.OrderType = sub.OrderType
	if merged.SystemInfo == (SystemInfo{}) {
		merged.SystemInfo = sub.SystemInfo
	}

	// Refunded means the edit paid money back and nothing is left paid.
	switch {
	case pay.Amount.IsNegative() && pos.WithinCent(merged.AmountPaid, decimal.Zero):
		merged.PaymentStatus = PaymentRefunded
	case merged.AmountPaid.GreaterThanOrEqual(merged.Total.Sub(pos.Cent)):
		merged.PaymentStatus = PaymentPaid
	default:
		merged.PaymentStatus = PaymentPartial
	}

	if pay.Method != "" {
		merged.Method = pay.Method
	}
	if pay.ConfirmationNumber != "" {
		merged.ConfirmationNumber = pay.ConfirmationNumber
	}
	if pay.TenderedAmount != nil && !pay.TenderedAmount.IsZero() {
		v := *pay.TenderedAmount
		merged.TenderedAmount = &v
	}
	merged.IsLoyalty = original.IsLoyalty || sub.IsLoyalty || sub.Loyalty != nil
	if sub.CustomerID != "" {
		merged.CustomerID = sub.CustomerID
	}
	if snap := sub.snapshot(); snap != nil {
		merged.LoyaltySnapshot = snap
	}
	merged.Tenders = append(merged.Tenders, pay.Tenders...)
	return merged
}

// ConfirmEdit merges an edit and reinserts the order at its original
// position by creation time.
func (b *Book) ConfirmEdit(original SavedOrder, sub Submission, pay Payment) (SavedOrder, error) {
	if err := sub.Validate(false); err != nil {
		return SavedOrder{}, err
	}
	merged := MergeEdit(original, sub, pay)
	b.insertSorted(merged.Clone())
	return merged, nil
}

// ReopenForEdit removes an active order from the book and returns it. The
// caller holds it as the editing order until it is confirmed or cancelled.
func (b *Book) ReopenForEdit(id string) (SavedOrder, error) {
	order, ok := b.Find(id)
	if !ok {
		return SavedOrder{}, NewNotFoundf("%s: %s", ErrMsgOrderNotFound, id)
	}
	if err := pos.RequireStatusNot(order.Status, StatusCompleted, ErrMsgOrderCompleted); err != nil {
		return SavedOrder{}, err
	}
	i := b.activeIndex(id)
	if i < 0 {
		return SavedOrder{}, NewFailedPrecondition(ErrMsgOrderCompleted)
	}
	b.Active = append(append([]SavedOrder(nil), b.Active[:i]...), b.Active[i+1:]...)
	return order, nil
}

// CancelEdit puts the untouched order back.
func (b *Book) CancelEdit(editing SavedOrder) {
	b.insertSorted(editing)
}

func (b *Book) insertSorted(order SavedOrder) {
	b.Active = append(b.Active, order)
	sort.SliceStable(b.Active, func(i, j int) bool {
		return b.Active[i].CreatedAt.After(b.Active[j].CreatedAt)
	})
}

// Advance returns o moved to status. Each lifecycle timestamp is written
// only the first time its status is entered; moving backwards is rejected.
func Advance(o SavedOrder, status Status, now time.Time) (SavedOrder, error) {
	if status.Rank() < 0 {
		return SavedOrder{}, NewInvalidArgument(ErrMsgUnknownStatus)
	}
	if status.Rank() < o.Status.Rank() {
		return SavedOrder{}, NewFailedPreconditionf("%s: %s -> %s", ErrMsgStatusBackward, o.Status, status)
	}
	updated := o.Clone()
	updated.Status = status
	stamp := now
	switch status {
	case StatusKitchen:
		if updated.CookingStartedAt == nil {
			updated.CookingStartedAt = &stamp
		}
	case StatusReady:
		if updated.ReadyAt == nil {
			updated.ReadyAt = &stamp
		}
	case StatusCompleted:
		if updated.CompletedAt == nil {
			updated.CompletedAt = &stamp
		}
	}
	return updated, nil
}

// UpdateStatus moves an active order forward. Completing an order stamps it
// and moves it to the front of the archive in the same step.
func (b *Book) UpdateStatus(id string, status Status, now time.Time) (SavedOrder, error) {
	if status.Rank() < 0 {
		return SavedOrder{}, NewInvalidArgument(ErrMsgUnknownStatus)
	}
	i := b.activeIndex(id)
	if i < 0 {
		return SavedOrder{}, NewNotFoundf("%s: %s", ErrMsgOrderNotFound, id)
	}
	updated, err := Advance(b.Active[i], status, now)
	if err != nil {
		return SavedOrder{}, err
	}
	if status == StatusCompleted {
		active := append(append([]SavedOrder(nil), b.Active[:i]...), b.Active[i+1:]...)
		b.Active = active
		b.Completed = append([]SavedOrder{updated}, b.Completed...)
		return updated.Clone(), nil
	}
	b.Active[i] = updated
	return updated.Clone(), nil
}

// Direction is a queue move.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Move swaps a pending order with its pending neighbour. Orders already in
// the kitchen keep their relative order and follow the pending queue. A move
// past either end is a no-op.
func (b *Book) Move(id string, dir Direction) error {
	if dir != Up && dir != Down {
		return NewInvalidArgument(ErrMsgDirectionInvalid)
	}
	i := b.activeIndex(id)
	if i < 0 {
		return NewNotFoundf("%s: %s", ErrMsgOrderNotFound, id)
	}
	if err := pos.RequireStatus(b.Active[i].Status, StatusPending, ErrMsgNotPending); err != nil {
		return err
	}

	var pending, others []SavedOrder
	for _, o := range b.Active {
		if o.IsPending() {
			pending = append(pending, o)
		} else {
			others = append(others, o)
		}
	}

	at := 0
	for k := range pending {
		if pending[k].ID == id {
			at = k
		}
	}
	target := at - 1
	if dir == Down {
		target = at + 1
	}
	if target >= 0 && target < len(pending) {
		pending[at], pending[target] = pending[target], pending[at]
	}

	b.Active = append(pending, others...)
	return nil
}
