// Package logic reconciles what a customer owes with what they hand over:
// balance and refund detection, cash change, tips and split tenders.
// Gating is exposed through CanConfirm and CanFinalize; Finalize only
// errors when a caller skips the gate.
package logic

import (
	"strings"

	order "github.com/angzarr-io/pos/order/logic"
	"github.com/angzarr-io/pos/pos"
	"github.com/shopspring/decimal"
)

// Balance is what is left to settle on an order.
type Balance struct {
	Total       decimal.Decimal `json:"total"`
	AlreadyPaid decimal.Decimal `json:"alreadyPaid"`
}

// NewBalance is the balance of a new order or of an order under edit.
func NewBalance(total, alreadyPaid decimal.Decimal) Balance {
	return Balance{Total: total, AlreadyPaid: alreadyPaid}
}

// Due is total minus what was already paid. Negative means money goes back.
func (b Balance) Due() decimal.Decimal {
	return b.Total.Sub(b.AlreadyPaid)
}

// IsRefund reports a due amount below -0.01.
func (b Balance) IsRefund() bool {
	return b.Due().LessThan(pos.Cent.Neg())
}

// IsZero reports |due| < 0.01.
func (b Balance) IsZero() bool {
	return pos.WithinCent(b.Total, b.AlreadyPaid)
}

// ZeroBalance is the payment recorded when nothing is owed either way.
func ZeroBalance() order.Payment {
	return order.Payment{Method: order.MethodCash, Amount: decimal.Zero, IsFull: true, TipAmount: decimal.Zero}
}

// Standard is a single-method payment.
type Standard struct {
	balance      Balance
	method       order.PaymentMethod
	tendered     decimal.Decimal
	confirmation string
	tip          decimal.Decimal
	keepChange   bool
}

// NewStandard starts a single-method payment.
func NewStandard(balance Balance, method order.PaymentMethod) (*Standard, error) {
	switch method {
	case order.MethodCash, order.MethodCard, order.MethodTransfer:
	default:
		return nil, NewInvalidArgument(ErrMsgMethodInvalid)
	}
	return &Standard{balance: balance, method: method, tendered: decimal.Zero, tip: decimal.Zero}, nil
}

func (s *Standard) Method() order.PaymentMethod { return s.method }
func (s *Standard) Tendered() decimal.Decimal   { return s.tendered }
func (s *Standard) Tip() decimal.Decimal        { return s.tip }
func (s *Standard) KeepChange() bool            { return s.keepChange }

// SetTendered records the cash handed over. With keep-change on, the tip
// follows the new amount.
func (s *Standard) SetTendered(amount decimal.Decimal) error {
	if err := pos.RequireNonNegative(amount, ErrMsgTenderedNegative); err != nil {
		return err
	}
	s.tendered = amount
	if s.keepChange {
		s.tip = s.changeAsTip()
	}
	return nil
}

// SetConfirmation records the card terminal's confirmation number.
func (s *Standard) SetConfirmation(number string) {
	s.confirmation = strings.TrimSpace(number)
}

// SetTip enters a manual tip, cancelling keep-change.
func (s *Standard) SetTip(amount decimal.Decimal) error {
	if err := pos.RequireNonNegative(amount, ErrMsgTipNegative); err != nil {
		return err
	}
	s.keepChange = false
	s.tip = amount
	return nil
}

// ToggleKeepChange turns the change into a tip of max(0, tendered - |due|),
// or clears the tip when switched off.
func (s *Standard) ToggleKeepChange() {
	if s.keepChange {
		s.keepChange = false
		s.tip = decimal.Zero
		return
	}
	s.keepChange = true
	s.tip = s.changeAsTip()
}

func (s *Standard) changeAsTip() decimal.Decimal {
	return decimal.Max(decimal.Zero, s.tendered.Sub(s.balance.Due().Abs()))
}

// TotalCharge is |due| + tip.
func (s *Standard) TotalCharge() decimal.Decimal {
	return s.balance.Due().Abs().Add(s.tip)
}

// Change is tendered - charge for cash and zero otherwise.
func (s *Standard) Change() decimal.Decimal {
	if s.method != order.MethodCash {
		return decimal.Zero
	}
	return s.tendered.Sub(s.TotalCharge())
}

// CanConfirm gates the confirm action.
func (s *Standard) CanConfirm() bool {
	return s.gate() == nil
}

func (s *Standard) gate() error {
	switch s.method {
	case order.MethodCash:
		if s.Change().IsNegative() {
			return NewFailedPrecondition(ErrMsgInsufficientTender)
		}
	case order.MethodCard:
		if s.confirmation == "" {
			return NewFailedPrecondition(ErrMsgConfirmationMissing)
		}
	}
	return nil
}

// Finalize produces the payment handed to the order book.
func (s *Standard) Finalize() (order.Payment, error) {
	if err := s.gate(); err != nil {
		return order.Payment{}, err
	}
	due := s.balance.Due()
	p := order.Payment{
		Method:    s.method,
		Amount:    due,
		IsFull:    true,
		TipAmount: s.tip,
		Tenders:   []order.Tender{{Method: s.method, Amount: due}},
	}
	switch s.method {
	case order.MethodCash:
		tendered := s.tendered
		p.TenderedAmount = &tendered
	case order.MethodCard:
		p.ConfirmationNumber = s.confirmation
	}
	return p, nil
}

// Split is a ledger of partial tenders settling one balance.
type Split struct {
	balance Balance
	tenders []order.Tender
}

// NewSplit starts an empty ledger.
func NewSplit(balance Balance) *Split {
	return &Split{balance: balance}
}

// Add appends a tender. Non-positive amounts and unknown methods are
// ignored and reported with false.
func (s *Split) Add(method order.PaymentMethod, amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	switch method {
	case order.MethodCash, order.MethodCard, order.MethodTransfer:
	default:
		return false
	}
	s.tenders = append(s.tenders, order.Tender{Method: method, Amount: amount})
	return true
}

// Remove drops the tender at index i.
func (s *Split) Remove(i int) error {
	if i < 0 || i >= len(s.tenders) {
		return NewInvalidArgument(ErrMsgTenderIndex)
	}
	s.tenders = append(s.tenders[:i:i], s.tenders[i+1:]...)
	return nil
}

// Tenders returns a copy of the ledger.
func (s *Split) Tenders() []order.Tender {
	return append([]order.Tender(nil), s.tenders...)
}

// Paid sums the ledger.
func (s *Split) Paid() decimal.Decimal {
	total := decimal.Zero
	for _, t := range s.tenders {
		total = total.Add(t.Amount)
	}
	return total
}

// Remaining is max(0, due - paid).
func (s *Split) Remaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, s.balance.Due().Sub(s.Paid()))
}

// Remainder is the remaining amount rounded to the cent, ready to be added
// as the closing tender.
func (s *Split) Remainder() decimal.Decimal {
	return pos.RoundCents(s.Remaining())
}

// CanFinalize reports remaining <= 0.01.
func (s *Split) CanFinalize() bool {
	return s.Remaining().LessThanOrEqual(pos.Cent)
}

// Finalize produces the payment handed to the order book, keeping the
// per-tender breakdown.
func (s *Split) Finalize() (order.Payment, error) {
	if !s.CanFinalize() {
		return order.Payment{}, NewFailedPreconditionf("%s: %s remaining", ErrMsgSplitIncomplete, s.Remaining().StringFixed(2))
	}
	return order.Payment{
		Method:    order.MethodSplit,
		Amount:    s.balance.Due(),
		IsFull:    true,
		TipAmount: decimal.Zero,
		Tenders:   s.Tenders(),
	}, nil
}
