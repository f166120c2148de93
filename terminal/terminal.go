package terminal

import (
	"context"
	"fmt"
	"sync"

	"github.com/angzarr-io/pos/catalog"
	checkout "github.com/angzarr-io/pos/checkout/logic"
	"github.com/angzarr-io/pos/loyalty"
	loyaltylogic "github.com/angzarr-io/pos/loyalty/logic"
	order "github.com/angzarr-io/pos/order/logic"
	"github.com/angzarr-io/pos/pos"
	pricing "github.com/angzarr-io/pos/pricing/logic"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Error messages raised by the terminal.
const (
	ErrMsgItemNotFound     = "Cart line does not exist"
	ErrMsgNoUpgradePending = "No tier upgrade is pending"
	ErrMsgCardNotFound     = "Loyalty card not found"
	ErrMsgStaffRequired    = "Staff id is required"
	ErrMsgPaymentStale     = "Payment does not match the balance due"
)

// LoyaltyService is the loyalty surface the terminal needs.
type LoyaltyService interface {
	Lookup(ctx context.Context, code string) (*loyaltylogic.Profile, bool, error)
	Earn(ctx context.Context, customerID, orderID string, subtotal decimal.Decimal) (*loyalty.Accrual, error)
	ConfirmUpgrade(ctx context.Context, pending loyaltylogic.UpgradePending, cardCode string) (*loyaltylogic.Profile, error)
	Tier(profile *loyaltylogic.Profile) (loyaltylogic.Tier, bool)
	Perks(profile *loyaltylogic.Profile) []pricing.Perk
}

// SnapshotStore persists the serialized state under a key.
type SnapshotStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, bool, error)
}

// OrderSink receives every created or changed order.
type OrderSink interface {
	SaveOrder(ctx context.Context, o order.SavedOrder) error
}

// Config is the till's identity and tax setup.
type Config struct {
	StoreID     string
	TerminalID  string
	SnapshotKey string
	TaxRate     decimal.Decimal
}

// Terminal serializes every state transition of one till.
type Terminal struct {
	mu        sync.Mutex
	state     *State
	cfg       Config
	calc      pricing.Calculator
	loyalty   LoyaltyService
	snapshots SnapshotStore
	sink      OrderSink
	clock     pos.Clock
	logger    *zap.Logger
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithSnapshots persists the state on every change.
func WithSnapshots(store SnapshotStore) Option {
	return func(t *Terminal) { t.snapshots = store }
}

// WithSink pushes created and changed orders.
func WithSink(sink OrderSink) Option {
	return func(t *Terminal) { t.sink = sink }
}

// WithClock overrides the wall clock.
func WithClock(clock pos.Clock) Option {
	return func(t *Terminal) { t.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Terminal) { t.logger = logger }
}

// WithTaxEnabled sets the tax flag of a fresh state. A restored snapshot
// keeps its own flag.
func WithTaxEnabled(enabled bool) Option {
	return func(t *Terminal) { t.state.TaxEnabled = enabled }
}

// New creates a terminal with a fresh state.
func New(cfg Config, svc LoyaltyService, opts ...Option) *Terminal {
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = fmt.Sprintf("pos_state_v%d", SchemaVersion)
	}
	t := &Terminal{
		state:   InitialState(),
		cfg:     cfg,
		calc:    pricing.NewCalculator(cfg.TaxRate),
		loyalty: svc,
		clock:   pos.SystemClock{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Restore rehydrates from the snapshot store. A missing snapshot keeps the
// fresh state; an unreadable one is logged and discarded.
func (t *Terminal) Restore(ctx context.Context) error {
	if t.snapshots == nil {
		return nil
	}
	data, ok, err := t.snapshots.Load(ctx, t.cfg.SnapshotKey)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	state, err := DecodeSnapshot(data)
	if err != nil {
		t.logger.Warn("discarding unreadable snapshot", zap.Error(err))
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.logger.Info("terminal state restored",
		zap.Int("active_orders", len(state.Active)),
		zap.Int("completed_orders", len(state.Completed)),
		zap.Int("cart_items", len(state.Items)))
	return nil
}

// Snapshot returns a copy of the current state.
func (t *Terminal) Snapshot() *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// persist must be called with the lock held. Snapshot failures never undo
// the transition.
func (t *Terminal) persist(ctx context.Context) {
	if t.snapshots == nil {
		return
	}
	data, err := EncodeSnapshot(t.state)
	if err != nil {
		t.logger.Warn("failed to encode snapshot", zap.Error(err))
		return
	}
	if err := t.snapshots.Save(ctx, t.cfg.SnapshotKey, data); err != nil {
		t.logger.Warn("failed to save snapshot", zap.Error(err))
	}
}

func (t *Terminal) push(ctx context.Context, o order.SavedOrder) {
	if t.sink == nil {
		return
	}
	if err := t.sink.SaveOrder(ctx, o); err != nil {
		t.logger.Warn("order sync deferred", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (t *Terminal) perks() []pricing.Perk {
	if t.state.LoyaltyProfile == nil || t.loyalty == nil {
		return nil
	}
	return t.loyalty.Perks(t.state.LoyaltyProfile)
}

func (t *Terminal) reprice(items []catalog.OrderItem) []catalog.OrderItem {
	return pricing.ApplyPerks(items, t.perks())
}

// AddItem appends a cart line and reprices the cart.
func (t *Terminal) AddItem(ctx context.Context, item catalog.OrderItem) *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if item.UniqueID == "" {
		item.UniqueID = pos.NewID()
	}
	t.state.Items = t.reprice(append(t.state.Items, item.Clone()))
	t.persist(ctx)
	return t.state.Clone()
}

// RemoveItem drops a cart line.
func (t *Terminal) RemoveItem(ctx context.Context, uniqueID string) (*State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := make([]catalog.OrderItem, 0, len(t.state.Items))
	for _, item := range t.state.Items {
		if item.UniqueID != uniqueID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(t.state.Items) {
		return nil, pos.NewNotFoundf("%s: %s", ErrMsgItemNotFound, uniqueID)
	}
	t.state.Items = t.reprice(kept)
	t.persist(ctx)
	return t.state.Clone(), nil
}

// UpdateItem replaces a cart line with the same unique id.
func (t *Terminal) UpdateItem(ctx context.Context, item catalog.OrderItem) (*State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	found := false
	items := catalog.CloneItems(t.state.Items)
	for i := range items {
		if items[i].UniqueID == item.UniqueID {
			items[i] = item.Clone()
			found = true
		}
	}
	if !found {
		return nil, pos.NewNotFoundf("%s: %s", ErrMsgItemNotFound, item.UniqueID)
	}
	t.state.Items = t.reprice(items)
	t.persist(ctx)
	return t.state.Clone(), nil
}

// SetOrderType selects the service channel.
func (t *Terminal) SetOrderType(ctx context.Context, orderType order.OrderType) (*State, error) {
	if !orderType.Valid() {
		return nil, pos.NewInvalidArgument(order.ErrMsgOrderTypeInvalid)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.OrderType = orderType
	t.persist(ctx)
	return t.state.Clone(), nil
}

// SetCustomer attaches or clears the walk-in customer.
func (t *Terminal) SetCustomer(ctx context.Context, customer *Customer) *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if customer != nil {
		c := *customer
		customer = &c
	}
	t.state.Customer = customer
	t.persist(ctx)
	return t.state.Clone()
}

// SetStaff binds the signed-in staff member to new orders.
func (t *Terminal) SetStaff(ctx context.Context, staffID string) (*State, error) {
	if err := pos.RequirePresent(staffID, ErrMsgStaffRequired); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.StaffID = staffID
	t.persist(ctx)
	return t.state.Clone(), nil
}

// SetTaxEnabled toggles order-level tax.
func (t *Terminal) SetTaxEnabled(ctx context.Context, enabled bool) *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.TaxEnabled = enabled
	t.persist(ctx)
	return t.state.Clone()
}

// LoginLoyalty binds the profile owning an ACTIVE card and reprices the
// cart with its perks. An unknown code reports ok == false.
func (t *Terminal) LoginLoyalty(ctx context.Context, code string) (*State, bool, error) {
	profile, ok, err := t.loyalty.Lookup(ctx, code)
	if err != nil {
		return nil, false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !ok {
		t.logger.Info("loyalty card not found")
		return t.state.Clone(), false, nil
	}
	t.state.LoyaltyProfile = profile
	t.state.Items = t.reprice(t.state.Items)
	t.persist(ctx)
	return t.state.Clone(), true, nil
}

// LogoutLoyalty unbinds the profile and restores undiscounted prices.
func (t *Terminal) LogoutLoyalty(ctx context.Context) *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.LoyaltyProfile = nil
	t.state.Items = pricing.ResetPerks(t.state.Items)
	t.persist(ctx)
	return t.state.Clone()
}

// ConfirmUpgrade accepts the pending upgrade with a new card code. The
// upgraded profile becomes the bound profile.
func (t *Terminal) ConfirmUpgrade(ctx context.Context, cardCode string) (*State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.UpgradePending == nil {
		return nil, pos.NewFailedPrecondition(ErrMsgNoUpgradePending)
	}
	profile, err := t.loyalty.ConfirmUpgrade(ctx, *t.state.UpgradePending, cardCode)
	if err != nil {
		return nil, err
	}
	t.state.LoyaltyProfile = profile
	t.state.UpgradePending = nil
	t.state.Items = t.reprice(t.state.Items)
	t.persist(ctx)
	return t.state.Clone(), nil
}

// DismissUpgrade drops the prompt. The next qualifying order raises it again.
func (t *Terminal) DismissUpgrade(ctx context.Context) *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.UpgradePending = nil
	t.persist(ctx)
	return t.state.Clone()
}

// ClearOrder empties the cart and unbinds the customer. An order under edit
// goes back to the book unchanged.
func (t *Terminal) ClearOrder(ctx context.Context) *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.EditingOrder != nil {
		t.state.Book.CancelEdit(*t.state.EditingOrder)
		t.state.EditingOrder = nil
	}
	t.state.Items = []catalog.OrderItem{}
	t.state.Customer = nil
	t.state.LoyaltyProfile = nil
	t.persist(ctx)
	return t.state.Clone()
}

// MoveOrder reorders the pending queue.
func (t *Terminal) MoveOrder(ctx context.Context, id string, dir order.Direction) (*State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.state.Book.Move(id, dir); err != nil {
		return nil, err
	}
	t.persist(ctx)
	return t.state.Clone(), nil
}

// UpdateOrderStatus advances an order through the kitchen.
func (t *Terminal) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.SavedOrder, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	updated, err := t.state.Book.UpdateStatus(id, status, t.clock.Now())
	if err != nil {
		return order.SavedOrder{}, err
	}
	t.logger.Info("order status changed", zap.String("order_id", id), zap.String("status", string(status)))
	t.persist(ctx)
	t.push(ctx, updated)
	return updated, nil
}

// LoadOrderForEdit moves an active order into the cart.
func (t *Terminal) LoadOrderForEdit(ctx context.Context, id string) (*State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.EditingOrder != nil {
		return nil, pos.NewFailedPrecondition(order.ErrMsgAlreadyEditing)
	}
	editing, err := t.state.Book.ReopenForEdit(id)
	if err != nil {
		return nil, err
	}
	t.state.EditingOrder = &editing
	t.state.Items = catalog.CloneItems(editing.Items)
	if t.state.Items == nil {
		t.state.Items = []catalog.OrderItem{}
	}
	t.state.OrderType = editing.OrderType
	t.persist(ctx)
	return t.state.Clone(), nil
}

// CancelEdit restores the order under edit and empties the cart.
func (t *Terminal) CancelEdit(ctx context.Context) (*State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.EditingOrder == nil {
		return nil, pos.NewFailedPrecondition(order.ErrMsgNotEditing)
	}
	t.state.Book.CancelEdit(*t.state.EditingOrder)
	t.state.EditingOrder = nil
	t.state.Items = []catalog.OrderItem{}
	t.persist(ctx)
	return t.state.Clone(), nil
}

// Totals prices the cart.
func (t *Terminal) Totals() pricing.Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calc.Totals(t.state.Items, t.state.TaxEnabled)
}

// Balance is what the cart still owes, net of any payment already taken on
// the order under edit.
func (t *Terminal) Balance() checkout.Balance {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance()
}

func (t *Terminal) balance() checkout.Balance {
	totals := t.calc.Totals(t.state.Items, t.state.TaxEnabled)
	paid := decimal.Zero
	if t.state.EditingOrder != nil {
		paid = t.state.EditingOrder.AmountPaid
	}
	return checkout.NewBalance(totals.Total, paid)
}

// CheckoutResult is what a finalized checkout produced.
type CheckoutResult struct {
	Order   order.SavedOrder             `json:"order"`
	Accrual *loyalty.Accrual             `json:"accrual,omitempty"`
	Upgrade *loyaltylogic.UpgradePending `json:"upgrade,omitempty"`
}

func (t *Terminal) systemInfo() order.SystemInfo {
	staff := t.state.StaffID
	if staff == "" {
		staff = "unknown_staff"
	}
	return order.SystemInfo{StoreID: t.cfg.StoreID, TerminalID: t.cfg.TerminalID, StaffID: staff}
}

// PaymentBuilder settles the balance the till owes at checkout time.
type PaymentBuilder func(balance checkout.Balance) (order.Payment, error)

// Checkout finalizes the cart with a payment: a new order is placed, or the
// order under edit is merged and put back. A bound loyalty profile earns on
// the subtotal and the ticket keeps the tier it was bought at. The cart,
// customer and profile are cleared afterwards.
//
// The payment must settle the balance as it stands under the lock; one taken
// against an earlier cart fails with FAILED_PRECONDITION.
func (t *Terminal) Checkout(ctx context.Context, pay order.Payment, isLoyalty bool) (*CheckoutResult, error) {
	return t.CheckoutWith(ctx, func(checkout.Balance) (order.Payment, error) { return pay, nil }, isLoyalty)
}

// CheckoutWith is Checkout with the payment built from the locked balance.
func (t *Terminal) CheckoutWith(ctx context.Context, build PaymentBuilder, isLoyalty bool) (*CheckoutResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	totals := t.calc.Totals(t.state.Items, t.state.TaxEnabled)
	sub := order.Submission{
		Items:      t.state.Items,
		Subtotal:   totals.Subtotal,
		Tax:        totals.Tax,
		Total:      totals.Total,
		OrderType:  t.state.OrderType,
		SystemInfo: t.systemInfo(),
		IsLoyalty:  isLoyalty,
	}
	editing := t.state.EditingOrder
	if err := sub.Validate(editing == nil); err != nil {
		return nil, err
	}
	balance := t.balance()
	pay, err := build(balance)
	if err != nil {
		return nil, err
	}
	if !pay.Method.Valid() {
		return nil, pos.NewInvalidArgument(order.ErrMsgPaymentMethodReq)
	}
	if !pos.WithinCent(pay.Amount, balance.Due()) {
		return nil, pos.NewFailedPreconditionf("%s: paid %s, due %s",
			ErrMsgPaymentStale, pay.Amount.StringFixed(2), balance.Due().StringFixed(2))
	}

	orderID := t.state.Book.NextID()
	if editing != nil {
		orderID = editing.ID
	}

	result := &CheckoutResult{}
	if profile := t.state.LoyaltyProfile; profile != nil && t.loyalty != nil {
		tier, _ := t.loyalty.Tier(profile)
		accrual, err := t.loyalty.Earn(ctx, profile.ID, orderID, totals.Subtotal)
		if err != nil {
			return nil, err
		}
		result.Accrual = accrual
		result.Upgrade = accrual.Upgrade
		sub.CustomerID = profile.ID
		sub.Loyalty = &order.LoyaltySnapshot{
			TierName:     tier.Name,
			TierColor:    tier.Color,
			PointsEarned: accrual.Transaction.Points,
		}
	}

	var saved order.SavedOrder
	if editing != nil {
		saved, err = t.state.Book.ConfirmEdit(*editing, sub, pay)
	} else {
		saved, err = t.state.Book.Place(sub, pay, t.clock.Now())
	}
	if err != nil {
		return nil, err
	}
	result.Order = saved

	t.state.Items = []catalog.OrderItem{}
	t.state.Customer = nil
	t.state.LoyaltyProfile = nil
	t.state.EditingOrder = nil
	if result.Upgrade != nil {
		t.state.UpgradePending = result.Upgrade
	}

	t.logger.Info("order checked out",
		zap.String("order_id", saved.ID),
		zap.Bool("edit", editing != nil),
		zap.String("total", saved.Total.String()),
		zap.String("payment_status", string(saved.PaymentStatus)))
	t.persist(ctx)
	t.push(ctx, saved)
	return result, nil
}
