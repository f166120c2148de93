package loyalty

import (
	"context"
	"fmt"
	"sync"

	"github.com/angzarr-io/pos/loyalty/logic"
	"github.com/angzarr-io/pos/pos"
	pricing "github.com/angzarr-io/pos/pricing/logic"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Error messages raised by the service on top of the pure logic.
const (
	ErrMsgCardNotFound = "Loyalty card not found"
	ErrMsgCardTaken    = "Card code already belongs to another customer"
)

// Accrual is the outcome of crediting an order to a profile.
type Accrual struct {
	Profile     *logic.Profile        `json:"profile"`
	Transaction logic.Transaction     `json:"transaction"`
	Upgrade     *logic.UpgradePending `json:"upgrade,omitempty"`
}

// Service applies loyalty commands. Every write appends to the store and the
// returned profile is rebuilt from the resulting log.
type Service struct {
	mu     sync.Mutex
	store  Store
	logic  logic.LoyaltyLogic
	ladder logic.Ladder
	clock  pos.Clock
	logger *zap.Logger
}

// NewService creates a Service. A nil ladder selects the default program.
func NewService(store Store, ladder logic.Ladder, clock pos.Clock, logger *zap.Logger) *Service {
	if len(ladder) == 0 {
		ladder = logic.DefaultLadder()
	}
	if clock == nil {
		clock = pos.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logic:  logic.NewLoyaltyLogic(),
		ladder: ladder,
		clock:  clock,
		logger: logger,
	}
}

// Ladder returns the configured tier ladder.
func (s *Service) Ladder() logic.Ladder {
	return s.ladder
}

// Tier resolves a profile's current tier.
func (s *Service) Tier(profile *logic.Profile) (logic.Tier, bool) {
	if profile == nil {
		return logic.Tier{}, false
	}
	return s.ladder.Tier(profile.CurrentTierID)
}

// Perks returns the perks of a profile's current tier, or nil.
func (s *Service) Perks(profile *logic.Profile) []pricing.Perk {
	tier, ok := s.Tier(profile)
	if !ok {
		return nil
	}
	return tier.Perks
}

func (s *Service) load(ctx context.Context, customerID string) (*logic.Profile, error) {
	txs, err := s.store.Transactions(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load loyalty log %s: %w", customerID, err)
	}
	return s.logic.RebuildState(txs), nil
}

func (s *Service) append(ctx context.Context, state *logic.Profile, txs ...logic.Transaction) (*logic.Profile, error) {
	if err := s.store.Append(ctx, txs...); err != nil {
		return nil, fmt.Errorf("append loyalty log: %w", err)
	}
	for _, tx := range txs {
		s.logger.Info("loyalty transaction appended",
			zap.String("customer_id", tx.CustomerID),
			zap.String("type", string(tx.Type)),
			zap.String("points", tx.Points.String()),
			zap.Int("punches", tx.Punches))
	}
	return logic.ApplyAll(state, txs...), nil
}

func (s *Service) requireFreeCode(ctx context.Context, code string) error {
	owner, taken, err := s.store.CustomerForCard(ctx, logic.NormalizeCardCode(code))
	if err != nil {
		return fmt.Errorf("card index: %w", err)
	}
	if taken {
		s.logger.Warn("card code reuse rejected", zap.String("owner", owner))
		return pos.NewFailedPrecondition(ErrMsgCardTaken)
	}
	return nil
}

// Lookup resolves an ACTIVE card to its profile. Unknown, inactive and lost
// codes are reported with ok == false rather than an error.
func (s *Service) Lookup(ctx context.Context, code string) (*logic.Profile, bool, error) {
	code = logic.NormalizeCardCode(code)
	customerID, found, err := s.store.CustomerForCard(ctx, code)
	if err != nil {
		return nil, false, fmt.Errorf("card index: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	profile, err := s.load(ctx, customerID)
	if err != nil {
		return nil, false, err
	}
	if profile.ActiveCard == nil || profile.ActiveCard.Code != code {
		return nil, false, nil
	}
	return profile, true, nil
}

// Profile loads a profile by customer id.
func (s *Service) Profile(ctx context.Context, customerID string) (*logic.Profile, error) {
	profile, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !profile.Exists() {
		return nil, pos.NewNotFound(logic.ErrMsgProfileNotFound)
	}
	return profile, nil
}

// History returns the full log of a customer, newest first.
func (s *Service) History(ctx context.Context, customerID string) ([]logic.Transaction, error) {
	txs, err := s.store.Transactions(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load loyalty log %s: %w", customerID, err)
	}
	if len(txs) == 0 {
		return nil, pos.NewNotFound(logic.ErrMsgProfileNotFound)
	}
	out := make([]logic.Transaction, len(txs))
	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}
	return out, nil
}

// Enroll creates a profile and its first card.
func (s *Service) Enroll(ctx context.Context, cmd logic.Enroll) (*logic.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFreeCode(ctx, cmd.CardCode); err != nil {
		return nil, err
	}
	customerID := cmd.CustomerID
	if customerID == "" {
		customerID = "cust_" + pos.CustomerRoot(cmd.Phone).String()
		cmd.CustomerID = customerID
	}
	state, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	txs, err := s.logic.HandleEnroll(state, s.ladder, cmd, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.append(ctx, state, txs...)
}

// Earn credits a finalized order and reports any upgrade it unlocks.
func (s *Service) Earn(ctx context.Context, customerID, orderID string, subtotal decimal.Decimal) (*Accrual, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	tx, err := s.logic.HandleEarn(state, s.ladder, logic.Earn{OrderID: orderID, Subtotal: subtotal}, s.clock.Now())
	if err != nil {
		return nil, err
	}
	profile, err := s.append(ctx, state, *tx)
	if err != nil {
		return nil, err
	}
	upgrade := s.logic.DetectUpgrade(profile, s.ladder)
	if upgrade != nil {
		s.logger.Info("tier upgrade pending",
			zap.String("customer_id", customerID),
			zap.String("from", upgrade.PrevTier.ID),
			zap.String("to", upgrade.NewTier.ID))
	}
	return &Accrual{Profile: profile, Transaction: *tx, Upgrade: upgrade}, nil
}

// CheckUpgrade re-evaluates a profile against the ladder. A dismissed
// upgrade is raised again here.
func (s *Service) CheckUpgrade(ctx context.Context, customerID string) (*logic.UpgradePending, error) {
	profile, err := s.Profile(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.logic.DetectUpgrade(profile, s.ladder), nil
}

// ConfirmUpgrade reissues the card and promotes the profile.
func (s *Service) ConfirmUpgrade(ctx context.Context, pending logic.UpgradePending, cardCode string) (*logic.Profile, error) {
	if pending.Profile == nil {
		return nil, pos.NewInvalidArgument(logic.ErrMsgUpgradeMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFreeCode(ctx, cardCode); err != nil {
		return nil, err
	}
	state, err := s.load(ctx, pending.Profile.ID)
	if err != nil {
		return nil, err
	}
	txs, err := s.logic.HandleConfirmUpgrade(state, s.ladder, pending, cardCode, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.append(ctx, state, txs...)
}

// ReportLost retires the active card and issues a replacement.
func (s *Service) ReportLost(ctx context.Context, customerID, newCode string) (*logic.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireFreeCode(ctx, newCode); err != nil {
		return nil, err
	}
	state, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	txs, err := s.logic.HandleReportLost(state, newCode, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return s.append(ctx, state, txs...)
}

// Adjust records a manual correction.
func (s *Service) Adjust(ctx context.Context, customerID string, points decimal.Decimal, punches int, reason string) (*Accrual, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	tx, err := s.logic.HandleAdjust(state, points, punches, reason, s.clock.Now())
	if err != nil {
		return nil, err
	}
	profile, err := s.append(ctx, state, *tx)
	if err != nil {
		return nil, err
	}
	return &Accrual{Profile: profile, Transaction: *tx, Upgrade: s.logic.DetectUpgrade(profile, s.ladder)}, nil
}
