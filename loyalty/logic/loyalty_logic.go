// Package logic provides pure loyalty accrual and tier logic. Profiles are
// rebuilt from the transaction log; handlers validate state and return the
// transactions to append.
package logic

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/angzarr-io/pos/pos"
	"github.com/shopspring/decimal"
)

// CardCodeLength is the fixed length of a card code.
const CardCodeLength = 8

// recentLimit caps how many balance entries a profile carries for display.
const recentLimit = 20

var stateBuilder = pos.NewStateBuilder[Profile, Transaction](EmptyState).
	On(string(TxEnroll), applyEnroll).
	On(string(TxEarn), applyBalance).
	On(string(TxAdjustment), applyBalance).
	On(string(TxTierBonus), applyBalance).
	On(string(TxCardIssued), applyCardIssued).
	On(string(TxCardDeactivated), applyCardDeactivated).
	On(string(TxCardLost), applyCardLost).
	On(string(TxTierChanged), applyTierChanged)

func applyEnroll(state *Profile, tx Transaction) {
	state.ID = tx.CustomerID
	state.Name = tx.Name
	state.Phone = tx.Phone
	state.JoinedDate = tx.Timestamp
	state.CurrentTierID = tx.TierID
}

func applyBalance(state *Profile, tx Transaction) {
	state.CurrentPoints = state.CurrentPoints.Add(tx.Points)
	state.TotalPunches += tx.Punches
	if tx.VisitDate > state.LastVisitDate {
		state.LastVisitDate = tx.VisitDate
	}
	state.RecentTransactions = append([]Transaction{tx}, state.RecentTransactions...)
	if len(state.RecentTransactions) > recentLimit {
		state.RecentTransactions = state.RecentTransactions[:recentLimit]
	}
}

func applyCardIssued(state *Profile, tx Transaction) {
	state.Cards = append(state.Cards, Card{
		ID:         tx.CardID,
		Code:       tx.CardCode,
		CustomerID: tx.CustomerID,
		Status:     CardActive,
		IssuedAt:   tx.Timestamp,
	})
	state.refreshActiveCard()
}

func applyCardDeactivated(state *Profile, tx Transaction) {
	state.setCardStatus(tx.CardID, CardInactive)
}

func applyCardLost(state *Profile, tx Transaction) {
	state.setCardStatus(tx.CardID, CardLost)
}

func applyTierChanged(state *Profile, tx Transaction) {
	state.CurrentTierID = tx.TierID
}

// NormalizeCardCode trims and upper-cases a scanned or typed code.
func NormalizeCardCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCardCode checks a normalized code for length and charset.
func ValidateCardCode(code string) error {
	if err := pos.RequireLength(code, CardCodeLength, ErrMsgCardCodeLength); err != nil {
		return err
	}
	for _, r := range code {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return NewInvalidArgument(ErrMsgCardCodeCharset)
		}
	}
	return nil
}

// CardID derives the card identifier from its code.
func CardID(code string) string {
	return "card_" + pos.CardRoot(code).String()
}

// Enroll is the command to create a loyalty profile.
type Enroll struct {
	CustomerID string
	Name       string
	Phone      string
	CardCode   string
}

// Earn is the command to accrue points for a finalized order.
type Earn struct {
	OrderID  string
	Subtotal decimal.Decimal
}

// UpgradePending is raised when a profile qualifies for a higher tier. The
// profile stays in PrevTier until the upgrade is confirmed with a new card.
type UpgradePending struct {
	PrevTier Tier     `json:"prevTier"`
	NewTier  Tier     `json:"newTier"`
	Profile  *Profile `json:"profile"`
}

// LoyaltyLogic provides loyalty operations.
type LoyaltyLogic interface {
	// RebuildState reconstructs a profile from its transaction log.
	RebuildState(txs []Transaction) *Profile

	// HandleEnroll creates the profile and issues its first card.
	HandleEnroll(state *Profile, ladder Ladder, cmd Enroll, now time.Time) ([]Transaction, error)

	// HandleEarn accrues cashback and at most one punch per calendar day.
	HandleEarn(state *Profile, ladder Ladder, cmd Earn, now time.Time) (*Transaction, error)

	// DetectUpgrade reports a pending upgrade, or nil.
	DetectUpgrade(state *Profile, ladder Ladder) *UpgradePending

	// HandleConfirmUpgrade reissues the card and moves the profile up the ladder.
	HandleConfirmUpgrade(state *Profile, ladder Ladder, pending UpgradePending, cardCode string, now time.Time) ([]Transaction, error)

	// HandleReportLost marks the active card lost and issues a replacement.
	HandleReportLost(state *Profile, cardCode string, now time.Time) ([]Transaction, error)

	// HandleAdjust records a manual, non-negative correction.
	HandleAdjust(state *Profile, points decimal.Decimal, punches int, reason string, now time.Time) (*Transaction, error)
}

// DefaultLoyaltyLogic is the default implementation of LoyaltyLogic.
type DefaultLoyaltyLogic struct{}

// NewLoyaltyLogic creates a new LoyaltyLogic instance.
func NewLoyaltyLogic() LoyaltyLogic {
	return &DefaultLoyaltyLogic{}
}

// RebuildState reconstructs a profile by replaying txs oldest first.
func (l *DefaultLoyaltyLogic) RebuildState(txs []Transaction) *Profile {
	return stateBuilder.Rebuild(txs)
}

// ApplyAll folds freshly produced transactions into an existing profile.
func ApplyAll(state *Profile, txs ...Transaction) *Profile {
	next := state.Clone()
	for _, tx := range txs {
		stateBuilder.Apply(next, tx)
	}
	return next
}

func issueCard(customerID, code string, now time.Time) Transaction {
	return Transaction{
		ID:          pos.NewID(),
		CustomerID:  customerID,
		CardID:      CardID(code),
		CardCode:    code,
		Timestamp:   now,
		Type:        TxCardIssued,
		Points:      decimal.Zero,
		Description: "Card " + code + " issued",
	}
}

// HandleEnroll validates and creates the enrollment entries.
func (l *DefaultLoyaltyLogic) HandleEnroll(state *Profile, ladder Ladder, cmd Enroll, now time.Time) ([]Transaction, error) {
	if err := pos.RequireNotExists(state.ID, ErrMsgProfileExists); err != nil {
		return nil, err
	}
	if err := pos.RequirePresent(strings.TrimSpace(cmd.Name), ErrMsgNameRequired); err != nil {
		return nil, err
	}
	if err := pos.RequirePresent(strings.TrimSpace(cmd.Phone), ErrMsgPhoneRequired); err != nil {
		return nil, err
	}
	code := NormalizeCardCode(cmd.CardCode)
	if err := ValidateCardCode(code); err != nil {
		return nil, err
	}

	customerID := cmd.CustomerID
	if customerID == "" {
		customerID = "cust_" + pos.CustomerRoot(cmd.Phone).String()
	}

	return []Transaction{
		{
			ID:          pos.NewID(),
			CustomerID:  customerID,
			Timestamp:   now,
			Type:        TxEnroll,
			Points:      decimal.Zero,
			TierID:      ladder.Entry().ID,
			Name:        strings.TrimSpace(cmd.Name),
			Phone:       strings.TrimSpace(cmd.Phone),
			Description: "Enrolled",
		},
		issueCard(customerID, code, now),
	}, nil
}

// HandleEarn validates and creates an EARN entry. The punch is skipped when
// the profile already visited on the same calendar day as now.
func (l *DefaultLoyaltyLogic) HandleEarn(state *Profile, ladder Ladder, cmd Earn, now time.Time) (*Transaction, error) {
	if err := pos.RequireExists(state.ID, ErrMsgProfileNotFound); err != nil {
		return nil, err
	}
	if err := pos.RequireNonNegative(cmd.Subtotal, ErrMsgSubtotalNegative); err != nil {
		return nil, err
	}

	rate := decimal.Zero
	if tier, ok := ladder.Tier(state.CurrentTierID); ok {
		rate = tier.CashbackRate
	}

	today := now.Format(pos.DateLayout)
	punches := 1
	if state.LastVisitDate == today {
		punches = 0
	}

	cardID := ""
	if state.ActiveCard != nil {
		cardID = state.ActiveCard.ID
	}

	return &Transaction{
		ID:          pos.NewID(),
		CustomerID:  state.ID,
		CardID:      cardID,
		OrderID:     cmd.OrderID,
		Timestamp:   now,
		Type:        TxEarn,
		Points:      cmd.Subtotal.Mul(rate),
		Punches:     punches,
		VisitDate:   today,
		Description: fmt.Sprintf("Points for Order #%s", cmd.OrderID),
	}, nil
}

// DetectUpgrade compares the profile's tier with the highest tier its
// punches qualify for.
func (l *DefaultLoyaltyLogic) DetectUpgrade(state *Profile, ladder Ladder) *UpgradePending {
	if !state.Exists() || len(ladder) == 0 {
		return nil
	}
	current := ladder.Index(state.CurrentTierID)
	qualified, idx := ladder.Qualified(state.TotalPunches)
	if idx <= current {
		return nil
	}
	prev := ladder.Entry()
	if current >= 0 {
		prev = ladder[current]
	}
	return &UpgradePending{PrevTier: prev, NewTier: qualified, Profile: state.Clone()}
}

// HandleConfirmUpgrade deactivates the current card before issuing the new
// one, so replay never observes two ACTIVE cards.
func (l *DefaultLoyaltyLogic) HandleConfirmUpgrade(state *Profile, ladder Ladder, pending UpgradePending, cardCode string, now time.Time) ([]Transaction, error) {
	if err := pos.RequireExists(state.ID, ErrMsgProfileNotFound); err != nil {
		return nil, err
	}
	if pending.Profile != nil && pending.Profile.ID != state.ID {
		return nil, NewFailedPrecondition(ErrMsgUpgradeMismatch)
	}
	code := NormalizeCardCode(cardCode)
	if err := ValidateCardCode(code); err != nil {
		return nil, err
	}
	if _, taken := state.Card(code); taken {
		return nil, NewFailedPrecondition(ErrMsgCardCodeInUse)
	}

	target := ladder.Index(pending.NewTier.ID)
	if target < 0 {
		return nil, NewInvalidArgument(ErrMsgUnknownTier)
	}
	if target <= ladder.Index(state.CurrentTierID) {
		return nil, NewFailedPrecondition(ErrMsgUpgradeNotHigher)
	}
	newTier := ladder[target]
	if state.TotalPunches < newTier.MinPunches {
		return nil, NewFailedPrecondition(ErrMsgUpgradeNotQualified)
	}

	var txs []Transaction
	if state.ActiveCard != nil {
		txs = append(txs, Transaction{
			ID:          pos.NewID(),
			CustomerID:  state.ID,
			CardID:      state.ActiveCard.ID,
			CardCode:    state.ActiveCard.Code,
			Timestamp:   now,
			Type:        TxCardDeactivated,
			Points:      decimal.Zero,
			Description: "Card " + state.ActiveCard.Code + " retired for tier upgrade",
		})
	}
	issued := issueCard(state.ID, code, now)
	txs = append(txs, issued, Transaction{
		ID:          pos.NewID(),
		CustomerID:  state.ID,
		CardID:      issued.CardID,
		Timestamp:   now,
		Type:        TxTierChanged,
		Points:      decimal.Zero,
		TierID:      newTier.ID,
		Description: "Upgraded to " + newTier.Name,
	})
	if newTier.WelcomeBonus.IsPositive() {
		txs = append(txs, Transaction{
			ID:          pos.NewID(),
			CustomerID:  state.ID,
			CardID:      issued.CardID,
			Timestamp:   now,
			Type:        TxTierBonus,
			Points:      newTier.WelcomeBonus,
			Description: newTier.Name + " welcome reward",
		})
	}
	return txs, nil
}

// HandleReportLost marks the active card LOST and issues a replacement on
// the same tier.
func (l *DefaultLoyaltyLogic) HandleReportLost(state *Profile, cardCode string, now time.Time) ([]Transaction, error) {
	if err := pos.RequireExists(state.ID, ErrMsgProfileNotFound); err != nil {
		return nil, err
	}
	if state.ActiveCard == nil {
		return nil, NewFailedPrecondition(ErrMsgNoActiveCard)
	}
	code := NormalizeCardCode(cardCode)
	if err := ValidateCardCode(code); err != nil {
		return nil, err
	}
	if _, taken := state.Card(code); taken {
		return nil, NewFailedPrecondition(ErrMsgCardCodeInUse)
	}

	return []Transaction{
		{
			ID:          pos.NewID(),
			CustomerID:  state.ID,
			CardID:      state.ActiveCard.ID,
			CardCode:    state.ActiveCard.Code,
			Timestamp:   now,
			Type:        TxCardLost,
			Points:      decimal.Zero,
			Description: "Card " + state.ActiveCard.Code + " reported lost",
		},
		issueCard(state.ID, code, now),
	}, nil
}

// HandleAdjust validates and creates an ADJUSTMENT entry. Balances are
// monotonic, so negative corrections are rejected.
func (l *DefaultLoyaltyLogic) HandleAdjust(state *Profile, points decimal.Decimal, punches int, reason string, now time.Time) (*Transaction, error) {
	if err := pos.RequireExists(state.ID, ErrMsgProfileNotFound); err != nil {
		return nil, err
	}
	if points.IsNegative() || punches < 0 {
		return nil, NewInvalidArgument(ErrMsgAdjustmentNegative)
	}
	if points.IsZero() && punches == 0 {
		return nil, NewInvalidArgument(ErrMsgAdjustmentEmpty)
	}
	if err := pos.RequirePresent(strings.TrimSpace(reason), ErrMsgReasonRequired); err != nil {
		return nil, err
	}

	cardID := ""
	if state.ActiveCard != nil {
		cardID = state.ActiveCard.ID
	}
	return &Transaction{
		ID:          pos.NewID(),
		CustomerID:  state.ID,
		CardID:      cardID,
		Timestamp:   now,
		Type:        TxAdjustment,
		Points:      points,
		Punches:     punches,
		Description: reason,
	}, nil
}
