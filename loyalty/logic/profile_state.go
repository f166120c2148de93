package logic

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle of a physical or digital card. Cards only move
// away from ACTIVE; nothing reactivates them.
type CardStatus string

const (
	CardActive   CardStatus = "ACTIVE"
	CardInactive CardStatus = "INACTIVE"
	CardLost     CardStatus = "LOST"
)

// Card is a loyalty card bound to a profile.
type Card struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	CustomerID string     `json:"userId"`
	Status     CardStatus `json:"status"`
	IssuedAt   time.Time  `json:"issuedAt"`
}

// Profile is the loyalty state of a customer. Everything except identity is
// derived from the transaction log.
type Profile struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Phone              string          `json:"phone"`
	JoinedDate         time.Time       `json:"joinedDate"`
	CurrentTierID      string          `json:"currentTierId"`
	TotalPunches       int             `json:"totalPunches"`
	CurrentPoints      decimal.Decimal `json:"currentPoints"`
	LastVisitDate      string          `json:"lastVisitDate,omitempty"`
	ActiveCard         *Card           `json:"activeCard,omitempty"`
	Cards              []Card          `json:"cards,omitempty"`
	RecentTransactions []Transaction   `json:"recentTransactions,omitempty"`
}

// Exists returns true if the customer has enrolled.
func (p *Profile) Exists() bool {
	return p.ID != ""
}

// Card finds a card by code among every card ever issued to the profile.
func (p *Profile) Card(code string) (Card, bool) {
	for _, c := range p.Cards {
		if c.Code == code {
			return c, true
		}
	}
	return Card{}, false
}

// ActiveCards counts cards currently ACTIVE.
func (p *Profile) ActiveCards() int {
	n := 0
	for _, c := range p.Cards {
		if c.Status == CardActive {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.Cards = append([]Card(nil), p.Cards...)
	out.RecentTransactions = append([]Transaction(nil), p.RecentTransactions...)
	if p.ActiveCard != nil {
		c := *p.ActiveCard
		out.ActiveCard = &c
	}
	return &out
}

// EmptyState returns an empty profile for a customer with no history.
func EmptyState() *Profile {
	return &Profile{CurrentPoints: decimal.Zero}
}

func (p *Profile) setCardStatus(cardID string, status CardStatus) {
	for i := range p.Cards {
		if p.Cards[i].ID == cardID {
			p.Cards[i].Status = status
		}
	}
	p.refreshActiveCard()
}

func (p *Profile) refreshActiveCard() {
	p.ActiveCard = nil
	for i := len(p.Cards) - 1; i >= 0; i-- {
		if p.Cards[i].Status == CardActive {
			c := p.Cards[i]
			p.ActiveCard = &c
			return
		}
	}
}
