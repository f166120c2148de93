package logic

import (
	"sort"
	"strings"

	pricing "github.com/angzarr-io/pos/pricing/logic"
	"github.com/shopspring/decimal"
)

// Tier is one rung of the loyalty ladder.
type Tier struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Color        string          `json:"color"`
	MinPunches   int             `json:"minPunches"`
	CashbackRate decimal.Decimal `json:"cashbackRate"`
	WelcomeBonus decimal.Decimal `json:"welcomeBonus"`
	Perks        []pricing.Perk  `json:"perks,omitempty"`
}

// Ladder is the tier list ordered by MinPunches, strictly increasing.
type Ladder []Tier

// NewLadder sorts tiers and rejects empty or non-increasing ladders.
func NewLadder(tiers []Tier) (Ladder, error) {
	if len(tiers) == 0 {
		return nil, NewInvalidArgument(ErrMsgLadderEmpty)
	}
	ladder := append(Ladder(nil), tiers...)
	sort.SliceStable(ladder, func(i, j int) bool { return ladder[i].MinPunches < ladder[j].MinPunches })
	for i := 1; i < len(ladder); i++ {
		if ladder[i].MinPunches == ladder[i-1].MinPunches {
			return nil, NewInvalidArgument(ErrMsgLadderOrder)
		}
	}
	return ladder, nil
}

// Entry is the lowest tier, assigned on enrollment.
func (l Ladder) Entry() Tier {
	return l[0]
}

// Index returns the ladder position of a tier id, or -1.
func (l Ladder) Index(tierID string) int {
	for i, t := range l {
		if t.ID == tierID {
			return i
		}
	}
	return -1
}

// Tier looks a tier up by id.
func (l Ladder) Tier(tierID string) (Tier, bool) {
	if idx := l.Index(tierID); idx >= 0 {
		return l[idx], true
	}
	return Tier{}, false
}

// Qualified returns the highest tier whose threshold is met and its index.
func (l Ladder) Qualified(punches int) (Tier, int) {
	best := 0
	for i, t := range l {
		if t.MinPunches <= punches {
			best = i
		}
	}
	return l[best], best
}

// VIPLabel is the short badge printed on tickets for a tier name.
func VIPLabel(tierName string) string {
	name := strings.ToLower(tierName)
	switch {
	case name == "":
		return "VIP-1"
	case strings.Contains(name, "starter"):
		return "VIP-1"
	case strings.Contains(name, "bronze"):
		return "VIP-2"
	case strings.Contains(name, "silver"):
		return "VIP-3"
	case strings.Contains(name, "gold"):
		return "VIP-4"
	default:
		return "VIP"
	}
}

// DefaultLadder is the stock four-tier program.
func DefaultLadder() Ladder {
	return Ladder{
		{
			ID: "tier_starter", Name: "Starter", Color: "zinc-500", MinPunches: 0,
			CashbackRate: decimal.Zero,
			Perks:        []pricing.Perk{{Label: "Prove you are a regular", Kind: pricing.PerkLabel}},
		},
		{
			ID: "tier_bronze", Name: "Bronze", Color: "amber-600", MinPunches: 5,
			CashbackRate: decimal.RequireFromString("0.02"),
			WelcomeBonus: decimal.RequireFromString("5"),
			Perks: []pricing.Perk{
				{Label: "2% Cashback", Kind: pricing.PerkLabel},
				{Label: "Welcome Reward", Kind: pricing.PerkLabel},
			},
		},
		{
			ID: "tier_silver", Name: "Silver", Color: "zinc-300", MinPunches: 15,
			CashbackRate: decimal.RequireFromString("0.03"),
			Perks: []pricing.Perk{
				{Label: "3% Cashback", Kind: pricing.PerkLabel},
				{Label: "Priority Service", Kind: pricing.PerkLabel},
			},
		},
		{
			ID: "tier_gold", Name: "Gold", Color: "yellow-400", MinPunches: 30,
			CashbackRate: decimal.RequireFromString("0.05"),
			Perks: []pricing.Perk{
				{Label: "5% Cashback", Kind: pricing.PerkLabel},
				{Label: "Free Fries w/ Burger", Kind: pricing.PerkFreeModifier, Category: "burgers", Target: "fries"},
			},
		},
	}
}
