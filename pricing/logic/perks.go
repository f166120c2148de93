package logic

import (
	"strings"

	"github.com/angzarr-io/pos/catalog"
	"github.com/shopspring/decimal"
)

// PerkKind selects how a perk affects pricing.
type PerkKind string

const (
	// PerkLabel is display-only.
	PerkLabel PerkKind = "label"
	// PerkFreeModifier prices matching modifiers at zero on qualifying lines.
	PerkFreeModifier PerkKind = "free_modifier"
)

// Perk is a tier benefit. For PerkFreeModifier, lines whose category equals
// Category get every modifier whose name contains Target (case-insensitive)
// for free.
type Perk struct {
	Label    string   `json:"label" mapstructure:"label"`
	Kind     PerkKind `json:"kind" mapstructure:"kind"`
	Category string   `json:"category,omitempty" mapstructure:"category"`
	Target   string   `json:"target,omitempty" mapstructure:"target"`
}

func (p Perk) appliesTo(item catalog.OrderItem) bool {
	return p.Kind == PerkFreeModifier && p.Target != "" && item.CategoryID == p.Category
}

func (p Perk) waives(m catalog.SelectedModifier) bool {
	return strings.Contains(strings.ToLower(m.Name), strings.ToLower(p.Target))
}

// ApplyPerks recomputes every line from its selections and the active perks.
// It never reads the previous FinalPrice, so applying it twice is the same
// as applying it once. A nil or empty perk list yields plain prices.
func ApplyPerks(items []catalog.OrderItem, perks []Perk) []catalog.OrderItem {
	out := make([]catalog.OrderItem, len(items))
	for i, item := range items {
		line := item.Clone()
		full := FinalPrice(line)
		price := line.Price
		discounted := false

		for _, m := range line.SelectedModifiers {
			modPrice := m.Price
			for _, perk := range perks {
				if perk.appliesTo(line) && perk.waives(m) {
					modPrice = decimal.Zero
					discounted = true
					break
				}
			}
			price = price.Add(modPrice)
		}

		line.FinalPrice = price
		line.IsDiscounted = discounted
		if discounted {
			line.OriginalPrice = &full
		} else {
			line.OriginalPrice = nil
		}
		out[i] = line
	}
	return out
}

// ResetPerks restores every line to its undiscounted price. Used when the
// loyalty customer logs out.
func ResetPerks(items []catalog.OrderItem) []catalog.OrderItem {
	return ApplyPerks(items, nil)
}
