package catalog

import (
	"github.com/shopspring/decimal"
)

// Variation refines an already-selected modifier without changing its identity.
type Variation string

const (
	VariationNormal Variation = "Normal"
	VariationNo     Variation = "No"
	VariationSide   Variation = "Side"
	VariationExtra  Variation = "Extra"
)

// Valid reports whether v is one of the known variations.
func (v Variation) Valid() bool {
	switch v {
	case VariationNormal, VariationNo, VariationSide, VariationExtra:
		return true
	}
	return false
}

// SelectedModifier is a chosen option attached to a cart line. GroupID and
// OptionID together are its identity.
type SelectedModifier struct {
	GroupID   string          `json:"groupId"`
	OptionID  string          `json:"optionId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Variation Variation       `json:"variation"`
}

// Matches reports whether the selection is for the given group and option.
func (m SelectedModifier) Matches(groupID, optionID string) bool {
	return m.GroupID == groupID && m.OptionID == optionID
}

// Label is the kitchen-facing name, prefixed by the variation when not Normal.
func (m SelectedModifier) Label() string {
	if m.Variation == "" || m.Variation == VariationNormal {
		return m.Name
	}
	return string(m.Variation) + " " + m.Name
}

// OrderItem is a cart line: a product snapshot plus the customer's choices.
// FinalPrice is written only by the pricing engine.
type OrderItem struct {
	Product
	UniqueID          string             `json:"uniqueId"`
	SelectedModifiers []SelectedModifier `json:"selectedModifiers"`
	Notes             string             `json:"notes,omitempty"`
	FinalPrice        decimal.Decimal    `json:"finalPrice"`
	OriginalPrice     *decimal.Decimal   `json:"originalPrice,omitempty"`
	IsDiscounted      bool               `json:"isDiscounted"`
}

// Clone returns a deep copy so snapshots never share slices with the cart.
func (i OrderItem) Clone() OrderItem {
	out := i
	out.SelectedModifiers = append([]SelectedModifier(nil), i.SelectedModifiers...)
	out.ModifierGroups = append([]ModifierGroup(nil), i.ModifierGroups...)
	if i.OriginalPrice != nil {
		p := *i.OriginalPrice
		out.OriginalPrice = &p
	}
	return out
}

// CloneItems deep-copies a list of lines.
func CloneItems(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	for idx, item := range items {
		out[idx] = item.Clone()
	}
	return out
}
