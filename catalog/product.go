// Package catalog defines the menu and cart-line types shared by every POS
// domain. Products are immutable while an order is open; a cart line keeps
// its own copy of the product so later menu edits never leak into it.
package catalog

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// GroupKind distinguishes plain modifier groups from groups whose options are
// complete sub-products (a side dish bundled with a main).
type GroupKind int

const (
	GroupModifier GroupKind = iota
	GroupSubItem
)

const subItemVariant = "sub_item"

func (k GroupKind) String() string {
	if k == GroupSubItem {
		return subItemVariant
	}
	return "modifier"
}

// KitchenMeta feeds production aggregation.
type KitchenMeta struct {
	KitchenLabel string `json:"kitchenLabel"`
	Quantity     int    `json:"quantity"`
}

// Units returns Quantity, defaulting to one.
func (m *KitchenMeta) Units() int {
	if m == nil || m.Quantity <= 0 {
		return 1
	}
	return m.Quantity
}

// Depletion links a sale to an inventory item.
type Depletion struct {
	InventoryItemID string          `json:"inventoryItemId"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
}

// InventoryMeta links a product or option to recipes and stock.
type InventoryMeta struct {
	RecipeID        string      `json:"recipeId,omitempty"`
	DirectDepletion []Depletion `json:"directDepletion,omitempty"`
}

// Packaging describes how a product is boxed for takeout.
type Packaging struct {
	SKU          string `json:"sku"`
	VolumePoints int    `json:"volumePoints"`
	IsMessy      bool   `json:"isMessy"`
}

// Dependency makes a group visible only once its parent group has a
// selection, optionally restricted to specific parent options.
type Dependency struct {
	GroupID         string   `json:"groupId"`
	RequiredOptions []string `json:"requiredOptions,omitempty"`
}

// ModifierOption is one choice inside a group.
type ModifierOption struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Metadata          *KitchenMeta    `json:"metadata,omitempty"`
	InventoryMetadata *InventoryMeta  `json:"inventoryMetadata,omitempty"`
}

// ModifierGroup is one wizard step of a product.
type ModifierGroup struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Required    bool             `json:"required"`
	MultiSelect bool             `json:"multiSelect"`
	Options     []ModifierOption `json:"options"`
	Kind        GroupKind        `json:"-"`
	Dependency  *Dependency      `json:"dependency,omitempty"`
}

type modifierGroupJSON struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Required    bool             `json:"required"`
	MultiSelect bool             `json:"multiSelect"`
	Options     []ModifierOption `json:"options"`
	Variant     string           `json:"variant,omitempty"`
	Dependency  *Dependency      `json:"dependency,omitempty"`
}

// MarshalJSON keeps the "variant" wire field used by stored menus.
func (g ModifierGroup) MarshalJSON() ([]byte, error) {
	out := modifierGroupJSON{
		ID:          g.ID,
		Name:        g.Name,
		Required:    g.Required,
		MultiSelect: g.MultiSelect,
		Options:     g.Options,
		Dependency:  g.Dependency,
	}
	if g.Kind == GroupSubItem {
		out.Variant = subItemVariant
	}
	return json.Marshal(out)
}

// UnmarshalJSON maps the "variant" wire field onto Kind.
func (g *ModifierGroup) UnmarshalJSON(data []byte) error {
	var in modifierGroupJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*g = ModifierGroup{
		ID:          in.ID,
		Name:        in.Name,
		Required:    in.Required,
		MultiSelect: in.MultiSelect,
		Options:     in.Options,
		Dependency:  in.Dependency,
	}
	if in.Variant == subItemVariant {
		g.Kind = GroupSubItem
	}
	return nil
}

// IsSubItem reports whether the group's options are sub-products.
func (g *ModifierGroup) IsSubItem() bool {
	return g.Kind == GroupSubItem
}

// Option finds an option by id.
func (g *ModifierGroup) Option(optionID string) (ModifierOption, bool) {
	for _, o := range g.Options {
		if o.ID == optionID {
			return o, true
		}
	}
	return ModifierOption{}, false
}

// Product is a sellable catalog entry.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	CategoryID        string          `json:"categoryId"`
	RequiresMods      bool            `json:"requiresMods,omitempty"`
	ModifierGroups    []ModifierGroup `json:"modifierGroups,omitempty"`
	Metadata          *KitchenMeta    `json:"metadata,omitempty"`
	Packaging         *Packaging      `json:"packaging,omitempty"`
	InventoryMetadata *InventoryMeta  `json:"inventoryMetadata,omitempty"`
	Unavailable       bool            `json:"unavailable,omitempty"`
}

// Group finds a modifier group by id.
func (p *Product) Group(groupID string) (*ModifierGroup, bool) {
	for i := range p.ModifierGroups {
		if p.ModifierGroups[i].ID == groupID {
			return &p.ModifierGroups[i], true
		}
	}
	return nil, false
}

// GroupIndex returns the declaration index of a group, or -1.
func (p *Product) GroupIndex(groupID string) int {
	for i := range p.ModifierGroups {
		if p.ModifierGroups[i].ID == groupID {
			return i
		}
	}
	return -1
}
