package logic

import (
	"sort"
	"strings"

	"github.com/angzarr-io/pos/catalog"
)

// KitchenSummary is the production view over a set of orders.
type KitchenSummary struct {
	Prep  map[string]int `json:"prep"`
	Mains map[string]int `json:"mains"`
	Sides map[string]int `json:"sides"`
}

// Summarize folds orders into prep counts (item and option kitchen labels
// times their per-unit quantity), main counts by item name, and side counts
// from sub-item group selections.
func Summarize(orders []SavedOrder) KitchenSummary {
	summary := KitchenSummary{
		Prep:  map[string]int{},
		Mains: map[string]int{},
		Sides: map[string]int{},
	}
	for _, order := range orders {
		for _, item := range order.Items {
			if item.Metadata != nil && item.Metadata.KitchenLabel != "" {
				summary.Prep[item.Metadata.KitchenLabel] += item.Metadata.Units()
			}
			summary.Mains[item.Name]++

			for _, mod := range item.SelectedModifiers {
				group, ok := item.Group(mod.GroupID)
				if ok && group.IsSubItem() {
					summary.Sides[mod.Name]++
					continue
				}
				if !ok {
					continue
				}
				if opt, found := group.Option(mod.OptionID); found && opt.Metadata != nil && opt.Metadata.KitchenLabel != "" {
					summary.Prep[opt.Metadata.KitchenLabel] += opt.Metadata.Units()
				}
			}
		}
	}
	return summary
}

// AssemblySide is a sub-item with the modifiers that belong to it.
type AssemblySide struct {
	Name      string   `json:"name"`
	Modifiers []string `json:"modifiers"`
}

// AssemblyBundle groups identical lines of one order for the assembly line.
type AssemblyBundle struct {
	UniqueID string         `json:"uniqueId"`
	Name     string         `json:"name"`
	Qty      int            `json:"qty"`
	Mods     []string       `json:"mods"`
	Sides    []AssemblySide `json:"sides"`
}

// AssemblyBundles groups an order's lines by what the assembler has to
// build. Sides come from sub-item groups; modifiers of groups that depend on
// a sub-item group are listed under that side.
func AssemblyBundles(order SavedOrder) []AssemblyBundle {
	var bundles []AssemblyBundle
	index := map[string]int{}

	for _, item := range order.Items {
		mods, sides := assemble(item)
		sig := signature(item, mods, sides)
		if i, ok := index[sig]; ok {
			bundles[i].Qty++
			continue
		}
		index[sig] = len(bundles)
		bundles = append(bundles, AssemblyBundle{
			UniqueID: item.UniqueID,
			Name:     item.Name,
			Qty:      1,
			Mods:     mods,
			Sides:    sides,
		})
	}
	return bundles
}

func assemble(item catalog.OrderItem) ([]string, []AssemblySide) {
	selections := append([]catalog.SelectedModifier(nil), item.SelectedModifiers...)
	sort.SliceStable(selections, func(i, j int) bool {
		return item.GroupIndex(selections[i].GroupID) < item.GroupIndex(selections[j].GroupID)
	})

	var sides []AssemblySide
	sideAt := map[string]int{}
	for _, mod := range selections {
		group, ok := item.Group(mod.GroupID)
		if !ok || !group.IsSubItem() {
			continue
		}
		if i, seen := sideAt[group.ID]; seen {
			sides[i].Name = mod.Name
			continue
		}
		sideAt[group.ID] = len(sides)
		sides = append(sides, AssemblySide{Name: mod.Name, Modifiers: []string{}})
	}

	mods := []string{}
	for _, mod := range selections {
		group, ok := item.Group(mod.GroupID)
		if ok && group.IsSubItem() {
			continue
		}
		if ok && group.Dependency != nil {
			if parent, found := item.Group(group.Dependency.GroupID); found && parent.IsSubItem() {
				if i, has := sideAt[parent.ID]; has {
					sides[i].Modifiers = append(sides[i].Modifiers, mod.Label())
					continue
				}
			}
		}
		mods = append(mods, mod.Label())
	}
	if sides == nil {
		sides = []AssemblySide{}
	}
	return mods, sides
}

func signature(item catalog.OrderItem, mods []string, sides []AssemblySide) string {
	var b strings.Builder
	b.WriteString(item.ID)
	b.WriteByte('|')
	b.WriteString(strings.Join(mods, "|"))
	b.WriteByte('|')
	for _, side := range sides {
		b.WriteString(side.Name)
		b.WriteByte('[')
		b.WriteString(strings.Join(side.Modifiers, ","))
		b.WriteByte(']')
	}
	b.WriteByte('|')
	b.WriteString(item.Notes)
	return b.String()
}
