// Package logic resolves a product's modifier dependency graph and drives the
// step-by-step item builder. It has no I/O and can be tested in isolation.
package logic

import "github.com/angzarr-io/pos/catalog"

// Resolution is the converged result of a visibility/prune pass.
type Resolution struct {
	Visible    []catalog.ModifierGroup
	Selections []catalog.SelectedModifier
	Pruned     []catalog.SelectedModifier
}

// IsVisible reports whether a group is active given the current selections.
func IsVisible(group catalog.ModifierGroup, selections []catalog.SelectedModifier) bool {
	dep := group.Dependency
	if dep == nil {
		return true
	}
	matched := false
	for _, s := range selections {
		if s.GroupID != dep.GroupID {
			continue
		}
		if len(dep.RequiredOptions) == 0 {
			return true
		}
		for _, required := range dep.RequiredOptions {
			if s.OptionID == required {
				matched = true
			}
		}
	}
	return matched
}

// VisibleGroups returns the groups currently active, in declaration order.
func VisibleGroups(all []catalog.ModifierGroup, selections []catalog.SelectedModifier) []catalog.ModifierGroup {
	visible := make([]catalog.ModifierGroup, 0, len(all))
	for _, g := range all {
		if IsVisible(g, selections) {
			visible = append(visible, g)
		}
	}
	return visible
}

// Resolve computes visibility and drops selections belonging to hidden
// groups, repeating until nothing changes so that pruning a parent also
// prunes everything that depended on it.
func Resolve(all []catalog.ModifierGroup, selections []catalog.SelectedModifier) Resolution {
	current := append([]catalog.SelectedModifier(nil), selections...)
	var pruned []catalog.SelectedModifier

	for {
		visible := VisibleGroups(all, current)
		ids := make(map[string]struct{}, len(visible))
		for _, g := range visible {
			ids[g.ID] = struct{}{}
		}

		kept := current[:0:0]
		for _, s := range current {
			if _, ok := ids[s.GroupID]; ok {
				kept = append(kept, s)
			} else {
				pruned = append(pruned, s)
			}
		}

		if len(kept) == len(current) {
			return Resolution{Visible: visible, Selections: kept, Pruned: pruned}
		}
		current = kept
	}
}

// Prune returns only the selections that survive a converged resolve.
func Prune(all []catalog.ModifierGroup, selections []catalog.SelectedModifier) []catalog.SelectedModifier {
	return Resolve(all, selections).Selections
}
