package logic

import (
	"github.com/angzarr-io/pos/catalog"
	"github.com/shopspring/decimal"
)

// Wizard walks the visible modifier groups of a product one step at a time.
//
// The current step is tracked by group id rather than index: a selection can
// change which groups are visible, and an index computed before the prune
// converges would point at the wrong step.
type Wizard struct {
	product    catalog.Product
	draftID    string
	selections []catalog.SelectedModifier
	steps      []catalog.ModifierGroup
	current    string
	complete   bool
}

// NewWizard starts a builder for product. When editing an existing line its
// selections and unique id are carried over.
func NewWizard(product catalog.Product, draftID string, edit *catalog.OrderItem) *Wizard {
	w := &Wizard{product: product, draftID: draftID}
	if edit != nil {
		w.draftID = edit.UniqueID
		w.selections = append(w.selections, edit.SelectedModifiers...)
	}
	w.resolve()
	if len(w.steps) == 0 {
		w.complete = true
	} else {
		w.current = w.steps[0].ID
	}
	return w
}

func (w *Wizard) resolve() {
	res := Resolve(w.product.ModifierGroups, w.selections)
	w.selections = res.Selections
	w.steps = res.Visible
}

func (w *Wizard) stepIndex(groupID string) int {
	for i, g := range w.steps {
		if g.ID == groupID {
			return i
		}
	}
	return -1
}

// settle re-anchors the current step after a resolve. If the current group
// was hidden, the wizard falls back to the nearest visible group declared
// before it, or the first step.
func (w *Wizard) settle() {
	if w.complete || w.stepIndex(w.current) >= 0 {
		return
	}
	if len(w.steps) == 0 {
		w.current = ""
		return
	}
	declared := w.product.GroupIndex(w.current)
	fallback := w.steps[0].ID
	for _, g := range w.steps {
		if w.product.GroupIndex(g.ID) < declared {
			fallback = g.ID
		}
	}
	w.current = fallback
}

// Steps returns the currently visible groups.
func (w *Wizard) Steps() []catalog.ModifierGroup {
	return w.steps
}

// Progress returns the 1-based current step and the number of visible steps.
func (w *Wizard) Progress() (int, int) {
	return w.stepIndex(w.current) + 1, len(w.steps)
}

// Current returns the group for the current step.
func (w *Wizard) Current() (catalog.ModifierGroup, bool) {
	idx := w.stepIndex(w.current)
	if idx < 0 {
		return catalog.ModifierGroup{}, false
	}
	return w.steps[idx], true
}

// Header returns the step title. A dependent group names the parent choice
// that unlocked it, e.g. "Seasoning Selection for Small Fries".
func (w *Wizard) Header() string {
	group, ok := w.Current()
	if !ok {
		return ""
	}
	if group.Dependency != nil {
		for _, s := range w.selections {
			if s.GroupID == group.Dependency.GroupID {
				return group.Name + " for " + s.Name
			}
		}
	}
	return group.Name
}

// Selections returns the current selections.
func (w *Wizard) Selections() []catalog.SelectedModifier {
	return w.selections
}

func (w *Wizard) selectionsFor(groupID string) int {
	n := 0
	for _, s := range w.selections {
		if s.GroupID == groupID {
			n++
		}
	}
	return n
}

// CanAdvance reports whether the current step is satisfied.
func (w *Wizard) CanAdvance() bool {
	group, ok := w.Current()
	if !ok {
		return false
	}
	return !group.Required || w.selectionsFor(group.ID) > 0
}

// CanSkip reports whether the skip affordance applies: the step is optional
// and nothing has been chosen in it yet.
func (w *Wizard) CanSkip() bool {
	group, ok := w.Current()
	if !ok {
		return false
	}
	return !group.Required && w.selectionsFor(group.ID) == 0
}

// Complete reports whether the item has been finalized.
func (w *Wizard) Complete() bool {
	return w.complete
}

// Toggle selects or deselects an option in a visible group. Single-select
// groups replace their prior choice and auto-advance once the selection
// graph has converged; the returned flag reports whether that happened.
// Tapping the option already chosen on the current single-select step
// confirms it and advances too.
func (w *Wizard) Toggle(groupID, optionID string) (bool, error) {
	if w.complete {
		return false, NewFailedPrecondition(ErrMsgWizardComplete)
	}
	group, ok := w.product.Group(groupID)
	if !ok {
		return false, NewInvalidArgument(ErrMsgUnknownGroup)
	}
	if w.stepIndex(groupID) < 0 {
		return false, NewFailedPrecondition(ErrMsgGroupHidden)
	}
	option, ok := group.Option(optionID)
	if !ok {
		return false, NewInvalidArgument(ErrMsgUnknownOption)
	}

	existing := -1
	for i, s := range w.selections {
		if s.Matches(groupID, optionID) {
			existing = i
			break
		}
	}

	if existing >= 0 {
		if group.MultiSelect {
			w.selections = append(w.selections[:existing:existing], w.selections[existing+1:]...)
			w.resolve()
			w.settle()
			return false, nil
		}
		if w.current != groupID {
			return false, nil
		}
		w.advance()
		return true, nil
	}

	selected := catalog.SelectedModifier{
		GroupID:   groupID,
		OptionID:  optionID,
		Name:      option.Name,
		Price:     option.Price,
		Variation: catalog.VariationNormal,
	}

	if group.MultiSelect {
		w.selections = append(w.selections, selected)
		w.resolve()
		w.settle()
		return false, nil
	}

	kept := w.selections[:0:0]
	for _, s := range w.selections {
		if s.GroupID != groupID {
			kept = append(kept, s)
		}
	}
	w.selections = append(kept, selected)
	w.resolve()
	w.settle()

	// Only advance when the step the user acted on is still the current one.
	if w.current != groupID {
		return false, nil
	}
	w.advance()
	return true, nil
}

// SetVariation changes how an already-selected option is interpreted.
func (w *Wizard) SetVariation(groupID, optionID string, variation catalog.Variation) error {
	if !variation.Valid() {
		return NewInvalidArgument(ErrMsgInvalidVariation)
	}
	for i := range w.selections {
		if w.selections[i].Matches(groupID, optionID) {
			w.selections[i].Variation = variation
			return nil
		}
	}
	return NewFailedPrecondition(ErrMsgNotSelected)
}

func (w *Wizard) advance() {
	idx := w.stepIndex(w.current)
	if idx < len(w.steps)-1 {
		w.current = w.steps[idx+1].ID
		return
	}
	w.complete = true
}

// Next moves to the following step, or completes the item on the last step.
func (w *Wizard) Next() error {
	if w.complete {
		return NewFailedPrecondition(ErrMsgWizardComplete)
	}
	if !w.CanAdvance() {
		return NewFailedPrecondition(ErrMsgStepIncomplete)
	}
	w.advance()
	return nil
}

// Skip advances past an optional step with no selection.
func (w *Wizard) Skip() error {
	if !w.CanSkip() {
		return NewFailedPrecondition(ErrMsgStepIncomplete)
	}
	w.advance()
	return nil
}

// Back returns to the previous step. Returns false on the first step.
func (w *Wizard) Back() bool {
	idx := w.stepIndex(w.current)
	if idx <= 0 {
		return false
	}
	w.current = w.steps[idx-1].ID
	w.complete = false
	return true
}

// RunningTotal is the base price plus every selected modifier.
func (w *Wizard) RunningTotal() decimal.Decimal {
	total := w.product.Price
	for _, s := range w.selections {
		total = total.Add(s.Price)
	}
	return total
}

// Item builds the cart line for the current selections.
func (w *Wizard) Item() catalog.OrderItem {
	return catalog.OrderItem{
		Product:           w.product,
		UniqueID:          w.draftID,
		SelectedModifiers: append([]catalog.SelectedModifier(nil), w.selections...),
		FinalPrice:        w.RunningTotal(),
	}
}

// BuildItem validates a full set of selections in one shot, as an API
// client submitting a finished item would. Hidden selections are pruned and
// every visible required group must be satisfied.
func BuildItem(product catalog.Product, uniqueID string, selections []catalog.SelectedModifier) (catalog.OrderItem, error) {
	resolved := make([]catalog.SelectedModifier, 0, len(selections))
	for _, s := range selections {
		group, ok := product.Group(s.GroupID)
		if !ok {
			return catalog.OrderItem{}, NewInvalidArgument(ErrMsgUnknownGroup)
		}
		option, ok := group.Option(s.OptionID)
		if !ok {
			return catalog.OrderItem{}, NewInvalidArgument(ErrMsgUnknownOption)
		}
		variation := s.Variation
		if variation == "" {
			variation = catalog.VariationNormal
		}
		if !variation.Valid() {
			return catalog.OrderItem{}, NewInvalidArgument(ErrMsgInvalidVariation)
		}
		resolved = append(resolved, catalog.SelectedModifier{
			GroupID:   s.GroupID,
			OptionID:  s.OptionID,
			Name:      option.Name,
			Price:     option.Price,
			Variation: variation,
		})
	}

	res := Resolve(product.ModifierGroups, resolved)
	for _, g := range res.Visible {
		count := 0
		for _, s := range res.Selections {
			if s.GroupID == g.ID {
				count++
			}
		}
		if g.Required && count == 0 {
			return catalog.OrderItem{}, NewFailedPreconditionf("%s: %s", ErrMsgStepIncomplete, g.Name)
		}
		if !g.MultiSelect && count > 1 {
			return catalog.OrderItem{}, NewInvalidArgument("Only one option may be selected in " + g.Name)
		}
	}

	total := product.Price
	for _, s := range res.Selections {
		total = total.Add(s.Price)
	}
	return catalog.OrderItem{
		Product:           product,
		UniqueID:          uniqueID,
		SelectedModifiers: res.Selections,
		FinalPrice:        total,
	}, nil
}
