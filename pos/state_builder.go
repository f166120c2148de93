// StateBuilder provides declarative applier registration for state reconstruction.
//
// Replaces manual switch/case chains in RebuildState functions. Appliers are
// keyed by the record kind, so a ledger of heterogeneous entries can be
// replayed into a single aggregate.
package pos

// Record is an entry in an append-only log that can be replayed into state.
type Record interface {
	RecordKind() string
}

// StateApplier applies one record to state.
type StateApplier[S any, R Record] func(state *S, record R)

// StateBuilder builds state from records with registered appliers.
//
// Example:
//
//	builder := pos.NewStateBuilder[Profile, Transaction](EmptyState).
//	    On("ENROLL", applyEnroll).
//	    On("EARN", applyEarn)
//
//	func RebuildState(txs []Transaction) *Profile {
//	    return builder.Rebuild(txs)
//	}
type StateBuilder[S any, R Record] struct {
	newState func() *S
	appliers map[string]StateApplier[S, R]
}

// NewStateBuilder creates a StateBuilder for state type S.
//
// The newState function creates a default/zero state.
func NewStateBuilder[S any, R Record](newState func() *S) *StateBuilder[S, R] {
	return &StateBuilder[S, R]{
		newState: newState,
		appliers: make(map[string]StateApplier[S, R]),
	}
}

// On registers an applier for a record kind. A later registration for the
// same kind replaces the earlier one.
func (sb *StateBuilder[S, R]) On(kind string, apply StateApplier[S, R]) *StateBuilder[S, R] {
	sb.appliers[kind] = apply
	return sb
}

// Apply applies a single record to state using the registered appliers.
//
// Useful for applying newly-created records to current state without a
// full replay.
func (sb *StateBuilder[S, R]) Apply(state *S, record R) {
	if apply, ok := sb.appliers[record.RecordKind()]; ok {
		apply(state, record)
	}
}

// Rebuild reconstructs state from a log. Unknown kinds are silently ignored.
func (sb *StateBuilder[S, R]) Rebuild(records []R) *S {
	state := sb.newState()
	for _, record := range records {
		sb.Apply(state, record)
	}
	return state
}
