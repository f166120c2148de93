// Package terminal owns the live state of one till: the cart, the bound
// loyalty customer, the order book and the order being edited. Every
// mutation runs under one lock, persists a snapshot and hands changed
// orders to the sync outbox.
package terminal

import (
	"encoding/json"
	"fmt"

	"github.com/angzarr-io/pos/catalog"
	loyaltylogic "github.com/angzarr-io/pos/loyalty/logic"
	order "github.com/angzarr-io/pos/order/logic"
)

// SchemaVersion is the current snapshot layout.
const SchemaVersion = 3

// DefaultStaffID is the staff member bound before anyone signs in.
const DefaultStaffID = "staff_001"

// Customer is the walk-in name attached to the cart.
type Customer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// State is the terminal's whole working state and the snapshot payload.
type State struct {
	Version        int                          `json:"version"`
	Items          []catalog.OrderItem          `json:"items"`
	Customer       *Customer                    `json:"customer"`
	LoyaltyProfile *loyaltylogic.Profile        `json:"loyaltyProfile"`
	UpgradePending *loyaltylogic.UpgradePending `json:"upgradeTriggered"`
	OrderType      order.OrderType              `json:"orderType"`
	TaxEnabled     bool                         `json:"taxStatus"`
	order.Book
	EditingOrder *order.SavedOrder `json:"editingOrder"`
	StaffID      string            `json:"currentStaffId"`
}

// InitialState is a fresh till.
func InitialState() *State {
	return &State{
		Version:    SchemaVersion,
		Items:      []catalog.OrderItem{},
		OrderType:  order.DineIn,
		TaxEnabled: true,
		Book:       order.Book{Active: []order.SavedOrder{}, Completed: []order.SavedOrder{}},
		StaffID:    DefaultStaffID,
	}
}

// Clone returns a deep copy safe to hand to callers.
func (s *State) Clone() *State {
	out := *s
	out.Items = catalog.CloneItems(s.Items)
	if s.Customer != nil {
		c := *s.Customer
		out.Customer = &c
	}
	out.LoyaltyProfile = s.LoyaltyProfile.Clone()
	if s.UpgradePending != nil {
		u := *s.UpgradePending
		u.Profile = s.UpgradePending.Profile.Clone()
		out.UpgradePending = &u
	}
	out.Active = order.CloneOrders(s.Active)
	out.Completed = order.CloneOrders(s.Completed)
	if s.EditingOrder != nil {
		e := s.EditingOrder.Clone()
		out.EditingOrder = &e
	}
	return &out
}

// EncodeSnapshot serializes the state.
func EncodeSnapshot(s *State) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode terminal snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot loads a stored state and migrates older layouts. Snapshots
// written before the archive existed have no completedOrders; it is
// backfilled empty.
func DecodeSnapshot(data []byte) (*State, error) {
	state := InitialState()
	state.Completed = nil
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode terminal snapshot: %w", err)
	}
	if state.Completed == nil {
		state.Completed = []order.SavedOrder{}
	}
	if state.Active == nil {
		state.Active = []order.SavedOrder{}
	}
	if state.Items == nil {
		state.Items = []catalog.OrderItem{}
	}
	if !state.OrderType.Valid() {
		state.OrderType = order.DineIn
	}
	if state.StaffID == "" {
		state.StaffID = DefaultStaffID
	}
	state.Version = SchemaVersion
	return state, nil
}
