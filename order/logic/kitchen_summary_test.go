package logic

import (
	"reflect"
	"testing"
	"time"

	"github.com/angzarr-io/pos/catalog"
)

func comboProduct() catalog.Product {
	return catalog.Product{
		ID:         "codebs_burger",
		Name:       "The Code BS",
		Price:      money("10.00"),
		CategoryID: "burgers",
		Metadata:   &catalog.KitchenMeta{KitchenLabel: "Brioche Buns", Quantity: 1},
		ModifierGroups: []catalog.ModifierGroup{
			{
				ID: "patty", Name: "Patty",
				Options: []catalog.ModifierOption{
					{ID: "single", Name: "Single", Metadata: &catalog.KitchenMeta{KitchenLabel: "Beef Patty", Quantity: 1}},
					{ID: "double", Name: "Double", Price: money("3"), Metadata: &catalog.KitchenMeta{KitchenLabel: "Beef Patty", Quantity: 2}},
				},
			},
			{
				ID: "toppings", Name: "Toppings", MultiSelect: true,
				Options: []catalog.ModifierOption{{ID: "onion", Name: "Onions"}, {ID: "cheese", Name: "Cheese"}},
			},
			{
				ID: "side", Name: "Side", Kind: catalog.GroupSubItem,
				Options: []catalog.ModifierOption{{ID: "small_fries", Name: "Small Fries"}},
			},
			{
				ID: "seasoning", Name: "Seasoning", Dependency: &catalog.Dependency{GroupID: "side"},
				Options: []catalog.ModifierOption{{ID: "cajun", Name: "Cajun"}},
			},
		},
	}
}

func combo(uid string, notes string, mods ...catalog.SelectedModifier) catalog.OrderItem {
	return catalog.OrderItem{Product: comboProduct(), UniqueID: uid, SelectedModifiers: mods, Notes: notes}
}

func sel(group, option, name string, v catalog.Variation) catalog.SelectedModifier {
	return catalog.SelectedModifier{GroupID: group, OptionID: option, Name: name, Variation: v}
}

func TestSummarize(t *testing.T) {
	orders := []SavedOrder{
		{ID: "101", Items: []catalog.OrderItem{
			combo("a", "", sel("patty", "double", "Double", catalog.VariationNormal), sel("side", "small_fries", "Small Fries", catalog.VariationNormal)),
		}},
		{ID: "102", Items: []catalog.OrderItem{
			combo("b", "", sel("patty", "single", "Single", catalog.VariationNormal), sel("toppings", "onion", "Onions", catalog.VariationNo)),
			{Product: catalog.Product{ID: "soda", Name: "Soda"}, UniqueID: "c"},
		}},
	}

	got := Summarize(orders)
	wantPrep := map[string]int{"Brioche Buns": 2, "Beef Patty": 3}
	if !reflect.DeepEqual(got.Prep, wantPrep) {
		t.Errorf("prep: expected %v, got %v", wantPrep, got.Prep)
	}
	wantMains := map[string]int{"The Code BS": 2, "Soda": 1}
	if !reflect.DeepEqual(got.Mains, wantMains) {
		t.Errorf("mains: expected %v, got %v", wantMains, got.Mains)
	}
	wantSides := map[string]int{"Small Fries": 1}
	if !reflect.DeepEqual(got.Sides, wantSides) {
		t.Errorf("sides: expected %v, got %v", wantSides, got.Sides)
	}

	empty := Summarize(nil)
	if len(empty.Prep)+len(empty.Mains)+len(empty.Sides) != 0 {
		t.Errorf("expected empty summary, got %+v", empty)
	}
}

func TestAssemblyBundles(t *testing.T) {
	withSide := func(uid, notes string) catalog.OrderItem {
		// Declared out of group order on purpose.
		return combo(uid, notes,
			sel("seasoning", "cajun", "Cajun", catalog.VariationExtra),
			sel("toppings", "onion", "Onions", catalog.VariationNo),
			sel("side", "small_fries", "Small Fries", catalog.VariationNormal),
			sel("patty", "double", "Double", catalog.VariationNormal),
		)
	}
	order := SavedOrder{ID: "101", Items: []catalog.OrderItem{
		withSide("a", ""),
		withSide("b", ""),
		withSide("c", "no salt"),
		combo("d", ""),
	}}

	bundles := AssemblyBundles(order)
	if len(bundles) != 3 {
		t.Fatalf("expected 3 bundles, got %d: %+v", len(bundles), bundles)
	}

	first := bundles[0]
	if first.UniqueID != "a" || first.Qty != 2 {
		t.Errorf("expected identical lines grouped under the first, got %+v", first)
	}
	if !reflect.DeepEqual(first.Mods, []string{"Double", "No Onions"}) {
		t.Errorf("expected mods in group order with variation prefix, got %v", first.Mods)
	}
	wantSides := []AssemblySide{{Name: "Small Fries", Modifiers: []string{"Extra Cajun"}}}
	if !reflect.DeepEqual(first.Sides, wantSides) {
		t.Errorf("expected dependent mods under the side, got %+v", first.Sides)
	}
	if bundles[1].UniqueID != "c" || bundles[1].Qty != 1 {
		t.Errorf("expected notes to split bundles, got %+v", bundles[1])
	}
	if len(bundles[2].Mods) != 0 || len(bundles[2].Sides) != 0 {
		t.Errorf("expected bare item bundle, got %+v", bundles[2])
	}
}

func TestDurations(t *testing.T) {
	start := t0
	now := t0.Add(125 * time.Second)

	if got := FormatDuration(&start, now); got != "2:05" {
		t.Errorf("expected 2:05, got %s", got)
	}
	if got := FormatDuration(nil, now); got != "0:00" {
		t.Errorf("expected 0:00, got %s", got)
	}
	end := t0.Add(61 * time.Second)
	if got := DurationSecs(&start, &end, now); got != 61 {
		t.Errorf("expected 61, got %d", got)
	}
	if got := DurationSecs(&start, nil, now); got != 125 {
		t.Errorf("expected running duration 125, got %d", got)
	}
	if got := DurationSecs(nil, &end, now); got != 0 {
		t.Errorf("expected 0 without start, got %d", got)
	}
	if got := FormatSecs(125); got != "2m 5s" {
		t.Errorf("expected 2m 5s, got %s", got)
	}

	o := SavedOrder{CreatedAt: start, CookingStartedAt: &start, ReadyAt: &end}
	if o.CookTime(now) != 61 || o.TotalTime(now) != 125 {
		t.Errorf("unexpected cook/total time %d/%d", o.CookTime(now), o.TotalTime(now))
	}
}
