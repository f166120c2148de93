package logic

import (
	"github.com/angzarr-io/pos/catalog"
	"github.com/shopspring/decimal"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func burger() catalog.Product {
	return catalog.Product{
		ID:         "codebs_burger",
		Name:       "The Code BS",
		Price:      money("10.00"),
		CategoryID: "burgers",
		ModifierGroups: []catalog.ModifierGroup{
			{
				ID: "mod_burger_type", Name: "Burger Type", Required: true,
				Options: []catalog.ModifierOption{
					{ID: "single", Name: "Single", Price: money("0")},
					{ID: "double", Name: "Double", Price: money("3.00")},
				},
			},
			{
				ID: "mod_burger_sauce", Name: "Sauce Selection", MultiSelect: true,
				Options: []catalog.ModifierOption{
					{ID: "ketchup", Name: "Ketchup", Price: money("0")},
					{ID: "american_cheese", Name: "American Cheese", Price: money("1.00")},
				},
			},
			{
				ID: "mod_burger_sides", Name: "Sides", Kind: catalog.GroupSubItem,
				Options: []catalog.ModifierOption{
					{ID: "small_fries", Name: "Small Fries", Price: money("0")},
					{ID: "large_fries", Name: "Large Fries", Price: money("1.50")},
				},
			},
			{
				ID: "mod_burger_seasoning", Name: "Seasoning Selection",
				Dependency: &catalog.Dependency{GroupID: "mod_burger_sides"},
				Options: []catalog.ModifierOption{
					{ID: "umami", Name: "Umami", Price: money("0")},
					{ID: "truffles", Name: "Truffles", Price: money("0.50")},
				},
			},
		},
	}
}

// gatedGroups is A (free), B (needs option x of A), C (needs any of B).
func gatedGroups() []catalog.ModifierGroup {
	return []catalog.ModifierGroup{
		{ID: "A", Name: "A", Options: []catalog.ModifierOption{{ID: "x", Name: "X"}, {ID: "y", Name: "Y"}}},
		{ID: "B", Name: "B", Dependency: &catalog.Dependency{GroupID: "A", RequiredOptions: []string{"x"}},
			Options: []catalog.ModifierOption{{ID: "b1", Name: "B1"}}},
		{ID: "C", Name: "C", Dependency: &catalog.Dependency{GroupID: "B"},
			Options: []catalog.ModifierOption{{ID: "c1", Name: "C1"}}},
	}
}

func sel(group, option string) catalog.SelectedModifier {
	return catalog.SelectedModifier{GroupID: group, OptionID: option, Name: option, Variation: catalog.VariationNormal}
}
