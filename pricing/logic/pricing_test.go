package logic

import (
	"testing"

	"github.com/angzarr-io/pos/catalog"
	"github.com/shopspring/decimal"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func burgerLine(id string, mods ...catalog.SelectedModifier) catalog.OrderItem {
	item := catalog.OrderItem{
		Product:           catalog.Product{ID: "codebs_burger", Name: "The Code BS", Price: money("10.00"), CategoryID: "burgers"},
		UniqueID:          id,
		SelectedModifiers: mods,
	}
	item.FinalPrice = FinalPrice(item)
	return item
}

func mod(name, price string) catalog.SelectedModifier {
	return catalog.SelectedModifier{GroupID: "g-" + name, OptionID: name, Name: name, Price: money(price), Variation: catalog.VariationNormal}
}

func TestTax_halfUpToCent(t *testing.T) {
	tests := []struct {
		subtotal, want string
	}{
		{"100.00", "8.25"},
		{"33.33", "2.75"},
		{"0", "0"},
		{"10.00", "0.83"},
	}
	for _, tt := range tests {
		got := Tax(money(tt.subtotal), TaxRate)
		if !got.Equal(money(tt.want)) {
			t.Errorf("Tax(%s) = %s, want %s", tt.subtotal, got, tt.want)
		}
	}
}

func TestCalculator_Totals(t *testing.T) {
	items := []catalog.OrderItem{burgerLine("a", mod("Double", "3.00")), burgerLine("b")}
	calc := NewCalculator(decimal.Zero)

	totals := calc.Totals(items, true)
	if !totals.Subtotal.Equal(money("23.00")) {
		t.Errorf("expected subtotal 23.00, got %s", totals.Subtotal)
	}
	if !totals.Tax.Equal(money("1.90")) {
		t.Errorf("expected tax 1.90, got %s", totals.Tax)
	}
	if !totals.Total.Equal(money("24.90")) {
		t.Errorf("expected total 24.90, got %s", totals.Total)
	}

	untaxed := calc.Totals(items, false)
	if !untaxed.Tax.IsZero() || !untaxed.Total.Equal(money("23.00")) {
		t.Errorf("expected no tax when disabled, got %+v", untaxed)
	}
}

func TestFinalPrice_sumsModifiers(t *testing.T) {
	item := burgerLine("a", mod("Double", "3.00"), mod("Large Fries", "1.50"))
	if !FinalPrice(item).Equal(money("14.50")) {
		t.Errorf("expected 14.50, got %s", FinalPrice(item))
	}
}
