// Package logic estimates the disposables an order consumes: wrappers and
// boats per item, 2oz cups for sides, carrier bags and napkins.
package logic

import (
	"strings"

	order "github.com/angzarr-io/pos/order/logic"
)

// Estimator constants.
const (
	BagCapacityVP  = 8
	NapkinBase     = 4
	NapkinPerItem  = 1
	NapkinPerMessy = 2

	SKUBag    = "BAG_STD"
	SKUCup    = "CUP_2OZ"
	SKULid    = "LID_2OZ"
	SKUNapkin = "NAPKIN"
)

// ancillaries lists the fixed packaging each product consumes per unit.
var ancillaries = map[string]map[string]int{
	"codebs_burger": {"SKU_WRAPPER": 1},
	"codebs_basic":  {"SKU_WRAPPER": 1},
	"t1":            {"SKU_BOAT_SMALL": 1},
	"t2":            {"SKU_BOAT_SMALL": 1},
	"t3":            {"SKU_BOAT_SMALL": 1},
	"t4":            {"SKU_BOAT_SMALL": 1},
	"b1":            {"SKU_WRAPPER_XL": 1},
	"b2":            {"SKU_WRAPPER_XL": 1},
	"b3":            {"SKU_BOWL_LID": 1},
}

// Item is one product line as the estimator sees it. SKU is the product id.
type Item struct {
	SKU          string   `json:"sku"`
	Qty          int      `json:"qty"`
	VolumePoints int      `json:"volumePoints"`
	IsMessy      bool     `json:"isMessy"`
	Modifiers    []string `json:"modifiers"`
}

// Request is the estimator input.
type Request struct {
	OrderID     string          `json:"orderId"`
	ServiceType order.OrderType `json:"serviceType"`
	Items       []Item          `json:"items"`
}

// Result is the estimator output keyed by packaging SKU.
type Result struct {
	Success       bool           `json:"success"`
	OrderID       string         `json:"orderId"`
	PackagingUsed map[string]int `json:"packagingUsed"`
}

func failed(orderID string) Result {
	if orderID == "" {
		orderID = "unknown"
	}
	return Result{Success: false, OrderID: orderID, PackagingUsed: map[string]int{}}
}

// Estimate is deterministic and side-effect free. A request without an item
// list, or with an unknown service type or negative quantity, yields
// Success=false and an empty manifest.
func Estimate(req *Request) Result {
	if req == nil {
		return failed("")
	}
	if req.Items == nil || !req.ServiceType.Valid() {
		return failed(req.OrderID)
	}

	used := map[string]int{}
	add := func(sku string, qty int) {
		if sku == "" {
			return
		}
		used[sku] += qty
	}

	totalVP, totalItems, totalMessy := 0, 0, 0
	for _, item := range req.Items {
		if item.Qty < 0 || item.VolumePoints < 0 {
			return failed(req.OrderID)
		}
		qty := item.Qty
		if qty == 0 {
			qty = 1
		}
		totalItems += qty
		totalVP += item.VolumePoints * qty
		if item.IsMessy {
			totalMessy += qty
		}

		for sku, n := range ancillaries[item.SKU] {
			add(sku, n*qty)
		}
		if hasSide(item.Modifiers) {
			add(SKUCup, qty)
			add(SKULid, qty)
		}
	}

	if (req.ServiceType == order.Takeout || req.ServiceType == order.Delivery) && totalItems > 0 {
		bags := (totalVP + BagCapacityVP - 1) / BagCapacityVP
		if bags < 1 {
			bags = 1
		}
		add(SKUBag, bags)
	}

	add(SKUNapkin, NapkinBase+NapkinPerItem*totalItems+NapkinPerMessy*totalMessy)

	return Result{Success: true, OrderID: req.OrderID, PackagingUsed: used}
}

func hasSide(mods []string) bool {
	for _, m := range mods {
		if strings.Contains(strings.ToLower(m), "side") {
			return true
		}
	}
	return false
}

// RequestFor builds an estimator request from a saved order. Each cart line
// is one unit; modifier labels carry their variation, so "Side Ranch"
// counts as a side.
func RequestFor(o order.SavedOrder) *Request {
	req := &Request{OrderID: o.ID, ServiceType: o.OrderType, Items: make([]Item, 0, len(o.Items))}
	for _, line := range o.Items {
		item := Item{SKU: line.ID, Qty: 1, Modifiers: make([]string, 0, len(line.SelectedModifiers))}
		if line.Packaging != nil {
			item.VolumePoints = line.Packaging.VolumePoints
			item.IsMessy = line.Packaging.IsMessy
		}
		for _, m := range line.SelectedModifiers {
			item.Modifiers = append(item.Modifiers, m.Label())
		}
		req.Items = append(req.Items, item)
	}
	return req
}
