package storage

import (
	"time"

	"github.com/angzarr-io/pos/catalog"
	loyaltylogic "github.com/angzarr-io/pos/loyalty/logic"
	order "github.com/angzarr-io/pos/order/logic"
	"github.com/angzarr-io/pos/pos"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductRecord is a menu row. Nested groups, kitchen and packaging
// metadata travel in the JSON document.
type ProductRecord struct {
	ID           string          `gorm:"primaryKey;size:64"`
	Name         string          `gorm:"size:128;not null"`
	CategoryID   string          `gorm:"size:64;index;not null"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	RequiresMods bool            `gorm:"not null"`
	IsAvailable  bool            `gorm:"index;not null"`
	Document     datatypes.JSONType[catalog.Product]
	UpdatedAt    time.Time
}

// TableName sets the menu table name.
func (ProductRecord) TableName() string { return "menu_items" }

func productRecord(p catalog.Product) ProductRecord {
	return ProductRecord{
		ID:           p.ID,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		Price:        p.Price,
		RequiresMods: p.RequiresMods,
		IsAvailable:  !p.Unavailable,
		Document:     datatypes.NewJSONType(p),
	}
}

func (r ProductRecord) product() catalog.Product {
	p := r.Document.Data()
	p.ID = r.ID
	p.Name = r.Name
	p.CategoryID = r.CategoryID
	p.Price = r.Price
	p.RequiresMods = r.RequiresMods
	p.Unavailable = !r.IsAvailable
	return p
}

// OrderRecord is an order row. Lines, tenders and the loyalty snapshot are
// JSON columns.
type OrderRecord struct {
	Root               string    `gorm:"primaryKey;size:36"`
	ID                 string    `gorm:"size:32;index;not null"`
	Table              string    `gorm:"column:table_label;size:32;not null"`
	StoreID            string    `gorm:"size:64;not null"`
	TerminalID         string    `gorm:"size:64;not null"`
	StaffID            string    `gorm:"size:64;not null"`
	CreatedAt          time.Time `gorm:"index;autoCreateTime:false"`
	CookingStartedAt   *time.Time
	ReadyAt            *time.Time
	CompletedAt        *time.Time
	UpdatedAt          time.Time
	Items              datatypes.JSONType[[]catalog.OrderItem]
	Subtotal           decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	Tax                decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	Total              decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	AmountPaid         decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	TipAmount          decimal.Decimal     `gorm:"type:decimal(10,2);not null"`
	TenderedAmount     decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	Status             string              `gorm:"size:16;index;not null"`
	PaymentStatus      string              `gorm:"size:16;not null"`
	Method             string              `gorm:"size:16"`
	OrderType          string              `gorm:"size:16;not null"`
	ConfirmationNumber string              `gorm:"size:64"`
	IsLoyalty          bool
	CustomerID         string `gorm:"size:64;index"`
	LoyaltySnapshot    datatypes.JSONType[*order.LoyaltySnapshot]
	Tenders            datatypes.JSONSlice[order.Tender]
}

// TableName sets the order table name.
func (OrderRecord) TableName() string { return "orders" }

func unknownIfEmpty(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// OrderKey identifies an order across tills. Ids restart on every till, so
// the hub keys rows by this instead.
func OrderKey(o order.SavedOrder) string {
	return pos.OrderRoot(unknownIfEmpty(o.SystemInfo.StoreID), unknownIfEmpty(o.SystemInfo.TerminalID), o.ID).String()
}

func orderRecord(o order.SavedOrder) OrderRecord {
	rec := OrderRecord{
		Root:               OrderKey(o),
		ID:                 o.ID,
		Table:              o.Table,
		StoreID:            unknownIfEmpty(o.SystemInfo.StoreID),
		TerminalID:         unknownIfEmpty(o.SystemInfo.TerminalID),
		StaffID:            unknownIfEmpty(o.SystemInfo.StaffID),
		CreatedAt:          o.CreatedAt,
		CookingStartedAt:   o.CookingStartedAt,
		ReadyAt:            o.ReadyAt,
		CompletedAt:        o.CompletedAt,
		Items:              datatypes.NewJSONType(o.Items),
		Subtotal:           o.Subtotal,
		Tax:                o.Tax,
		Total:              o.Total,
		AmountPaid:         o.AmountPaid,
		TipAmount:          o.TipAmount,
		Status:             string(o.Status),
		PaymentStatus:      string(o.PaymentStatus),
		Method:             string(o.Method),
		OrderType:          string(o.OrderType),
		ConfirmationNumber: o.ConfirmationNumber,
		IsLoyalty:          o.IsLoyalty,
		CustomerID:         o.CustomerID,
		LoyaltySnapshot:    datatypes.NewJSONType(o.LoyaltySnapshot),
		Tenders:            datatypes.JSONSlice[order.Tender](o.Tenders),
	}
	if o.TenderedAmount != nil {
		rec.TenderedAmount = decimal.NewNullDecimal(*o.TenderedAmount)
	}
	return rec
}

func (r OrderRecord) order() order.SavedOrder {
	o := order.SavedOrder{
		ID:                 r.ID,
		Table:              r.Table,
		SystemInfo:         order.SystemInfo{StoreID: r.StoreID, TerminalID: r.TerminalID, StaffID: r.StaffID},
		CreatedAt:          r.CreatedAt,
		CookingStartedAt:   r.CookingStartedAt,
		ReadyAt:            r.ReadyAt,
		CompletedAt:        r.CompletedAt,
		Items:              r.Items.Data(),
		Subtotal:           r.Subtotal,
		Tax:                r.Tax,
		Total:              r.Total,
		AmountPaid:         r.AmountPaid,
		TipAmount:          r.TipAmount,
		Status:             order.Status(r.Status),
		PaymentStatus:      order.PaymentStatus(r.PaymentStatus),
		Method:             order.PaymentMethod(r.Method),
		OrderType:          order.OrderType(r.OrderType),
		ConfirmationNumber: r.ConfirmationNumber,
		IsLoyalty:          r.IsLoyalty,
		CustomerID:         r.CustomerID,
		LoyaltySnapshot:    r.LoyaltySnapshot.Data(),
		Tenders:            []order.Tender(r.Tenders),
	}
	if r.TenderedAmount.Valid {
		v := r.TenderedAmount.Decimal
		o.TenderedAmount = &v
	}
	return o
}

// LoyaltyRecord is one entry of the loyalty log. Seq preserves append order.
type LoyaltyRecord struct {
	Seq        uint      `gorm:"primaryKey;autoIncrement"`
	ID         string    `gorm:"size:64;uniqueIndex;not null"`
	CustomerID string    `gorm:"size:64;index;not null"`
	Type       string    `gorm:"size:32;index;not null"`
	CardCode   string    `gorm:"size:16;index"`
	Timestamp  time.Time `gorm:"not null"`
	Document   datatypes.JSONType[loyaltylogic.Transaction]
}

// TableName sets the loyalty log table name.
func (LoyaltyRecord) TableName() string { return "loyalty_transactions" }

// SnapshotRecord holds one serialized terminal state.
type SnapshotRecord struct {
	Key       string `gorm:"column:snapshot_key;primaryKey;size:64"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName sets the snapshot table name.
func (SnapshotRecord) TableName() string { return "terminal_snapshots" }
