package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	order "github.com/angzarr-io/pos/order/logic"
	"github.com/angzarr-io/pos/pos"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository persists the order book.
type OrderRepository interface {
	// GetActiveOrders lists orders not yet completed, newest first.
	GetActiveOrders(ctx context.Context) ([]order.SavedOrder, error)
	// GetCompletedOrders lists archived orders, newest first.
	GetCompletedOrders(ctx context.Context) ([]order.SavedOrder, error)
	// GetOrder looks an order up by its OrderKey.
	GetOrder(ctx context.Context, key string) (order.SavedOrder, bool, error)
	// SaveOrder inserts or replaces an order by its OrderKey.
	SaveOrder(ctx context.Context, o order.SavedOrder) error
	// UpdateOrderStatus moves an order forward and stamps the entered status.
	UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.SavedOrder, error)
}

// GormOrders is the database-backed OrderRepository.
type GormOrders struct {
	db    *gorm.DB
	clock pos.Clock
}

// NewGormOrders creates a GormOrders. A nil clock uses the wall clock.
func NewGormOrders(db *gorm.DB, clock pos.Clock) *GormOrders {
	if clock == nil {
		clock = pos.SystemClock{}
	}
	return &GormOrders{db: db, clock: clock}
}

func (r *GormOrders) list(ctx context.Context, query string, args ...interface{}) ([]order.SavedOrder, error) {
	var rows []OrderRecord
	if err := r.db.WithContext(ctx).Where(query, args...).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]order.SavedOrder, len(rows))
	for i, row := range rows {
		out[i] = row.order()
	}
	return out, nil
}

func (r *GormOrders) GetActiveOrders(ctx context.Context) ([]order.SavedOrder, error) {
	return r.list(ctx, "status <> ?", string(order.StatusCompleted))
}

func (r *GormOrders) GetCompletedOrders(ctx context.Context) ([]order.SavedOrder, error) {
	return r.list(ctx, "status = ?", string(order.StatusCompleted))
}

func (r *GormOrders) GetOrder(ctx context.Context, key string) (order.SavedOrder, bool, error) {
	var row OrderRecord
	err := r.db.WithContext(ctx).First(&row, "root = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return order.SavedOrder{}, false, nil
	}
	if err != nil {
		return order.SavedOrder{}, false, fmt.Errorf("load order %s: %w", key, err)
	}
	return row.order(), true, nil
}

func (r *GormOrders) SaveOrder(ctx context.Context, o order.SavedOrder) error {
	rec := orderRecord(o)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}
	return nil
}

func (r *GormOrders) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.SavedOrder, error) {
	var updated order.SavedOrder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row OrderRecord
		err := tx.First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return order.NewNotFoundf("%s: %s", order.ErrMsgOrderNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("load order %s: %w", id, err)
		}
		updated, err = order.Advance(row.order(), status, r.clock.Now())
		if err != nil {
			return err
		}
		rec := orderRecord(updated)
		return tx.Save(&rec).Error
	})
	if err != nil {
		return order.SavedOrder{}, err
	}
	return updated, nil
}

// MemoryOrders keeps orders in process memory, keyed by OrderKey.
type MemoryOrders struct {
	mu     sync.RWMutex
	orders map[string]order.SavedOrder
	clock  pos.Clock
}

// NewMemoryOrders creates an empty MemoryOrders.
func NewMemoryOrders(clock pos.Clock) *MemoryOrders {
	if clock == nil {
		clock = pos.SystemClock{}
	}
	return &MemoryOrders{orders: make(map[string]order.SavedOrder), clock: clock}
}

func (r *MemoryOrders) filter(keep func(order.SavedOrder) bool) []order.SavedOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []order.SavedOrder{}
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *MemoryOrders) GetActiveOrders(_ context.Context) ([]order.SavedOrder, error) {
	return r.filter(func(o order.SavedOrder) bool { return !o.IsCompleted() }), nil
}

func (r *MemoryOrders) GetCompletedOrders(_ context.Context) ([]order.SavedOrder, error) {
	return r.filter(func(o order.SavedOrder) bool { return o.IsCompleted() }), nil
}

func (r *MemoryOrders) GetOrder(_ context.Context, key string) (order.SavedOrder, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[key]
	if !ok {
		return order.SavedOrder{}, false, nil
	}
	return o.Clone(), true, nil
}

func (r *MemoryOrders) SaveOrder(_ context.Context, o order.SavedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[OrderKey(o)] = o.Clone()
	return nil
}

func (r *MemoryOrders) UpdateOrderStatus(_ context.Context, id string, status order.Status) (order.SavedOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, existing := range r.orders {
		if existing.ID != id {
			continue
		}
		updated, err := order.Advance(existing, status, r.clock.Now())
		if err != nil {
			return order.SavedOrder{}, err
		}
		r.orders[key] = updated
		return updated.Clone(), nil
	}
	return order.SavedOrder{}, order.NewNotFoundf("%s: %s", order.ErrMsgOrderNotFound, id)
}
