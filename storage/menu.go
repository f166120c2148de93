package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/angzarr-io/pos/catalog"
	"github.com/angzarr-io/pos/pos"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMsgProductNotFound is returned for unknown product ids.
const ErrMsgProductNotFound = "Product not found"

// MenuRepository reads and writes the catalog.
type MenuRepository interface {
	// GetProducts lists available products.
	GetProducts(ctx context.Context) ([]catalog.Product, error)
	GetProductByID(ctx context.Context, id string) (catalog.Product, error)
	SaveProduct(ctx context.Context, p catalog.Product) error
	SaveBatchProducts(ctx context.Context, products []catalog.Product) error
}

// GormMenu is the database-backed MenuRepository.
type GormMenu struct {
	db *gorm.DB
}

// NewGormMenu creates a GormMenu.
func NewGormMenu(db *gorm.DB) *GormMenu {
	return &GormMenu{db: db}
}

func (m *GormMenu) GetProducts(ctx context.Context) ([]catalog.Product, error) {
	var rows []ProductRecord
	if err := m.db.WithContext(ctx).Where("is_available = ?", true).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]catalog.Product, len(rows))
	for i, r := range rows {
		out[i] = r.product()
	}
	return out, nil
}

func (m *GormMenu) GetProductByID(ctx context.Context, id string) (catalog.Product, error) {
	var row ProductRecord
	err := m.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return catalog.Product{}, pos.NewNotFoundf("%s: %s", ErrMsgProductNotFound, id)
	}
	if err != nil {
		return catalog.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return row.product(), nil
}

func (m *GormMenu) SaveProduct(ctx context.Context, p catalog.Product) error {
	return m.SaveBatchProducts(ctx, []catalog.Product{p})
}

// SaveBatchProducts upserts every product in one transaction.
func (m *GormMenu) SaveBatchProducts(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	rows := make([]ProductRecord, len(products))
	for i, p := range products {
		rows[i] = productRecord(p)
	}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&rows, 100).Error
	})
	if err != nil {
		return fmt.Errorf("save products: %w", err)
	}
	return nil
}

// MemoryMenu keeps the catalog in process memory.
type MemoryMenu struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

// NewMemoryMenu creates an empty MemoryMenu.
func NewMemoryMenu() *MemoryMenu {
	return &MemoryMenu{products: make(map[string]catalog.Product)}
}

func (m *MemoryMenu) GetProducts(_ context.Context) ([]catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		if !p.Unavailable {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryMenu) GetProductByID(_ context.Context, id string) (catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, pos.NewNotFoundf("%s: %s", ErrMsgProductNotFound, id)
	}
	return p, nil
}

func (m *MemoryMenu) SaveProduct(ctx context.Context, p catalog.Product) error {
	return m.SaveBatchProducts(ctx, []catalog.Product{p})
}

func (m *MemoryMenu) SaveBatchProducts(_ context.Context, products []catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		m.products[p.ID] = p
	}
	return nil
}

// SeedMenu loads the bundled menu into an empty repository. A repository
// that already lists products is left untouched.
func SeedMenu(ctx context.Context, repo MenuRepository) (int, error) {
	existing, err := repo.GetProducts(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	menu, err := catalog.SeedMenu()
	if err != nil {
		return 0, err
	}
	if err := repo.SaveBatchProducts(ctx, menu.Products); err != nil {
		return 0, err
	}
	return len(menu.Products), nil
}
