package storage

import (
	"context"
	"errors"
	"fmt"

	loyaltylogic "github.com/angzarr-io/pos/loyalty/logic"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormLoyaltyStore is the database-backed loyalty log.
type GormLoyaltyStore struct {
	db *gorm.DB
}

// NewGormLoyaltyStore creates a GormLoyaltyStore.
func NewGormLoyaltyStore(db *gorm.DB) *GormLoyaltyStore {
	return &GormLoyaltyStore{db: db}
}

// Append writes the entries atomically, in order.
func (s *GormLoyaltyStore) Append(ctx context.Context, txs ...loyaltylogic.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	rows := make([]LoyaltyRecord, len(txs))
	for i, tx := range txs {
		rows[i] = LoyaltyRecord{
			ID:         tx.ID,
			CustomerID: tx.CustomerID,
			Type:       string(tx.Type),
			CardCode:   tx.CardCode,
			Timestamp:  tx.Timestamp,
			Document:   datatypes.NewJSONType(tx),
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		for i := range rows {
			if err := db.Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append loyalty log: %w", err)
	}
	return nil
}

// Transactions returns a customer's log, oldest first.
func (s *GormLoyaltyStore) Transactions(ctx context.Context, customerID string) ([]loyaltylogic.Transaction, error) {
	var rows []LoyaltyRecord
	if err := s.db.WithContext(ctx).Where("customer_id = ?", customerID).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load loyalty log %s: %w", customerID, err)
	}
	out := make([]loyaltylogic.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.Document.Data()
	}
	return out, nil
}

// CustomerForCard resolves the owner of any card ever issued with code.
func (s *GormLoyaltyStore) CustomerForCard(ctx context.Context, code string) (string, bool, error) {
	var row LoyaltyRecord
	err := s.db.WithContext(ctx).
		Where("type = ? AND card_code = ?", string(loyaltylogic.TxCardIssued), code).
		Order("seq").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("card index %s: %w", code, err)
	}
	return row.CustomerID, true, nil
}
