package logic

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the kind of a loyalty log entry.
type TransactionType string

const (
	TxEnroll          TransactionType = "ENROLL"
	TxEarn            TransactionType = "EARN"
	TxAdjustment      TransactionType = "ADJUSTMENT"
	TxTierBonus       TransactionType = "TIER_BONUS"
	TxCardIssued      TransactionType = "CARD_ISSUED"
	TxCardDeactivated TransactionType = "CARD_DEACTIVATED"
	TxCardLost        TransactionType = "CARD_LOST"
	TxTierChanged     TransactionType = "TIER_CHANGED"
)

// Transaction is an immutable entry in a customer's loyalty log. The log is
// the source of truth; profiles are rebuilt from it.
type Transaction struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	CardID      string          `json:"cardId,omitempty"`
	CardCode    string          `json:"cardCode,omitempty"`
	OrderID     string          `json:"orderId,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        TransactionType `json:"type"`
	Points      decimal.Decimal `json:"points"`
	Punches     int             `json:"punches,omitempty"`
	VisitDate   string          `json:"visitDate,omitempty"`
	TierID      string          `json:"tierId,omitempty"`
	Name        string          `json:"name,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Description string          `json:"description"`
}

// RecordKind keys the transaction for state replay.
func (t Transaction) RecordKind() string {
	return string(t.Type)
}
