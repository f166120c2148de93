package pos

import (
	"github.com/google/uuid"
)

// ComputeRoot derives a deterministic UUID v5 from a domain and business key.
//
// The UUID is derived from hash("pos" + domain + business_key) using the OID namespace.
func ComputeRoot(domain, businessKey string) uuid.UUID {
	seed := "pos" + domain + businessKey
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed))
}

// OrderRoot computes a deterministic root UUID for an order. Order numbers
// restart per till, so the store and terminal ids are part of the key.
func OrderRoot(storeID, terminalID, orderID string) uuid.UUID {
	return ComputeRoot("order", storeID+"/"+terminalID+"/"+orderID)
}

// CustomerRoot computes a deterministic root UUID for a loyalty customer.
func CustomerRoot(phone string) uuid.UUID {
	return ComputeRoot("customer", phone)
}

// CardRoot computes a deterministic root UUID for a loyalty card code.
func CardRoot(code string) uuid.UUID {
	return ComputeRoot("card", code)
}

// NewID returns a random identifier for log entries and queue items.
func NewID() string {
	return uuid.NewString()
}
