package pos

import (
	"testing"

	"github.com/shopspring/decimal"
)

type testStatus string

func TestRequireExists_FailsWhenEmpty(t *testing.T) {
	err := RequireExists("", "profile not found")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Code != StatusFailedPrecondition {
		t.Errorf("expected FailedPrecondition, got %v", err.Code)
	}
	if err := RequireExists("cust_1", "error"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestRequireNotExists_FailsWhenNonEmpty(t *testing.T) {
	if err := RequireNotExists("cust_1", "already enrolled"); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := RequireNotExists("", "error"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestRequirePresent_IsInvalidArgument(t *testing.T) {
	err := RequirePresent("", "name is required")
	if err == nil || err.Code != StatusInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestRequireNonNegative(t *testing.T) {
	if err := RequireNonNegative(decimal.Zero, "error"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := RequireNonNegative(money("-0.01"), "error"); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestRequireNotEmpty_Fails(t *testing.T) {
	err := RequireNotEmpty([]int{}, "items required")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Message != "items required" {
		t.Errorf("expected 'items required', got %q", err.Message)
	}
}

func TestRequireLength(t *testing.T) {
	if err := RequireLength("ABCD1234", 8, "error"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := RequireLength("ABC", 8, "card code must be 8 characters"); err == nil {
		t.Error("expected error for short code")
	}
}

func TestRequireStatus(t *testing.T) {
	if err := RequireStatus(testStatus("Pending"), testStatus("Pending"), "error"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := RequireStatus(testStatus("Ready"), testStatus("Pending"), "wrong status"); err == nil {
		t.Error("expected error, got nil")
	}
	if err := RequireStatusNot(testStatus("Completed"), testStatus("Completed"), "archived"); err == nil {
		t.Error("expected error, got nil")
	}
}
