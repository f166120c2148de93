package logic

import "github.com/angzarr-io/pos/pos"

// Error message constants for the checkout domain.
const (
	ErrMsgMethodInvalid       = "Payment method must be Cash, Card or Transfer"
	ErrMsgTenderedNegative    = "Tendered amount cannot be negative"
	ErrMsgTipNegative         = "Tip cannot be negative"
	ErrMsgInsufficientTender  = "Tendered cash does not cover the charge"
	ErrMsgConfirmationMissing = "Card payments need a confirmation number"
	ErrMsgSplitIncomplete     = "Split payments do not cover the balance"
	ErrMsgTenderIndex         = "No tender at that position"
)

var (
	NewInvalidArgument     = pos.NewInvalidArgument
	NewFailedPrecondition  = pos.NewFailedPrecondition
	NewFailedPreconditionf = pos.NewFailedPreconditionf
)
