package logic

import "github.com/angzarr-io/pos/pos"

// Error message constants for the loyalty domain.
const (
	ErrMsgProfileExists       = "Loyalty profile already exists"
	ErrMsgProfileNotFound     = "Loyalty profile does not exist"
	ErrMsgNameRequired        = "Customer name is required"
	ErrMsgPhoneRequired       = "Customer phone is required"
	ErrMsgCardCodeLength      = "Card code must be exactly 8 characters"
	ErrMsgCardCodeCharset     = "Card code must be letters and digits only"
	ErrMsgCardCodeInUse       = "Card code is already issued"
	ErrMsgNoActiveCard        = "Profile has no active card"
	ErrMsgSubtotalNegative    = "Subtotal cannot be negative"
	ErrMsgAdjustmentNegative  = "Adjustments cannot reduce points or punches"
	ErrMsgAdjustmentEmpty     = "Adjustment must change points or punches"
	ErrMsgReasonRequired      = "Adjustment reason is required"
	ErrMsgUpgradeMismatch     = "Upgrade belongs to a different profile"
	ErrMsgUpgradeNotHigher    = "Upgrade tier is not above the current tier"
	ErrMsgUpgradeNotQualified = "Profile does not qualify for the upgrade tier"
	ErrMsgUnknownTier         = "Unknown loyalty tier"
	ErrMsgLadderEmpty         = "Tier ladder must have at least one tier"
	ErrMsgLadderOrder         = "Tier ladder must be strictly increasing by minimum punches"
)

// CommandError is an alias to the shared command error type.
type CommandError = pos.CommandError

var (
	NewInvalidArgument     = pos.NewInvalidArgument
	NewFailedPrecondition  = pos.NewFailedPrecondition
	NewFailedPreconditionf = pos.NewFailedPreconditionf
)
