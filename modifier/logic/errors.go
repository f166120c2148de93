package logic

import "github.com/angzarr-io/pos/pos"

// Error message constants for the modifier wizard.
const (
	ErrMsgUnknownGroup     = "Modifier group is not part of this product"
	ErrMsgGroupHidden      = "Modifier group is not currently visible"
	ErrMsgUnknownOption    = "Modifier option is not part of this group"
	ErrMsgNotSelected      = "Modifier option is not selected"
	ErrMsgInvalidVariation = "Unknown modifier variation"
	ErrMsgStepIncomplete   = "Required modifier group has no selection"
	ErrMsgWizardComplete   = "Item is already complete"
)

// CommandError is an alias to the shared command error type.
type CommandError = pos.CommandError

var (
	NewInvalidArgument     = pos.NewInvalidArgument
	NewFailedPrecondition  = pos.NewFailedPrecondition
	NewFailedPreconditionf = pos.NewFailedPreconditionf
)
