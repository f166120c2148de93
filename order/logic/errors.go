package logic

import "github.com/angzarr-io/pos/pos"

// Error message constants for the order domain.
const (
	ErrMsgOrderNotFound    = "Order does not exist"
	ErrMsgOrderCompleted   = "Completed orders cannot be reopened"
	ErrMsgUnknownStatus    = "Unknown order status"
	ErrMsgStatusBackward   = "Order status cannot move backward"
	ErrMsgItemsRequired    = "Order must have at least one item"
	ErrMsgOrderTypeInvalid = "Unknown order type"
	ErrMsgNotPending       = "Only pending orders can be reordered"
	ErrMsgDirectionInvalid = "Move direction must be up or down"
	ErrMsgAlreadyEditing   = "Another order is already open for edit"
	ErrMsgNotEditing       = "No order is open for edit"
	ErrMsgPaymentMethodReq = "Payment method is required"
	ErrMsgTotalsNegative   = "Order totals cannot be negative"
)

// CommandError is an alias to the shared command error type.
type CommandError = pos.CommandError

var (
	NewInvalidArgument     = pos.NewInvalidArgument
	NewFailedPrecondition  = pos.NewFailedPrecondition
	NewFailedPreconditionf = pos.NewFailedPreconditionf
	NewNotFoundf           = pos.NewNotFoundf
)
