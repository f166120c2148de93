package pos

import "github.com/shopspring/decimal"

// RequireExists checks that a field is non-empty (entity exists).
func RequireExists(field, errMsg string) *CommandError {
	if field == "" {
		return NewFailedPrecondition(errMsg)
	}
	return nil
}

// RequireNotExists checks that a field is empty (entity does not yet exist).
func RequireNotExists(field, errMsg string) *CommandError {
	if field != "" {
		return NewFailedPrecondition(errMsg)
	}
	return nil
}

// RequirePresent checks that a caller-supplied argument is non-empty.
func RequirePresent(field, errMsg string) *CommandError {
	if field == "" {
		return NewInvalidArgument(errMsg)
	}
	return nil
}

// RequireNonNegative checks that an amount is zero or greater.
func RequireNonNegative(value decimal.Decimal, errMsg string) *CommandError {
	if value.IsNegative() {
		return NewInvalidArgument(errMsg)
	}
	return nil
}

// RequireNotEmpty checks that a slice has at least one element.
func RequireNotEmpty[T any](items []T, errMsg string) *CommandError {
	if len(items) == 0 {
		return NewFailedPrecondition(errMsg)
	}
	return nil
}

// RequireLength checks that a string has exactly n characters.
func RequireLength(value string, n int, errMsg string) *CommandError {
	if len([]rune(value)) != n {
		return NewInvalidArgument(errMsg)
	}
	return nil
}

// RequireStatus checks that the current status matches the expected value.
func RequireStatus[S ~string](actual, expected S, errMsg string) *CommandError {
	if actual != expected {
		return NewFailedPrecondition(errMsg)
	}
	return nil
}

// RequireStatusNot checks that the current status is NOT the forbidden value.
func RequireStatusNot[S ~string](actual, forbidden S, errMsg string) *CommandError {
	if actual == forbidden {
		return NewFailedPrecondition(errMsg)
	}
	return nil
}
