package wallet

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by wallet operations.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrUnknownWallet        = errors.New("unknown wallet")
	ErrUnknownEntry         = errors.New("unknown ledger entry")
	ErrEntryNotPending      = errors.New("ledger entry not pending")
	ErrNotWithdrawalHold    = errors.New("ledger entry is not a withdrawal hold")
	ErrInvalidUserID        = errors.New("invalid user id")
	ErrInvalidWalletID      = errors.New("invalid wallet id")
	ErrInvalidEntryID       = errors.New("invalid entry id")
	ErrInvalidAmountCents   = errors.New("invalid amount cents")
	ErrInvalidEntryKind     = errors.New("invalid entry kind")
	ErrInvalidEntryStatus   = errors.New("invalid entry status")
	ErrInvalidMetadataJSON  = errors.New("invalid metadata json")
	ErrInvalidServiceConfig = errors.New("invalid service config")
	ErrInvalidBalance       = errors.New("invalid balance")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
