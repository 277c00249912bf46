package wallet

import (
	"context"
	"fmt"
)

// WithdrawalManager fronts the hold primitives for the withdrawal flow:
// requesting a withdrawal parks the funds in a pending hold, and an operator
// decision releases or confirms them exactly once.
type WithdrawalManager struct {
	service *Service
}

// NewWithdrawalManager wires a WithdrawalManager.
func NewWithdrawalManager(service *Service) (*WithdrawalManager, error) {
	if service == nil {
		return nil, fmt.Errorf("%w: wallet service dependency is nil", ErrInvalidServiceConfig)
	}
	return &WithdrawalManager{service: service}, nil
}

// RequestWithdrawal places a hold for the amount. Fails with
// ErrInsufficientFunds when the spendable balance is too low.
func (manager *WithdrawalManager) RequestWithdrawal(ctx context.Context, userID UserID, amount PositiveAmountCents) (Entry, error) {
	return manager.service.Hold(ctx, userID, amount, MetadataJSON{})
}

// Decide approves or declines a pending withdrawal request. Deciding the
// same request twice fails with ErrEntryNotPending.
func (manager *WithdrawalManager) Decide(ctx context.Context, requestID EntryID, approve bool) (Entry, error) {
	return manager.service.FinalizeHold(ctx, requestID, approve)
}

// PendingRequests lists withdrawal holds awaiting a decision.
func (manager *WithdrawalManager) PendingRequests(ctx context.Context) ([]Entry, error) {
	return manager.service.store.ListEntriesByKindStatus(ctx, EntryWithdrawalHold, EntryStatusPending)
}
