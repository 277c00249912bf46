package wallet

import (
	"context"
	"fmt"
)

// Service contains the wallet domain logic over a Store.
type Service struct {
	store  Store
	nowFn  func() int64
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Store exposes the underlying persistence handle for collaborators that
// need to join wallet mutations into their own transactions.
func (service *Service) Store() Store {
	return service.store
}

// Balance returns the owner's spendable balance, creating the wallet on
// first use.
func (service *Service) Balance(ctx context.Context, userID UserID) (Balance, error) {
	account, err := service.store.GetOrCreateWallet(ctx, userID, DefaultCurrency)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		BalanceCents: account.Balance,
		Currency:     account.Currency,
	}, nil
}

// Deposit credits funds reported by the payment provider. The reference is
// the provider's order id; crediting happens only after the provider call
// succeeded, so this operation never talks to the provider itself.
func (service *Service) Deposit(ctx context.Context, userID UserID, amount PositiveAmountCents, reference string, metadata MetadataJSON) (Entry, error) {
	var entry Entry
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		var err error
		entry, err = CreditWallet(ctx, transactionStore, service.nowFn(), userID, amount, EntryDeposit, reference, metadata)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationDeposit,
		UserID:    userID,
		EntryID:   entry.EntryID,
		Kind:      EntryDeposit,
		Amount:    amount.ToAmountCents(),
		Reference: reference,
		Error:     operationError,
	})
	return entry, operationError
}

// Credit raises the owner's balance with a completed entry of the given
// credit kind (winnings, refunds).
func (service *Service) Credit(ctx context.Context, userID UserID, amount PositiveAmountCents, kind EntryKind, reference string) (Entry, error) {
	var entry Entry
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		var err error
		entry, err = CreditWallet(ctx, transactionStore, service.nowFn(), userID, amount, kind, reference, MetadataJSON{})
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCredit,
		UserID:    userID,
		EntryID:   entry.EntryID,
		Kind:      kind,
		Amount:    amount.ToAmountCents(),
		Reference: reference,
		Error:     operationError,
	})
	return entry, operationError
}

// Debit lowers the owner's balance with a completed entry of the given
// debit kind (stake capture). Fails with ErrInsufficientFunds when the
// balance cannot cover the amount.
func (service *Service) Debit(ctx context.Context, userID UserID, amount PositiveAmountCents, kind EntryKind, reference string) (Entry, error) {
	var entry Entry
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		var err error
		entry, err = DebitWallet(ctx, transactionStore, service.nowFn(), userID, amount, kind, reference, MetadataJSON{})
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationDebit,
		UserID:    userID,
		EntryID:   entry.EntryID,
		Kind:      kind,
		Amount:    amount.ToAmountCents(),
		Reference: reference,
		Error:     operationError,
	})
	return entry, operationError
}

// Hold reserves funds pending a later approve/decline decision. The amount
// leaves the spendable balance immediately so it cannot be re-spent or
// re-withdrawn while the request is outstanding.
func (service *Service) Hold(ctx context.Context, userID UserID, amount PositiveAmountCents, metadata MetadataJSON) (Entry, error) {
	var entry Entry
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		var err error
		entry, err = HoldFunds(ctx, transactionStore, service.nowFn(), userID, amount, metadata)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationHold,
		UserID:    userID,
		EntryID:   entry.EntryID,
		Kind:      EntryWithdrawalHold,
		Amount:    amount.ToAmountCents(),
		Error:     operationError,
	})
	return entry, operationError
}

// FinalizeHold decides a pending withdrawal hold. Approval marks the entry
// withdrawal_approved with no balance change (the funds already left the
// balance); decline credits the amount back and marks the entry
// withdrawal_declined. A second decision fails with ErrEntryNotPending.
func (service *Service) FinalizeHold(ctx context.Context, entryID EntryID, approve bool) (Entry, error) {
	var decided Entry
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		entry, err := transactionStore.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Kind != EntryWithdrawalHold {
			return fmt.Errorf("%w: kind %s", ErrNotWithdrawalHold, entry.Kind)
		}
		if entry.Status != EntryStatusPending {
			return ErrEntryNotPending
		}
		nowUnixUTC := service.nowFn()
		kind, status := EntryWithdrawalApproved, EntryStatusApproved
		if !approve {
			kind, status = EntryWithdrawalDeclined, EntryStatusDeclined
		}
		if err := transactionStore.FinalizeEntry(ctx, entryID, kind, status, nowUnixUTC); err != nil {
			return err
		}
		if !approve {
			if err := transactionStore.AddToBalance(ctx, entry.WalletID, entry.Amount); err != nil {
				return err
			}
		}
		decided = entry
		decided.Kind = kind
		decided.Status = status
		decided.ResolvedUnixUTC = nowUnixUTC
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationFinalizeHold,
		EntryID:   entryID,
		Kind:      decided.Kind,
		Amount:    AmountCents(decided.Amount),
		Error:     operationError,
	})
	return decided, operationError
}

// Statement lists the owner's most recent ledger entries.
func (service *Service) Statement(ctx context.Context, userID UserID, limit int) ([]Entry, error) {
	account, err := service.store.GetOrCreateWallet(ctx, userID, DefaultCurrency)
	if err != nil {
		return nil, err
	}
	return service.store.ListEntries(ctx, account.WalletID, limit)
}

// AllEntries lists recent ledger entries across all wallets.
func (service *Service) AllEntries(ctx context.Context, limit int) ([]Entry, error) {
	return service.store.ListAllEntries(ctx, limit)
}

// Totals aggregates system-wide ledger figures for the operator dashboard.
func (service *Service) Totals(ctx context.Context) (LedgerTotals, error) {
	totals := LedgerTotals{}
	var err error
	if totals.WalletCount, err = service.store.CountWallets(ctx); err != nil {
		return LedgerTotals{}, err
	}
	if totals.TotalBalanceCents, err = service.store.SumBalances(ctx); err != nil {
		return LedgerTotals{}, err
	}
	if totals.TotalDepositCents, err = service.store.SumEntryAmounts(ctx, EntryDeposit, EntryStatusCompleted); err != nil {
		return LedgerTotals{}, err
	}
	if totals.TotalWithdrawnCents, err = service.store.SumEntryAmounts(ctx, EntryWithdrawalApproved, EntryStatusApproved); err != nil {
		return LedgerTotals{}, err
	}
	if totals.PendingWithdrawalCount, err = service.store.CountEntries(ctx, EntryWithdrawalHold, EntryStatusPending); err != nil {
		return LedgerTotals{}, err
	}
	if totals.PendingWithdrawalCents, err = service.store.SumEntryAmounts(ctx, EntryWithdrawalHold, EntryStatusPending); err != nil {
		return LedgerTotals{}, err
	}
	return totals, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
