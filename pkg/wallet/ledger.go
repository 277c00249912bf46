package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// The helpers below are the shared building blocks for every balance
// mutation. They expect a transaction-scoped Store so that the balance
// change and the ledger entry commit as one unit, whether the caller is
// the wallet Service itself or the bet settlement pass.

// CreditWallet raises the owner's balance and appends a completed entry of
// the given credit kind.
func CreditWallet(ctx context.Context, store Store, nowUnixUTC int64, userID UserID, amount PositiveAmountCents, kind EntryKind, reference string, metadata MetadataJSON) (Entry, error) {
	if kind.Sign() != +1 {
		return Entry{}, fmt.Errorf("%w: %s is not a credit kind", ErrInvalidEntryKind, kind)
	}
	account, err := store.GetOrCreateWallet(ctx, userID, DefaultCurrency)
	if err != nil {
		return Entry{}, err
	}
	if err := store.AddToBalance(ctx, account.WalletID, amount); err != nil {
		return Entry{}, err
	}
	entry := newEntry(account.WalletID, kind, amount, EntryStatusCompleted, reference, metadata, nowUnixUTC)
	if err := store.InsertEntry(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// DebitWallet lowers the owner's balance and appends a completed entry of
// the given debit kind. Fails with ErrInsufficientFunds when the balance
// cannot cover the amount.
func DebitWallet(ctx context.Context, store Store, nowUnixUTC int64, userID UserID, amount PositiveAmountCents, kind EntryKind, reference string, metadata MetadataJSON) (Entry, error) {
	if kind.Sign() != -1 {
		return Entry{}, fmt.Errorf("%w: %s is not a debit kind", ErrInvalidEntryKind, kind)
	}
	account, err := store.GetOrCreateWallet(ctx, userID, DefaultCurrency)
	if err != nil {
		return Entry{}, err
	}
	if err := store.DebitBalance(ctx, account.WalletID, amount); err != nil {
		return Entry{}, err
	}
	entry := newEntry(account.WalletID, kind, amount, EntryStatusCompleted, reference, metadata, nowUnixUTC)
	if err := store.InsertEntry(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// HoldFunds removes the amount from the spendable balance and appends a
// pending withdrawal_hold entry awaiting an approve/decline decision.
func HoldFunds(ctx context.Context, store Store, nowUnixUTC int64, userID UserID, amount PositiveAmountCents, metadata MetadataJSON) (Entry, error) {
	account, err := store.GetOrCreateWallet(ctx, userID, DefaultCurrency)
	if err != nil {
		return Entry{}, err
	}
	if err := store.DebitBalance(ctx, account.WalletID, amount); err != nil {
		return Entry{}, err
	}
	entry := newEntry(account.WalletID, EntryWithdrawalHold, amount, EntryStatusPending, "", metadata, nowUnixUTC)
	if err := store.InsertEntry(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func newEntry(walletID WalletID, kind EntryKind, amount PositiveAmountCents, status EntryStatus, reference string, metadata MetadataJSON, nowUnixUTC int64) Entry {
	entryID, _ := NewEntryID(uuid.NewString())
	return Entry{
		EntryID:        entryID,
		WalletID:       walletID,
		Kind:           kind,
		Amount:         amount,
		Status:         status,
		Reference:      reference,
		Metadata:       metadata,
		CreatedUnixUTC: nowUnixUTC,
	}
}
