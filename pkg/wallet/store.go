package wallet

import "context"

// Store is the persistence contract used by Service. Implementations must
// make every mutating primitive atomic with respect to the wallet row it
// touches: DebitBalance checks and decrements in a single conditional
// statement, and WithTx scopes a group of primitives to one transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetOrCreateWallet(ctx context.Context, userID UserID, currency string) (Wallet, error)
	GetWallet(ctx context.Context, userID UserID) (Wallet, error)
	// AddToBalance unconditionally raises the wallet balance by amount.
	AddToBalance(ctx context.Context, walletID WalletID, amount PositiveAmountCents) error
	// DebitBalance lowers the balance by amount, failing with
	// ErrInsufficientFunds when the balance would go negative. The check and
	// the decrement are indivisible.
	DebitBalance(ctx context.Context, walletID WalletID, amount PositiveAmountCents) error
	InsertEntry(ctx context.Context, entry Entry) error
	GetEntry(ctx context.Context, entryID EntryID) (Entry, error)
	// FinalizeEntry moves a pending entry to its decided kind and status,
	// failing with ErrEntryNotPending unless the entry is still pending.
	FinalizeEntry(ctx context.Context, entryID EntryID, kind EntryKind, status EntryStatus, resolvedUnixUTC int64) error
	ListEntries(ctx context.Context, walletID WalletID, limit int) ([]Entry, error)
	ListAllEntries(ctx context.Context, limit int) ([]Entry, error)
	ListEntriesByKindStatus(ctx context.Context, kind EntryKind, status EntryStatus) ([]Entry, error)
	SumEntryAmounts(ctx context.Context, kind EntryKind, status EntryStatus) (int64, error)
	CountEntries(ctx context.Context, kind EntryKind, status EntryStatus) (int64, error)
	CountWallets(ctx context.Context) (int64, error)
	SumBalances(ctx context.Context) (int64, error)
}
