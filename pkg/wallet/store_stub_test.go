package wallet

import (
	"context"
	"fmt"
	"sort"
)

// stubStore is an in-memory Store used by the service tests.
type stubStore struct {
	walletsByUser map[string]*stubWallet
	entries       []Entry
	nextWalletID  int
}

type stubWallet struct {
	walletID string
	userID   string
	balance  int64
	currency string
}

func newStubStore() *stubStore {
	return &stubStore{walletsByUser: make(map[string]*stubWallet)}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) GetOrCreateWallet(ctx context.Context, userID UserID, currency string) (Wallet, error) {
	account, exists := store.walletsByUser[userID.String()]
	if !exists {
		store.nextWalletID++
		account = &stubWallet{
			walletID: fmt.Sprintf("wallet-%d", store.nextWalletID),
			userID:   userID.String(),
			currency: currency,
		}
		store.walletsByUser[userID.String()] = account
	}
	return store.toWallet(account)
}

func (store *stubStore) GetWallet(ctx context.Context, userID UserID) (Wallet, error) {
	account, exists := store.walletsByUser[userID.String()]
	if !exists {
		return Wallet{}, ErrUnknownWallet
	}
	return store.toWallet(account)
}

func (store *stubStore) AddToBalance(ctx context.Context, walletID WalletID, amount PositiveAmountCents) error {
	account := store.findWallet(walletID)
	if account == nil {
		return ErrUnknownWallet
	}
	account.balance += amount.Int64()
	return nil
}

func (store *stubStore) DebitBalance(ctx context.Context, walletID WalletID, amount PositiveAmountCents) error {
	account := store.findWallet(walletID)
	if account == nil {
		return ErrUnknownWallet
	}
	if account.balance < amount.Int64() {
		return ErrInsufficientFunds
	}
	account.balance -= amount.Int64()
	return nil
}

func (store *stubStore) InsertEntry(ctx context.Context, entry Entry) error {
	store.entries = append(store.entries, entry)
	return nil
}

func (store *stubStore) GetEntry(ctx context.Context, entryID EntryID) (Entry, error) {
	for _, entry := range store.entries {
		if entry.EntryID == entryID {
			return entry, nil
		}
	}
	return Entry{}, ErrUnknownEntry
}

func (store *stubStore) FinalizeEntry(ctx context.Context, entryID EntryID, kind EntryKind, status EntryStatus, resolvedUnixUTC int64) error {
	for index, entry := range store.entries {
		if entry.EntryID != entryID {
			continue
		}
		if entry.Status != EntryStatusPending {
			return ErrEntryNotPending
		}
		entry.Kind = kind
		entry.Status = status
		entry.ResolvedUnixUTC = resolvedUnixUTC
		store.entries[index] = entry
		return nil
	}
	return ErrUnknownEntry
}

func (store *stubStore) ListEntries(ctx context.Context, walletID WalletID, limit int) ([]Entry, error) {
	matched := make([]Entry, 0)
	for _, entry := range store.entries {
		if entry.WalletID == walletID {
			matched = append(matched, entry)
		}
	}
	return capEntries(matched, limit), nil
}

func (store *stubStore) ListAllEntries(ctx context.Context, limit int) ([]Entry, error) {
	return capEntries(append([]Entry(nil), store.entries...), limit), nil
}

func (store *stubStore) ListEntriesByKindStatus(ctx context.Context, kind EntryKind, status EntryStatus) ([]Entry, error) {
	matched := make([]Entry, 0)
	for _, entry := range store.entries {
		if entry.Kind == kind && entry.Status == status {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (store *stubStore) SumEntryAmounts(ctx context.Context, kind EntryKind, status EntryStatus) (int64, error) {
	sum := int64(0)
	for _, entry := range store.entries {
		if entry.Kind == kind && entry.Status == status {
			sum += entry.Amount.Int64()
		}
	}
	return sum, nil
}

func (store *stubStore) CountEntries(ctx context.Context, kind EntryKind, status EntryStatus) (int64, error) {
	count := int64(0)
	for _, entry := range store.entries {
		if entry.Kind == kind && entry.Status == status {
			count++
		}
	}
	return count, nil
}

func (store *stubStore) CountWallets(ctx context.Context) (int64, error) {
	return int64(len(store.walletsByUser)), nil
}

func (store *stubStore) SumBalances(ctx context.Context) (int64, error) {
	userIDs := make([]string, 0, len(store.walletsByUser))
	for userID := range store.walletsByUser {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)
	sum := int64(0)
	for _, userID := range userIDs {
		sum += store.walletsByUser[userID].balance
	}
	return sum, nil
}

func (store *stubStore) findWallet(walletID WalletID) *stubWallet {
	for _, account := range store.walletsByUser {
		if account.walletID == walletID.String() {
			return account
		}
	}
	return nil
}

func (store *stubStore) toWallet(account *stubWallet) (Wallet, error) {
	walletID, err := NewWalletID(account.walletID)
	if err != nil {
		return Wallet{}, err
	}
	userID, err := NewUserID(account.userID)
	if err != nil {
		return Wallet{}, err
	}
	balance, err := NewAmountCents(account.balance)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{
		WalletID: walletID,
		UserID:   userID,
		Balance:  balance,
		Currency: account.currency,
	}, nil
}

func (store *stubStore) entryCountByKind(kind EntryKind) int {
	count := 0
	for _, entry := range store.entries {
		if entry.Kind == kind {
			count++
		}
	}
	return count
}

func capEntries(entries []Entry, limit int) []Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
