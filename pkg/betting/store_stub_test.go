package betting

import (
	"context"
	"fmt"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
)

// stubStore is an in-memory betting.Store for the service tests. Its wallet
// view shares the same state, mirroring how the persistent stores share one
// database handle.
type stubStore struct {
	events  map[EventID]Event
	bets    map[BetID]Bet
	betKeys map[string]struct{}
	order   []BetID
	wallets *stubWalletStore
}

func newStubStore() *stubStore {
	return &stubStore{
		events:  make(map[EventID]Event),
		bets:    make(map[BetID]Bet),
		betKeys: make(map[string]struct{}),
		wallets: newStubWalletStore(),
	}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) Wallets() wallet.Store {
	return store.wallets
}

func (store *stubStore) CreateEvent(ctx context.Context, event Event) error {
	store.events[event.EventID] = event
	return nil
}

func (store *stubStore) GetEvent(ctx context.Context, eventID EventID) (Event, error) {
	event, exists := store.events[eventID]
	if !exists {
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

func (store *stubStore) EnsureEventOpen(ctx context.Context, eventID EventID) error {
	event, exists := store.events[eventID]
	if !exists {
		return ErrEventNotFound
	}
	if event.Status != EventStatusOpen {
		return ErrBettingClosed
	}
	return nil
}

func (store *stubStore) FinalizeEvent(ctx context.Context, eventID EventID, toStatus EventStatus, winningOption string, resolvedUnixUTC int64) error {
	event, exists := store.events[eventID]
	if !exists {
		return ErrEventNotFound
	}
	if event.Status != EventStatusOpen {
		return ErrEventFinalized
	}
	event.Status = toStatus
	event.WinningOption = winningOption
	event.ResolvedUnixUTC = resolvedUnixUTC
	store.events[eventID] = event
	return nil
}

func (store *stubStore) ListEventsByStatus(ctx context.Context, status EventStatus) ([]Event, error) {
	matched := make([]Event, 0)
	for _, event := range store.events {
		if event.Status == status {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

func (store *stubStore) ListFinalizedEventsWithPendingBets(ctx context.Context) ([]Event, error) {
	matched := make([]Event, 0)
	for _, event := range store.events {
		if event.Status == EventStatusOpen {
			continue
		}
		for _, bet := range store.bets {
			if bet.EventID == event.EventID && bet.Status == BetStatusPending {
				matched = append(matched, event)
				break
			}
		}
	}
	return matched, nil
}

func (store *stubStore) CreateBet(ctx context.Context, bet Bet) error {
	key := fmt.Sprintf("%s|%s", bet.UserID.String(), bet.EventID.String())
	if _, exists := store.betKeys[key]; exists {
		return ErrDuplicateBet
	}
	store.betKeys[key] = struct{}{}
	store.bets[bet.BetID] = bet
	store.order = append(store.order, bet.BetID)
	return nil
}

func (store *stubStore) SettleBet(ctx context.Context, betID BetID, toStatus BetStatus, resolvedUnixUTC int64) error {
	bet, exists := store.bets[betID]
	if !exists {
		return ErrBetNotPending
	}
	if bet.Status != BetStatusPending {
		return ErrBetNotPending
	}
	bet.Status = toStatus
	bet.ResolvedUnixUTC = resolvedUnixUTC
	store.bets[betID] = bet
	return nil
}

func (store *stubStore) ListPendingBets(ctx context.Context, eventID EventID) ([]Bet, error) {
	matched := make([]Bet, 0)
	for _, betID := range store.order {
		bet := store.bets[betID]
		if bet.EventID == eventID && bet.Status == BetStatusPending {
			matched = append(matched, bet)
		}
	}
	return matched, nil
}

func (store *stubStore) ListBetsByUser(ctx context.Context, userID wallet.UserID) ([]Bet, error) {
	matched := make([]Bet, 0)
	for _, betID := range store.order {
		bet := store.bets[betID]
		if bet.UserID == userID {
			matched = append(matched, bet)
		}
	}
	return matched, nil
}

func (store *stubStore) ListAllBets(ctx context.Context, limit int) ([]Bet, error) {
	matched := make([]Bet, 0, len(store.order))
	for _, betID := range store.order {
		matched = append(matched, store.bets[betID])
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (store *stubStore) CountBets(ctx context.Context, eventID EventID) (int64, int64, error) {
	total, pending := int64(0), int64(0)
	for _, bet := range store.bets {
		if bet.EventID != eventID {
			continue
		}
		total++
		if bet.Status == BetStatusPending {
			pending++
		}
	}
	return total, pending, nil
}

func (store *stubStore) BetBreakdown(ctx context.Context) (map[BetStatus]BreakdownRow, error) {
	breakdown := make(map[BetStatus]BreakdownRow)
	for _, bet := range store.bets {
		row := breakdown[bet.Status]
		row.Count++
		row.TotalStakeCents += bet.Stake.Int64()
		breakdown[bet.Status] = row
	}
	return breakdown, nil
}

// stubWalletStore is a minimal in-memory wallet.Store backing the betting
// service tests.
type stubWalletStore struct {
	walletsByUser map[string]*stubWalletAccount
	entries       []wallet.Entry
	nextWalletID  int
}

type stubWalletAccount struct {
	walletID string
	userID   string
	balance  int64
}

func newStubWalletStore() *stubWalletStore {
	return &stubWalletStore{walletsByUser: make(map[string]*stubWalletAccount)}
}

func (store *stubWalletStore) balanceOf(userID wallet.UserID) int64 {
	account, exists := store.walletsByUser[userID.String()]
	if !exists {
		return 0
	}
	return account.balance
}

func (store *stubWalletStore) credit(userID wallet.UserID, cents int64) {
	account := store.getOrCreate(userID.String())
	account.balance += cents
}

func (store *stubWalletStore) getOrCreate(userID string) *stubWalletAccount {
	account, exists := store.walletsByUser[userID]
	if !exists {
		store.nextWalletID++
		account = &stubWalletAccount{
			walletID: fmt.Sprintf("wallet-%d", store.nextWalletID),
			userID:   userID,
		}
		store.walletsByUser[userID] = account
	}
	return account
}

func (store *stubWalletStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore wallet.Store) error) error {
	return fn(ctx, store)
}

func (store *stubWalletStore) GetOrCreateWallet(ctx context.Context, userID wallet.UserID, currency string) (wallet.Wallet, error) {
	account := store.getOrCreate(userID.String())
	return store.toWallet(account, currency)
}

func (store *stubWalletStore) GetWallet(ctx context.Context, userID wallet.UserID) (wallet.Wallet, error) {
	account, exists := store.walletsByUser[userID.String()]
	if !exists {
		return wallet.Wallet{}, wallet.ErrUnknownWallet
	}
	return store.toWallet(account, wallet.DefaultCurrency)
}

func (store *stubWalletStore) AddToBalance(ctx context.Context, walletID wallet.WalletID, amount wallet.PositiveAmountCents) error {
	account := store.findWallet(walletID)
	if account == nil {
		return wallet.ErrUnknownWallet
	}
	account.balance += amount.Int64()
	return nil
}

func (store *stubWalletStore) DebitBalance(ctx context.Context, walletID wallet.WalletID, amount wallet.PositiveAmountCents) error {
	account := store.findWallet(walletID)
	if account == nil {
		return wallet.ErrUnknownWallet
	}
	if account.balance < amount.Int64() {
		return wallet.ErrInsufficientFunds
	}
	account.balance -= amount.Int64()
	return nil
}

func (store *stubWalletStore) InsertEntry(ctx context.Context, entry wallet.Entry) error {
	store.entries = append(store.entries, entry)
	return nil
}

func (store *stubWalletStore) GetEntry(ctx context.Context, entryID wallet.EntryID) (wallet.Entry, error) {
	for _, entry := range store.entries {
		if entry.EntryID == entryID {
			return entry, nil
		}
	}
	return wallet.Entry{}, wallet.ErrUnknownEntry
}

func (store *stubWalletStore) FinalizeEntry(ctx context.Context, entryID wallet.EntryID, kind wallet.EntryKind, status wallet.EntryStatus, resolvedUnixUTC int64) error {
	for index, entry := range store.entries {
		if entry.EntryID != entryID {
			continue
		}
		if entry.Status != wallet.EntryStatusPending {
			return wallet.ErrEntryNotPending
		}
		entry.Kind = kind
		entry.Status = status
		entry.ResolvedUnixUTC = resolvedUnixUTC
		store.entries[index] = entry
		return nil
	}
	return wallet.ErrUnknownEntry
}

func (store *stubWalletStore) ListEntries(ctx context.Context, walletID wallet.WalletID, limit int) ([]wallet.Entry, error) {
	matched := make([]wallet.Entry, 0)
	for _, entry := range store.entries {
		if entry.WalletID == walletID {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (store *stubWalletStore) ListAllEntries(ctx context.Context, limit int) ([]wallet.Entry, error) {
	return append([]wallet.Entry(nil), store.entries...), nil
}

func (store *stubWalletStore) ListEntriesByKindStatus(ctx context.Context, kind wallet.EntryKind, status wallet.EntryStatus) ([]wallet.Entry, error) {
	matched := make([]wallet.Entry, 0)
	for _, entry := range store.entries {
		if entry.Kind == kind && entry.Status == status {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (store *stubWalletStore) SumEntryAmounts(ctx context.Context, kind wallet.EntryKind, status wallet.EntryStatus) (int64, error) {
	sum := int64(0)
	for _, entry := range store.entries {
		if entry.Kind == kind && entry.Status == status {
			sum += entry.Amount.Int64()
		}
	}
	return sum, nil
}

func (store *stubWalletStore) CountEntries(ctx context.Context, kind wallet.EntryKind, status wallet.EntryStatus) (int64, error) {
	count := int64(0)
	for _, entry := range store.entries {
		if entry.Kind == kind && entry.Status == status {
			count++
		}
	}
	return count, nil
}

func (store *stubWalletStore) CountWallets(ctx context.Context) (int64, error) {
	return int64(len(store.walletsByUser)), nil
}

func (store *stubWalletStore) SumBalances(ctx context.Context) (int64, error) {
	sum := int64(0)
	for _, account := range store.walletsByUser {
		sum += account.balance
	}
	return sum, nil
}

func (store *stubWalletStore) findWallet(walletID wallet.WalletID) *stubWalletAccount {
	for _, account := range store.walletsByUser {
		if account.walletID == walletID.String() {
			return account
		}
	}
	return nil
}

func (store *stubWalletStore) toWallet(account *stubWalletAccount, currency string) (wallet.Wallet, error) {
	walletID, err := wallet.NewWalletID(account.walletID)
	if err != nil {
		return wallet.Wallet{}, err
	}
	userID, err := wallet.NewUserID(account.userID)
	if err != nil {
		return wallet.Wallet{}, err
	}
	balance, err := wallet.NewAmountCents(account.balance)
	if err != nil {
		return wallet.Wallet{}, err
	}
	return wallet.Wallet{
		WalletID: walletID,
		UserID:   userID,
		Balance:  balance,
		Currency: currency,
	}, nil
}
