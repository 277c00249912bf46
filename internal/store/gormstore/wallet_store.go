package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultMetadataJSON = "{}"

	errorOperationStore = "store"
	errorSubjectWallet  = "wallet"
	errorSubjectEntry   = "entry"
	errorSubjectBalance = "balance"
	errorSubjectEvent   = "event"
	errorSubjectBet     = "bet"
	errorCodeCreate     = "create"
	errorCodeDuplicate  = "duplicate"
	errorCodeGet        = "get"
	errorCodeInsert     = "insert"
	errorCodeInvalid    = "invalid"
	errorCodeList       = "list"
	errorCodeLookup     = "lookup"
	errorCodeUpdate     = "update"
	errorCodeSum        = "sum"
	errorCodeCount      = "count"
)

// WalletStore implements wallet.Store using GORM.
type WalletStore struct {
	db *gorm.DB
}

// NewWalletStore returns a WalletStore backed by gorm.DB.
func NewWalletStore(db *gorm.DB) *WalletStore {
	return &WalletStore{db: db}
}

// WithTx executes fn within a transaction.
func (store *WalletStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore wallet.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &WalletStore{db: transaction})
	})
}

func (store *WalletStore) GetOrCreateWallet(ctx context.Context, userID wallet.UserID, currency string) (wallet.Wallet, error) {
	var row Wallet
	err := store.db.WithContext(ctx).
		Where(Wallet{UserID: userID.String()}).
		Attrs(Wallet{Currency: currency, CreatedAt: time.Now().UTC()}).
		FirstOrCreate(&row).Error
	if err != nil {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeLookup, err)
	}
	return mapWallet(row)
}

func (store *WalletStore) GetWallet(ctx context.Context, userID wallet.UserID) (wallet.Wallet, error) {
	var row Wallet
	err := store.db.WithContext(ctx).Where("user_id = ?", userID.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, wallet.ErrUnknownWallet)
		}
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeGet, err)
	}
	return mapWallet(row)
}

func (store *WalletStore) AddToBalance(ctx context.Context, walletID wallet.WalletID, amount wallet.PositiveAmountCents) error {
	result := store.db.WithContext(ctx).
		Model(&Wallet{}).
		Where("wallet_id = ?", walletID.String()).
		Update("balance_cents", gorm.Expr("balance_cents + ?", amount.Int64()))
	if result.Error != nil {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, wallet.ErrUnknownWallet)
	}
	return nil
}

// DebitBalance performs the balance check and the decrement in one
// conditional statement so two concurrent debits can never both observe a
// stale balance and drive it negative.
func (store *WalletStore) DebitBalance(ctx context.Context, walletID wallet.WalletID, amount wallet.PositiveAmountCents) error {
	result := store.db.WithContext(ctx).
		Model(&Wallet{}).
		Where("wallet_id = ? AND balance_cents >= ?", walletID.String(), amount.Int64()).
		Update("balance_cents", gorm.Expr("balance_cents - ?", amount.Int64()))
	if result.Error != nil {
		return wrapStoreError(errorSubjectBalance, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := store.db.WithContext(ctx).Model(&Wallet{}).Where("wallet_id = ?", walletID.String()).Count(&exists).Error; err != nil {
			return wrapStoreError(errorSubjectBalance, errorCodeUpdate, err)
		}
		if exists == 0 {
			return wrapStoreError(errorSubjectBalance, errorCodeUpdate, wallet.ErrUnknownWallet)
		}
		return wallet.ErrInsufficientFunds
	}
	return nil
}

func (store *WalletStore) InsertEntry(ctx context.Context, entry wallet.Entry) error {
	var resolvedAt *time.Time
	if entry.ResolvedUnixUTC != 0 {
		value := time.Unix(entry.ResolvedUnixUTC, 0).UTC()
		resolvedAt = &value
	}
	row := LedgerEntry{
		EntryID:     entry.EntryID.String(),
		WalletID:    entry.WalletID.String(),
		Kind:        entry.Kind.String(),
		AmountCents: entry.Amount.Int64(),
		Status:      entry.Status.String(),
		Reference:   entry.Reference,
		Metadata:    datatypesJSON(entry.Metadata.String()),
		CreatedAt:   time.Unix(entry.CreatedUnixUTC, 0).UTC(),
		ResolvedAt:  resolvedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	return nil
}

func (store *WalletStore) GetEntry(ctx context.Context, entryID wallet.EntryID) (wallet.Entry, error) {
	var row LedgerEntry
	err := store.db.WithContext(ctx).Where("entry_id = ?", entryID.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return wallet.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeGet, wallet.ErrUnknownEntry)
		}
		return wallet.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeGet, err)
	}
	entry, err := mapLedgerEntry(row)
	if err != nil {
		return wallet.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	return entry, nil
}

func (store *WalletStore) FinalizeEntry(ctx context.Context, entryID wallet.EntryID, kind wallet.EntryKind, status wallet.EntryStatus, resolvedUnixUTC int64) error {
	resolvedAt := time.Unix(resolvedUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Where("entry_id = ? AND status = ?", entryID.String(), wallet.EntryStatusPending.String()).
		Updates(map[string]interface{}{
			"kind":        kind.String(),
			"status":      status.String(),
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectEntry, errorCodeUpdate, wallet.ErrEntryNotPending)
	}
	return nil
}

func (store *WalletStore) ListEntries(ctx context.Context, walletID wallet.WalletID, limit int) ([]wallet.Entry, error) {
	var rows []LedgerEntry
	err := store.db.WithContext(ctx).
		Where("wallet_id = ?", walletID.String()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	return mapLedgerEntries(rows)
}

func (store *WalletStore) ListAllEntries(ctx context.Context, limit int) ([]wallet.Entry, error) {
	var rows []LedgerEntry
	err := store.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	return mapLedgerEntries(rows)
}

func (store *WalletStore) ListEntriesByKindStatus(ctx context.Context, kind wallet.EntryKind, status wallet.EntryStatus) ([]wallet.Entry, error) {
	var rows []LedgerEntry
	err := store.db.WithContext(ctx).
		Where("kind = ? AND status = ?", kind.String(), status.String()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	return mapLedgerEntries(rows)
}

func (store *WalletStore) SumEntryAmounts(ctx context.Context, kind wallet.EntryKind, status wallet.EntryStatus) (int64, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Select("coalesce(sum(amount_cents),0) as total").
		Where("kind = ? AND status = ?", kind.String(), status.String()).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeSum, err)
	}
	return sum.Total, nil
}

func (store *WalletStore) CountEntries(ctx context.Context, kind wallet.EntryKind, status wallet.EntryStatus) (int64, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Where("kind = ? AND status = ?", kind.String(), status.String()).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeCount, err)
	}
	return count, nil
}

func (store *WalletStore) CountWallets(ctx context.Context) (int64, error) {
	var count int64
	if err := store.db.WithContext(ctx).Model(&Wallet{}).Count(&count).Error; err != nil {
		return 0, wrapStoreError(errorSubjectWallet, errorCodeCount, err)
	}
	return count, nil
}

func (store *WalletStore) SumBalances(ctx context.Context) (int64, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&Wallet{}).
		Select("coalesce(sum(balance_cents),0) as total").
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectBalance, errorCodeSum, err)
	}
	return sum.Total, nil
}

type sqlSum struct {
	Total int64
}

func wrapStoreError(subject string, code string, err error) error {
	return wallet.WrapError(errorOperationStore, subject, code, err)
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func mapWallet(row Wallet) (wallet.Wallet, error) {
	walletID, err := wallet.NewWalletID(row.WalletID)
	if err != nil {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeInvalid, err)
	}
	userID, err := wallet.NewUserID(row.UserID)
	if err != nil {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeInvalid, err)
	}
	balance, err := wallet.NewAmountCents(row.BalanceCents)
	if err != nil {
		return wallet.Wallet{}, wrapStoreError(errorSubjectWallet, errorCodeInvalid, err)
	}
	return wallet.Wallet{
		WalletID:       walletID,
		UserID:         userID,
		Balance:        balance,
		Currency:       row.Currency,
		CreatedUnixUTC: row.CreatedAt.Unix(),
	}, nil
}

func mapLedgerEntries(rows []LedgerEntry) ([]wallet.Entry, error) {
	entries := make([]wallet.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapLedgerEntry(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func mapLedgerEntry(row LedgerEntry) (wallet.Entry, error) {
	entryID, err := wallet.NewEntryID(row.EntryID)
	if err != nil {
		return wallet.Entry{}, err
	}
	walletID, err := wallet.NewWalletID(row.WalletID)
	if err != nil {
		return wallet.Entry{}, err
	}
	kind, err := wallet.ParseEntryKind(row.Kind)
	if err != nil {
		return wallet.Entry{}, err
	}
	amount, err := wallet.NewPositiveAmountCents(row.AmountCents)
	if err != nil {
		return wallet.Entry{}, err
	}
	status, err := wallet.ParseEntryStatus(row.Status)
	if err != nil {
		return wallet.Entry{}, err
	}
	metadata, err := wallet.NewMetadataJSON(string(row.Metadata))
	if err != nil {
		return wallet.Entry{}, err
	}
	return wallet.Entry{
		EntryID:         entryID,
		WalletID:        walletID,
		Kind:            kind,
		Amount:          amount,
		Status:          status,
		Reference:       row.Reference,
		Metadata:        metadata,
		CreatedUnixUTC:  row.CreatedAt.Unix(),
		ResolvedUnixUTC: timeOrZero(row.ResolvedAt),
	}, nil
}

func timeOrZero(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return value.Unix()
}
