package wallet

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AmountCents is an integer currency amount in minor units. It may be zero
// (an empty balance) but never negative.
type AmountCents int64

// PositiveAmountCents is an operation amount, strictly greater than zero.
type PositiveAmountCents int64

// UserID identifies a wallet owner.
type UserID struct {
	value string
}

// WalletID identifies a wallet record.
type WalletID struct {
	value string
}

// EntryID identifies a ledger entry.
type EntryID struct {
	value string
}

// MetadataJSON stores arbitrary request metadata attached to an entry.
type MetadataJSON struct {
	value string
}

// EntryKind enumerates ledger entry kinds.
type EntryKind string

const (
	EntryDeposit            EntryKind = "deposit"
	EntryBetStake           EntryKind = "bet_stake"
	EntryBetWinnings        EntryKind = "bet_winnings"
	EntryBetRefund          EntryKind = "bet_refund"
	EntryWithdrawalHold     EntryKind = "withdrawal_hold"
	EntryWithdrawalApproved EntryKind = "withdrawal_approved"
	EntryWithdrawalDeclined EntryKind = "withdrawal_declined"
)

// EntryStatus enumerates ledger entry statuses. An entry is immutable once
// completed, approved, or declined; only pending withdrawal holds transition.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusApproved  EntryStatus = "approved"
	EntryStatusDeclined  EntryStatus = "declined"
)

// Wallet is the per-user spendable balance record.
type Wallet struct {
	WalletID       WalletID
	UserID         UserID
	Balance        AmountCents
	Currency       string
	CreatedUnixUTC int64
}

// Entry is a single line in the funds-movement ledger.
type Entry struct {
	EntryID         EntryID
	WalletID        WalletID
	Kind            EntryKind
	Amount          PositiveAmountCents
	Status          EntryStatus
	Reference       string
	Metadata        MetadataJSON
	CreatedUnixUTC  int64
	ResolvedUnixUTC int64
}

// Balance is the spendable-balance view for an owner.
type Balance struct {
	BalanceCents AmountCents
	Currency     string
}

// LedgerTotals aggregates system-wide ledger figures for reporting.
type LedgerTotals struct {
	WalletCount            int64
	TotalBalanceCents      int64
	TotalDepositCents      int64
	TotalWithdrawnCents    int64
	PendingWithdrawalCount int64
	PendingWithdrawalCents int64
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// NewWalletID validates and normalizes a wallet id.
func NewWalletID(raw string) (WalletID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return WalletID{}, fmt.Errorf("%w: empty value", ErrInvalidWalletID)
	}
	return WalletID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id WalletID) String() string {
	return id.value
}

// NewEntryID validates and normalizes an entry id.
func NewEntryID(raw string) (EntryID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EntryID{}, fmt.Errorf("%w: empty value", ErrInvalidEntryID)
	}
	return EntryID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id EntryID) String() string {
	return id.value
}

// NewMetadataJSON validates metadata (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = "{}"
	}
	if !json.Valid([]byte(normalized)) {
		return MetadataJSON{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// String returns the normalized JSON blob.
func (metadata MetadataJSON) String() string {
	return metadata.value
}

// NewAmountCents validates a non-negative amount.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw minor-unit value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// NewPositiveAmountCents validates a strictly positive operation amount.
func NewPositiveAmountCents(raw int64) (PositiveAmountCents, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmountCents)
	}
	return PositiveAmountCents(raw), nil
}

// Int64 returns the raw minor-unit value.
func (amount PositiveAmountCents) Int64() int64 {
	return int64(amount)
}

// ToAmountCents widens an operation amount into a balance amount.
func (amount PositiveAmountCents) ToAmountCents() AmountCents {
	return AmountCents(amount)
}

// ParseEntryKind validates a stored entry kind.
func ParseEntryKind(raw string) (EntryKind, error) {
	switch kind := EntryKind(raw); kind {
	case EntryDeposit, EntryBetStake, EntryBetWinnings, EntryBetRefund,
		EntryWithdrawalHold, EntryWithdrawalApproved, EntryWithdrawalDeclined:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryKind, raw)
	}
}

// String returns the stored representation.
func (kind EntryKind) String() string {
	return string(kind)
}

// Sign reports the direction a kind applies to the balance: +1 for credits,
// -1 for debits.
func (kind EntryKind) Sign() int64 {
	switch kind {
	case EntryBetStake, EntryWithdrawalHold, EntryWithdrawalApproved, EntryWithdrawalDeclined:
		return -1
	default:
		return +1
	}
}

// ParseEntryStatus validates a stored entry status.
func ParseEntryStatus(raw string) (EntryStatus, error) {
	switch status := EntryStatus(raw); status {
	case EntryStatusPending, EntryStatusCompleted, EntryStatusApproved, EntryStatusDeclined:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryStatus, raw)
	}
}

// String returns the stored representation.
func (status EntryStatus) String() string {
	return string(status)
}

// CountsTowardBalance reports whether an entry contributes to the wallet
// balance. Declined holds were credited back and drop out of the sum; pending
// holds already removed funds from the spendable balance and stay in.
func (entry Entry) CountsTowardBalance() bool {
	return entry.Status != EntryStatusDeclined
}

// SignedAmountCents is the entry's contribution to the owner's balance.
func (entry Entry) SignedAmountCents() int64 {
	return entry.Kind.Sign() * entry.Amount.Int64()
}
