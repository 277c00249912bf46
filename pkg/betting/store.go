package betting

import (
	"context"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
)

// Store is the persistence contract used by Service. Wallets() exposes the
// wallet store bound to the same database handle; inside WithTx it is
// scoped to the same transaction, which is how a bet status flip and its
// wallet credit commit as one unit.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	Wallets() wallet.Store

	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, eventID EventID) (Event, error)
	// EnsureEventOpen takes a write guard on the event row and fails with
	// ErrBettingClosed unless the event is still Open. Because it writes the
	// row, a concurrent FinalizeEvent cannot commit in between this check
	// and the caller's transaction commit.
	EnsureEventOpen(ctx context.Context, eventID EventID) error
	// FinalizeEvent compare-and-sets the status from Open, failing with
	// ErrEventFinalized when the event already left Open.
	FinalizeEvent(ctx context.Context, eventID EventID, toStatus EventStatus, winningOption string, resolvedUnixUTC int64) error
	ListEventsByStatus(ctx context.Context, status EventStatus) ([]Event, error)
	ListFinalizedEventsWithPendingBets(ctx context.Context) ([]Event, error)

	CreateBet(ctx context.Context, bet Bet) error
	// SettleBet compare-and-sets the bet status from Pending, failing with
	// ErrBetNotPending when the bet was already settled.
	SettleBet(ctx context.Context, betID BetID, toStatus BetStatus, resolvedUnixUTC int64) error
	ListPendingBets(ctx context.Context, eventID EventID) ([]Bet, error)
	ListBetsByUser(ctx context.Context, userID wallet.UserID) ([]Bet, error)
	ListAllBets(ctx context.Context, limit int) ([]Bet, error)
	CountBets(ctx context.Context, eventID EventID) (total int64, pending int64, err error)
	BetBreakdown(ctx context.Context) (map[BetStatus]BreakdownRow, error)
}
