package betting

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
)

// Settlement transitions an event out of Open exactly once, then fans the
// payout or refund decision out to every pending bet. The event flip is a
// compare-and-set, so a second Resolve/Cancel fails with ErrEventFinalized
// before any bet is touched. Each bet settles in its own transaction with a
// compare-and-set from Pending guarding the wallet credit: re-running a
// partially applied pass skips every bet already settled and can never pay
// twice.

// ResolveEvent finalizes the event with the given winning option and pays
// out every pending bet: winners are credited stake*odds, losers are marked
// Lost with no funds movement.
func (service *Service) ResolveEvent(ctx context.Context, eventID EventID, winningRaw string) error {
	var winningOption string
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		event, err := transactionStore.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status != EventStatusOpen {
			return ErrEventFinalized
		}
		option, ok := event.MatchOption(winningRaw)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidWinningOption, NormalizeOption(winningRaw))
		}
		winningOption = option
		return transactionStore.FinalizeEvent(ctx, eventID, EventStatusResolved, option, service.nowFn())
	})
	if operationError == nil {
		operationError = service.settlePendingBets(ctx, eventID, winningOption, false)
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationResolveEvent,
		EventID:   eventID,
		Outcome:   winningOption,
		Error:     operationError,
	})
	return operationError
}

// CancelEvent finalizes the event as Cancelled and refunds the stake of
// every pending bet.
func (service *Service) CancelEvent(ctx context.Context, eventID EventID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		event, err := transactionStore.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status != EventStatusOpen {
			return ErrEventFinalized
		}
		return transactionStore.FinalizeEvent(ctx, eventID, EventStatusCancelled, "", service.nowFn())
	})
	if operationError == nil {
		operationError = service.settlePendingBets(ctx, eventID, "", true)
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationCancelEvent,
		EventID:   eventID,
		Error:     operationError,
	})
	return operationError
}

// ResumeSettlement re-runs the settlement pass for an event that already
// left Open. It is the crash-recovery path: any bet still Pending gets its
// payout or refund, every settled bet is skipped.
func (service *Service) ResumeSettlement(ctx context.Context, eventID EventID) error {
	event, err := service.store.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	switch event.Status {
	case EventStatusResolved:
		return service.settlePendingBets(ctx, eventID, event.WinningOption, false)
	case EventStatusCancelled:
		return service.settlePendingBets(ctx, eventID, "", true)
	default:
		return ErrEventStillOpen
	}
}

// RecoverPendingSettlements finds finalized events that still carry pending
// bets, the signature of a settlement pass interrupted mid-loop, and
// completes them. Run at startup.
func (service *Service) RecoverPendingSettlements(ctx context.Context) (int, error) {
	events, err := service.store.ListFinalizedEventsWithPendingBets(ctx)
	if err != nil {
		return 0, err
	}
	for _, event := range events {
		if err := service.ResumeSettlement(ctx, event.EventID); err != nil {
			return 0, err
		}
	}
	return len(events), nil
}

func (service *Service) settlePendingBets(ctx context.Context, eventID EventID, winningOption string, cancelled bool) error {
	bets, err := service.store.ListPendingBets(ctx, eventID)
	if err != nil {
		return err
	}
	for _, bet := range bets {
		toStatus := BetStatusLost
		creditKind := wallet.EntryKind("")
		creditCents := int64(0)
		switch {
		case cancelled:
			toStatus = BetStatusCancelled
			creditKind = wallet.EntryBetRefund
			creditCents = bet.Stake.Int64()
		case bet.Selection == winningOption:
			toStatus = BetStatusWon
			creditKind = wallet.EntryBetWinnings
			creditCents = bet.PotentialPayout.Int64()
		}
		settleError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			if err := transactionStore.SettleBet(ctx, bet.BetID, toStatus, service.nowFn()); err != nil {
				// Already settled by an earlier pass; skip without paying.
				if errors.Is(err, ErrBetNotPending) {
					return nil
				}
				return err
			}
			if creditCents == 0 {
				return nil
			}
			amount, err := wallet.NewPositiveAmountCents(creditCents)
			if err != nil {
				return err
			}
			_, err = wallet.CreditWallet(ctx, transactionStore.Wallets(), service.nowFn(), bet.UserID, amount, creditKind, bet.BetID.String(), wallet.MetadataJSON{})
			return err
		})
		service.logOperation(ctx, OperationLog{
			Operation: operationSettleBet,
			UserID:    bet.UserID,
			EventID:   eventID,
			BetID:     bet.BetID,
			Amount:    wallet.AmountCents(creditCents),
			Outcome:   toStatus.String(),
			Error:     settleError,
		})
		if settleError != nil {
			return settleError
		}
	}
	return nil
}
