package betting

import (
	"context"
	"errors"
	"testing"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
)

func TestResolveEventPaysWinnersAndMarksLosers(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	winner := mustUserID(test, "winner")
	loser := mustUserID(test, "loser")
	store.wallets.credit(winner, 10000)
	store.wallets.credit(loser, 10000)
	event := mustCreateEvent(test, service, twoWayOptions(test)...)

	winningBet, err := service.PlaceBet(context.Background(), winner, event.EventID, mustPositiveAmount(test, 1000), "home")
	if err != nil {
		test.Fatalf("winning bet: %v", err)
	}
	if _, err := service.PlaceBet(context.Background(), loser, event.EventID, mustPositiveAmount(test, 2000), "away"); err != nil {
		test.Fatalf("losing bet: %v", err)
	}

	if err := service.ResolveEvent(context.Background(), event.EventID, "home"); err != nil {
		test.Fatalf("resolve: %v", err)
	}

	// Winner staked 1000 at 2.50: balance 10000 - 1000 + 2500.
	if got := store.wallets.balanceOf(winner); got != 11500 {
		test.Fatalf("expected winner balance 11500, got %d", got)
	}
	if got := store.wallets.balanceOf(loser); got != 8000 {
		test.Fatalf("expected loser balance 8000, got %d", got)
	}
	if store.bets[winningBet.BetID].Status != BetStatusWon {
		test.Fatalf("expected winning bet marked won")
	}
	resolved, err := store.GetEvent(context.Background(), event.EventID)
	if err != nil {
		test.Fatalf("get event: %v", err)
	}
	if resolved.Status != EventStatusResolved || resolved.WinningOption != "home" {
		test.Fatalf("unexpected event state %s/%q", resolved.Status, resolved.WinningOption)
	}
}

func TestResolveEventMatchesWinningOptionCaseInsensitively(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	event := mustCreateEvent(test, service, twoWayOptions(test)...)

	if err := service.ResolveEvent(context.Background(), event.EventID, "  HOME "); err != nil {
		test.Fatalf("resolve: %v", err)
	}
	resolved, err := store.GetEvent(context.Background(), event.EventID)
	if err != nil {
		test.Fatalf("get event: %v", err)
	}
	if resolved.WinningOption != "home" {
		test.Fatalf("expected canonical winning option, got %q", resolved.WinningOption)
	}
}

func TestResolveEventRejectsUnknownWinningOption(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	event := mustCreateEvent(test, service, twoWayOptions(test)...)

	err := service.ResolveEvent(context.Background(), event.EventID, "draw")
	if !errors.Is(err, ErrInvalidWinningOption) {
		test.Fatalf("expected ErrInvalidWinningOption, got %v", err)
	}
	unresolved, getError := store.GetEvent(context.Background(), event.EventID)
	if getError != nil {
		test.Fatalf("get event: %v", getError)
	}
	if unresolved.Status != EventStatusOpen {
		test.Fatalf("expected event still open, got %s", unresolved.Status)
	}
}

func TestResolveEventTwiceFailsWithoutDoublePay(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	winner := mustUserID(test, "repeat-winner")
	store.wallets.credit(winner, 10000)
	event := mustCreateEvent(test, service, twoWayOptions(test)...)

	if _, err := service.PlaceBet(context.Background(), winner, event.EventID, mustPositiveAmount(test, 1000), "home"); err != nil {
		test.Fatalf("bet: %v", err)
	}
	if err := service.ResolveEvent(context.Background(), event.EventID, "home"); err != nil {
		test.Fatalf("first resolve: %v", err)
	}
	err := service.ResolveEvent(context.Background(), event.EventID, "away")
	if !errors.Is(err, ErrEventFinalized) {
		test.Fatalf("expected ErrEventFinalized, got %v", err)
	}
	if got := store.wallets.balanceOf(winner); got != 11500 {
		test.Fatalf("balance changed on repeated resolve: %d", got)
	}
}

func TestCancelEventRefundsStakes(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	first := mustUserID(test, "cancel-first")
	second := mustUserID(test, "cancel-second")
	store.wallets.credit(first, 5000)
	store.wallets.credit(second, 5000)
	event := mustCreateEvent(test, service, twoWayOptions(test)...)

	firstBet, err := service.PlaceBet(context.Background(), first, event.EventID, mustPositiveAmount(test, 1500), "home")
	if err != nil {
		test.Fatalf("first bet: %v", err)
	}
	if _, err := service.PlaceBet(context.Background(), second, event.EventID, mustPositiveAmount(test, 700), "away"); err != nil {
		test.Fatalf("second bet: %v", err)
	}

	if err := service.CancelEvent(context.Background(), event.EventID); err != nil {
		test.Fatalf("cancel: %v", err)
	}
	if got := store.wallets.balanceOf(first); got != 5000 {
		test.Fatalf("expected first balance restored to 5000, got %d", got)
	}
	if got := store.wallets.balanceOf(second); got != 5000 {
		test.Fatalf("expected second balance restored to 5000, got %d", got)
	}
	if store.bets[firstBet.BetID].Status != BetStatusCancelled {
		test.Fatalf("expected bet marked cancelled")
	}
}

func TestResumeSettlementCompletesInterruptedPass(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	winner := mustUserID(test, "resume-winner")
	store.wallets.credit(winner, 10000)
	event := mustCreateEvent(test, service, twoWayOptions(test)...)

	bet, err := service.PlaceBet(context.Background(), winner, event.EventID, mustPositiveAmount(test, 1000), "home")
	if err != nil {
		test.Fatalf("bet: %v", err)
	}
	// Simulate a crash after the event flip but before the payout loop.
	if err := store.FinalizeEvent(context.Background(), event.EventID, EventStatusResolved, "home", 1700000100); err != nil {
		test.Fatalf("finalize event: %v", err)
	}
	if got := store.wallets.balanceOf(winner); got != 9000 {
		test.Fatalf("expected balance 9000 before resume, got %d", got)
	}

	if err := service.ResumeSettlement(context.Background(), event.EventID); err != nil {
		test.Fatalf("resume: %v", err)
	}
	if got := store.wallets.balanceOf(winner); got != 11500 {
		test.Fatalf("expected balance 11500 after resume, got %d", got)
	}
	if store.bets[bet.BetID].Status != BetStatusWon {
		test.Fatalf("expected bet marked won")
	}

	// A second resume settles nothing and pays nothing.
	if err := service.ResumeSettlement(context.Background(), event.EventID); err != nil {
		test.Fatalf("second resume: %v", err)
	}
	if got := store.wallets.balanceOf(winner); got != 11500 {
		test.Fatalf("balance changed on repeated resume: %d", got)
	}
}

func TestResumeSettlementRejectsOpenEvent(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	event := mustCreateEvent(test, service, twoWayOptions(test)...)

	err := service.ResumeSettlement(context.Background(), event.EventID)
	if !errors.Is(err, ErrEventStillOpen) {
		test.Fatalf("expected ErrEventStillOpen, got %v", err)
	}
}

func TestRecoverPendingSettlementsFindsInterruptedEvents(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	bettor := mustUserID(test, "recover-bettor")
	store.wallets.credit(bettor, 10000)

	interrupted := mustCreateEvent(test, service, twoWayOptions(test)...)
	clean := mustCreateEvent(test, service, twoWayOptions(test)...)

	if _, err := service.PlaceBet(context.Background(), bettor, interrupted.EventID, mustPositiveAmount(test, 1000), "away"); err != nil {
		test.Fatalf("bet: %v", err)
	}
	if err := store.FinalizeEvent(context.Background(), interrupted.EventID, EventStatusCancelled, "", 1700000100); err != nil {
		test.Fatalf("finalize event: %v", err)
	}
	if err := service.ResolveEvent(context.Background(), clean.EventID, "home"); err != nil {
		test.Fatalf("resolve clean event: %v", err)
	}

	recovered, err := service.RecoverPendingSettlements(context.Background())
	if err != nil {
		test.Fatalf("recover: %v", err)
	}
	if recovered != 1 {
		test.Fatalf("expected 1 recovered event, got %d", recovered)
	}
	// The cancelled event's stake comes back.
	if got := store.wallets.balanceOf(bettor); got != 10000 {
		test.Fatalf("expected balance restored to 10000, got %d", got)
	}
}

func TestSettlementRefundMatchesStakeNotPayout(test *testing.T) {
	test.Parallel()
	store := newStubStore()
	service := mustNewService(test, store)
	bettor := mustUserID(test, "refund-bettor")
	store.wallets.credit(bettor, 5000)
	event := mustCreateEvent(test, service, twoWayOptions(test)...)

	if _, err := service.PlaceBet(context.Background(), bettor, event.EventID, mustPositiveAmount(test, 2000), "home"); err != nil {
		test.Fatalf("bet: %v", err)
	}
	if err := service.CancelEvent(context.Background(), event.EventID); err != nil {
		test.Fatalf("cancel: %v", err)
	}
	refunds, err := store.wallets.ListEntriesByKindStatus(context.Background(), wallet.EntryBetRefund, wallet.EntryStatusCompleted)
	if err != nil {
		test.Fatalf("list refunds: %v", err)
	}
	if len(refunds) != 1 || refunds[0].Amount.Int64() != 2000 {
		test.Fatalf("expected one refund of 2000, got %+v", refunds)
	}
}
