package betting

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"github.com/google/uuid"
)

// Service contains the betting domain logic over a Store.
type Service struct {
	store  Store
	nowFn  func() int64
	idFn   func() string
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
	service := &Service{store: store, nowFn: now, idFn: uuid.NewString}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateEvent opens a new wagering market. At least two distinct options
// with positive odds are required.
func (service *Service) CreateEvent(ctx context.Context, title string, description string, options []OptionInput) (Event, error) {
	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle == "" {
		return Event{}, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	names, oddsTable, err := buildOptionTable(options)
	if err != nil {
		return Event{}, err
	}
	eventID, err := NewEventID(service.idFn())
	if err != nil {
		return Event{}, err
	}
	event := Event{
		EventID:        eventID,
		Title:          trimmedTitle,
		Description:    strings.TrimSpace(description),
		Options:        names,
		Odds:           oddsTable,
		Status:         EventStatusOpen,
		CreatedUnixUTC: service.nowFn(),
	}
	operationError := service.store.CreateEvent(ctx, event)
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateEvent,
		EventID:   event.EventID,
		Error:     operationError,
	})
	if operationError != nil {
		return Event{}, operationError
	}
	return event, nil
}

// PlaceBet places a single wager on an Open event. The bet insert and the
// stake debit commit in one transaction: a failure at any step leaves
// neither a debited wallet without a bet nor an unfunded bet.
func (service *Service) PlaceBet(ctx context.Context, userID wallet.UserID, eventID EventID, stake wallet.PositiveAmountCents, selectionText string) (Bet, error) {
	var bet Bet
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		event, err := transactionStore.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status != EventStatusOpen {
			return ErrBettingClosed
		}
		selection, ok := event.MatchOption(selectionText)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidSelection, NormalizeOption(selectionText))
		}
		// The write guard orders this placement against any concurrent
		// Resolve/Cancel: their status flip cannot commit between the Open
		// check above and this transaction's commit.
		if err := transactionStore.EnsureEventOpen(ctx, eventID); err != nil {
			return err
		}
		odds := event.Odds[selection]
		betID, err := NewBetID(service.idFn())
		if err != nil {
			return err
		}
		bet = Bet{
			BetID:           betID,
			UserID:          userID,
			EventID:         eventID,
			Stake:           stake,
			Selection:       selection,
			Odds:            odds,
			PotentialPayout: odds.Payout(stake),
			Status:          BetStatusPending,
			CreatedUnixUTC:  service.nowFn(),
		}
		if err := transactionStore.CreateBet(ctx, bet); err != nil {
			return err
		}
		_, err = wallet.DebitWallet(ctx, transactionStore.Wallets(), service.nowFn(), userID, stake, wallet.EntryBetStake, bet.BetID.String(), wallet.MetadataJSON{})
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationPlaceBet,
		UserID:    userID,
		EventID:   eventID,
		BetID:     bet.BetID,
		Amount:    stake.ToAmountCents(),
		Error:     operationError,
	})
	if operationError != nil {
		return Bet{}, operationError
	}
	return bet, nil
}

// OpenEvents lists markets accepting bets, newest first.
func (service *Service) OpenEvents(ctx context.Context) ([]Event, error) {
	return service.store.ListEventsByStatus(ctx, EventStatusOpen)
}

// PendingEvents lists open markets carrying at least one pending bet, for
// the operator dashboard.
func (service *Service) PendingEvents(ctx context.Context) ([]EventSummary, error) {
	events, err := service.store.ListEventsByStatus(ctx, EventStatusOpen)
	if err != nil {
		return nil, err
	}
	summaries := make([]EventSummary, 0, len(events))
	for _, event := range events {
		total, pending, err := service.store.CountBets(ctx, event.EventID)
		if err != nil {
			return nil, err
		}
		if pending == 0 {
			continue
		}
		summaries = append(summaries, EventSummary{
			EventID:        event.EventID,
			Title:          event.Title,
			Options:        event.Options,
			CreatedUnixUTC: event.CreatedUnixUTC,
			TotalBets:      total,
			PendingBets:    pending,
		})
	}
	return summaries, nil
}

// UserBets lists one user's wagers, newest first.
func (service *Service) UserBets(ctx context.Context, userID wallet.UserID) ([]Bet, error) {
	return service.store.ListBetsByUser(ctx, userID)
}

// AllBets lists recent wagers across all users.
func (service *Service) AllBets(ctx context.Context, limit int) ([]Bet, error) {
	return service.store.ListAllBets(ctx, limit)
}

// Breakdown aggregates bets by status.
func (service *Service) Breakdown(ctx context.Context) (map[BetStatus]BreakdownRow, error) {
	return service.store.BetBreakdown(ctx)
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
	service.logger.LogBetOperation(ctx, entry)
}
