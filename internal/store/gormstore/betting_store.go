package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/MarkoPoloResearchLab/betbook/pkg/betting"
	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
)

// BettingStore implements betting.Store using GORM. It shares the database
// handle with WalletStore so a settlement transaction spans both the bets
// table and the wallet ledger.
type BettingStore struct {
	db *gorm.DB
}

// NewBettingStore returns a BettingStore backed by gorm.DB.
func NewBettingStore(db *gorm.DB) *BettingStore {
	return &BettingStore{db: db}
}

// WithTx executes fn within a transaction. The Store handed to fn shares the
// transaction, as does its Wallets() view.
func (store *BettingStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore betting.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &BettingStore{db: transaction})
	})
}

// Wallets returns a wallet store bound to the same database handle.
func (store *BettingStore) Wallets() wallet.Store {
	return &WalletStore{db: store.db}
}

func (store *BettingStore) CreateEvent(ctx context.Context, event betting.Event) error {
	row, err := eventToRow(event)
	if err != nil {
		return wrapStoreError(errorSubjectEvent, errorCodeCreate, err)
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectEvent, errorCodeCreate, err)
	}
	return nil
}

func (store *BettingStore) GetEvent(ctx context.Context, eventID betting.EventID) (betting.Event, error) {
	var row BetEvent
	err := store.db.WithContext(ctx).Where("event_id = ?", eventID.String()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return betting.Event{}, wrapStoreError(errorSubjectEvent, errorCodeGet, betting.ErrEventNotFound)
		}
		return betting.Event{}, wrapStoreError(errorSubjectEvent, errorCodeGet, err)
	}
	event, err := rowToEvent(row)
	if err != nil {
		return betting.Event{}, wrapStoreError(errorSubjectEvent, errorCodeInvalid, err)
	}
	return event, nil
}

// EnsureEventOpen writes the event row conditionally on its status still
// being open. The no-op assignment is deliberate: the write conflicts with a
// concurrent FinalizeEvent, so one of the two transactions must wait and
// re-evaluate its predicate.
func (store *BettingStore) EnsureEventOpen(ctx context.Context, eventID betting.EventID) error {
	result := store.db.WithContext(ctx).
		Model(&BetEvent{}).
		Where("event_id = ? AND status = ?", eventID.String(), betting.EventStatusOpen.String()).
		Update("status", betting.EventStatusOpen.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectEvent, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := store.GetEvent(ctx, eventID); err != nil {
			return err
		}
		return betting.ErrBettingClosed
	}
	return nil
}

func (store *BettingStore) FinalizeEvent(ctx context.Context, eventID betting.EventID, toStatus betting.EventStatus, winningOption string, resolvedUnixUTC int64) error {
	resolvedAt := time.Unix(resolvedUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&BetEvent{}).
		Where("event_id = ? AND status = ?", eventID.String(), betting.EventStatusOpen.String()).
		Updates(map[string]interface{}{
			"status":         toStatus.String(),
			"winning_option": winningOption,
			"resolved_at":    resolvedAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectEvent, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := store.GetEvent(ctx, eventID); err != nil {
			return err
		}
		return betting.ErrEventFinalized
	}
	return nil
}

func (store *BettingStore) ListEventsByStatus(ctx context.Context, status betting.EventStatus) ([]betting.Event, error) {
	var rows []BetEvent
	err := store.db.WithContext(ctx).
		Where("status = ?", status.String()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEvent, errorCodeList, err)
	}
	return rowsToEvents(rows)
}

// ListFinalizedEventsWithPendingBets finds resolved or cancelled events that
// still have pending bets, which only happens when a settlement pass was
// interrupted.
func (store *BettingStore) ListFinalizedEventsWithPendingBets(ctx context.Context) ([]betting.Event, error) {
	pendingEvents := store.db.
		Model(&Bet{}).
		Select("event_id").
		Where("status = ?", betting.BetStatusPending.String())
	var rows []BetEvent
	err := store.db.WithContext(ctx).
		Where("status IN ?", []string{betting.EventStatusResolved.String(), betting.EventStatusCancelled.String()}).
		Where("event_id IN (?)", pendingEvents).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEvent, errorCodeList, err)
	}
	return rowsToEvents(rows)
}

func (store *BettingStore) CreateBet(ctx context.Context, bet betting.Bet) error {
	row := Bet{
		BetID:                bet.BetID.String(),
		UserID:               bet.UserID.String(),
		EventID:              bet.EventID.String(),
		StakeCents:           bet.Stake.Int64(),
		Selection:            bet.Selection,
		OddsHundredths:       bet.Odds.Int64(),
		PotentialPayoutCents: bet.PotentialPayout.Int64(),
		Status:               bet.Status.String(),
		CreatedAt:            time.Unix(bet.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return wrapStoreError(errorSubjectBet, errorCodeDuplicate, betting.ErrDuplicateBet)
		}
		return wrapStoreError(errorSubjectBet, errorCodeCreate, err)
	}
	return nil
}

func (store *BettingStore) SettleBet(ctx context.Context, betID betting.BetID, toStatus betting.BetStatus, resolvedUnixUTC int64) error {
	resolvedAt := time.Unix(resolvedUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&Bet{}).
		Where("bet_id = ? AND status = ?", betID.String(), betting.BetStatusPending.String()).
		Updates(map[string]interface{}{
			"status":      toStatus.String(),
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectBet, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return betting.ErrBetNotPending
	}
	return nil
}

func (store *BettingStore) ListPendingBets(ctx context.Context, eventID betting.EventID) ([]betting.Bet, error) {
	var rows []Bet
	err := store.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID.String(), betting.BetStatusPending.String()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBet, errorCodeList, err)
	}
	return rowsToBets(rows)
}

func (store *BettingStore) ListBetsByUser(ctx context.Context, userID wallet.UserID) ([]betting.Bet, error) {
	var rows []Bet
	err := store.db.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBet, errorCodeList, err)
	}
	return rowsToBets(rows)
}

func (store *BettingStore) ListAllBets(ctx context.Context, limit int) ([]betting.Bet, error) {
	var rows []Bet
	err := store.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBet, errorCodeList, err)
	}
	return rowsToBets(rows)
}

func (store *BettingStore) CountBets(ctx context.Context, eventID betting.EventID) (int64, int64, error) {
	var total int64
	err := store.db.WithContext(ctx).
		Model(&Bet{}).
		Where("event_id = ?", eventID.String()).
		Count(&total).Error
	if err != nil {
		return 0, 0, wrapStoreError(errorSubjectBet, errorCodeCount, err)
	}
	var pending int64
	err = store.db.WithContext(ctx).
		Model(&Bet{}).
		Where("event_id = ? AND status = ?", eventID.String(), betting.BetStatusPending.String()).
		Count(&pending).Error
	if err != nil {
		return 0, 0, wrapStoreError(errorSubjectBet, errorCodeCount, err)
	}
	return total, pending, nil
}

func (store *BettingStore) BetBreakdown(ctx context.Context) (map[betting.BetStatus]betting.BreakdownRow, error) {
	type breakdownScan struct {
		Status     string
		Count      int64
		TotalStake int64
	}
	var rows []breakdownScan
	err := store.db.WithContext(ctx).
		Model(&Bet{}).
		Select("status, count(*) as count, coalesce(sum(stake_cents),0) as total_stake").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectBet, errorCodeCount, err)
	}
	breakdown := make(map[betting.BetStatus]betting.BreakdownRow, len(rows))
	for _, row := range rows {
		status, err := betting.ParseBetStatus(row.Status)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBet, errorCodeInvalid, err)
		}
		breakdown[status] = betting.BreakdownRow{Count: row.Count, TotalStakeCents: row.TotalStake}
	}
	return breakdown, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

func eventToRow(event betting.Event) (BetEvent, error) {
	optionsJSON, err := json.Marshal(event.Options)
	if err != nil {
		return BetEvent{}, err
	}
	oddsByOption := make(map[string]int64, len(event.Odds))
	for option, odds := range event.Odds {
		oddsByOption[option] = odds.Int64()
	}
	oddsJSON, err := json.Marshal(oddsByOption)
	if err != nil {
		return BetEvent{}, err
	}
	var resolvedAt *time.Time
	if event.ResolvedUnixUTC != 0 {
		value := time.Unix(event.ResolvedUnixUTC, 0).UTC()
		resolvedAt = &value
	}
	return BetEvent{
		EventID:       event.EventID.String(),
		Title:         event.Title,
		Description:   event.Description,
		Options:       datatypes.JSON(optionsJSON),
		Odds:          datatypes.JSON(oddsJSON),
		Status:        event.Status.String(),
		WinningOption: event.WinningOption,
		CreatedAt:     time.Unix(event.CreatedUnixUTC, 0).UTC(),
		ResolvedAt:    resolvedAt,
	}, nil
}

func rowsToEvents(rows []BetEvent) ([]betting.Event, error) {
	events := make([]betting.Event, 0, len(rows))
	for _, row := range rows {
		event, err := rowToEvent(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEvent, errorCodeInvalid, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func rowToEvent(row BetEvent) (betting.Event, error) {
	eventID, err := betting.NewEventID(row.EventID)
	if err != nil {
		return betting.Event{}, err
	}
	status, err := betting.ParseEventStatus(row.Status)
	if err != nil {
		return betting.Event{}, err
	}
	var options []string
	if err := json.Unmarshal(row.Options, &options); err != nil {
		return betting.Event{}, err
	}
	var oddsByOption map[string]int64
	if err := json.Unmarshal(row.Odds, &oddsByOption); err != nil {
		return betting.Event{}, err
	}
	oddsTable := make(map[string]betting.Odds, len(oddsByOption))
	for option, hundredths := range oddsByOption {
		odds, err := betting.NewOdds(hundredths)
		if err != nil {
			return betting.Event{}, err
		}
		oddsTable[option] = odds
	}
	return betting.Event{
		EventID:         eventID,
		Title:           row.Title,
		Description:     row.Description,
		Options:         options,
		Odds:            oddsTable,
		Status:          status,
		WinningOption:   row.WinningOption,
		CreatedUnixUTC:  row.CreatedAt.Unix(),
		ResolvedUnixUTC: timeOrZero(row.ResolvedAt),
	}, nil
}

func rowsToBets(rows []Bet) ([]betting.Bet, error) {
	bets := make([]betting.Bet, 0, len(rows))
	for _, row := range rows {
		bet, err := rowToBet(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectBet, errorCodeInvalid, err)
		}
		bets = append(bets, bet)
	}
	return bets, nil
}

func rowToBet(row Bet) (betting.Bet, error) {
	betID, err := betting.NewBetID(row.BetID)
	if err != nil {
		return betting.Bet{}, err
	}
	userID, err := wallet.NewUserID(row.UserID)
	if err != nil {
		return betting.Bet{}, err
	}
	eventID, err := betting.NewEventID(row.EventID)
	if err != nil {
		return betting.Bet{}, err
	}
	stake, err := wallet.NewPositiveAmountCents(row.StakeCents)
	if err != nil {
		return betting.Bet{}, err
	}
	odds, err := betting.NewOdds(row.OddsHundredths)
	if err != nil {
		return betting.Bet{}, err
	}
	status, err := betting.ParseBetStatus(row.Status)
	if err != nil {
		return betting.Bet{}, err
	}
	return betting.Bet{
		BetID:           betID,
		UserID:          userID,
		EventID:         eventID,
		Stake:           stake,
		Selection:       row.Selection,
		Odds:            odds,
		PotentialPayout: wallet.AmountCents(row.PotentialPayoutCents),
		Status:          status,
		CreatedUnixUTC:  row.CreatedAt.Unix(),
		ResolvedUnixUTC: timeOrZero(row.ResolvedAt),
	}, nil
}
