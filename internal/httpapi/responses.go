package httpapi

import (
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/betbook/pkg/betting"
	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// respondError maps domain errors onto stable HTTP codes. Anything not
// recognized is a 500 with the detail kept out of the response body.
func (server *Server) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		ctx.JSON(http.StatusBadRequest, errorResponse("insufficient_funds", "balance cannot cover the amount"))
	case errors.Is(err, betting.ErrBettingClosed):
		ctx.JSON(http.StatusBadRequest, errorResponse("betting_closed", "event no longer accepts bets"))
	case errors.Is(err, betting.ErrInvalidSelection):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_selection", "selection is not an option of this event"))
	case errors.Is(err, betting.ErrInvalidWinningOption):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_winning_option", "winning option is not an option of this event"))
	case errors.Is(err, betting.ErrInvalidEvent), errors.Is(err, betting.ErrInvalidOdds):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_event", err.Error()))
	case errors.Is(err, wallet.ErrInvalidAmountCents):
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_amount", "amount must be a positive number of cents"))
	case errors.Is(err, betting.ErrEventNotFound):
		ctx.JSON(http.StatusNotFound, errorResponse("event_not_found", "no such event"))
	case errors.Is(err, wallet.ErrUnknownEntry):
		ctx.JSON(http.StatusNotFound, errorResponse("entry_not_found", "no such ledger entry"))
	case errors.Is(err, betting.ErrDuplicateBet):
		ctx.JSON(http.StatusConflict, errorResponse("duplicate_bet", "one bet per event per user"))
	case errors.Is(err, betting.ErrEventFinalized):
		ctx.JSON(http.StatusConflict, errorResponse("event_finalized", "event was already resolved or cancelled"))
	case errors.Is(err, wallet.ErrEntryNotPending), errors.Is(err, wallet.ErrNotWithdrawalHold):
		ctx.JSON(http.StatusConflict, errorResponse("already_decided", "withdrawal request was already decided"))
	default:
		server.logger.Error("request failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal", "internal error"))
	}
}

type balancePayload struct {
	BalanceCents int64  `json:"balance_cents"`
	Currency     string `json:"currency"`
}

type entryPayload struct {
	EntryID         string `json:"entry_id"`
	Kind            string `json:"kind"`
	AmountCents     int64  `json:"amount_cents"`
	Status          string `json:"status"`
	Reference       string `json:"reference,omitempty"`
	CreatedUnixUTC  int64  `json:"created_unix_utc"`
	ResolvedUnixUTC int64  `json:"resolved_unix_utc,omitempty"`
}

type eventPayload struct {
	EventID         string             `json:"event_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	Options         []string           `json:"options"`
	Odds            map[string]float64 `json:"odds"`
	Status          string             `json:"status"`
	WinningOption   string             `json:"winning_option,omitempty"`
	CreatedUnixUTC  int64              `json:"created_unix_utc"`
	ResolvedUnixUTC int64              `json:"resolved_unix_utc,omitempty"`
}

type betPayload struct {
	BetID                string  `json:"bet_id"`
	UserID               string  `json:"user_id"`
	EventID              string  `json:"event_id"`
	StakeCents           int64   `json:"stake_cents"`
	Selection            string  `json:"selection"`
	Odds                 float64 `json:"odds"`
	PotentialPayoutCents int64   `json:"potential_payout_cents"`
	Status               string  `json:"status"`
	CreatedUnixUTC       int64   `json:"created_unix_utc"`
	ResolvedUnixUTC      int64   `json:"resolved_unix_utc,omitempty"`
}

func toEntryPayload(entry wallet.Entry) entryPayload {
	return entryPayload{
		EntryID:         entry.EntryID.String(),
		Kind:            entry.Kind.String(),
		AmountCents:     entry.Amount.Int64(),
		Status:          entry.Status.String(),
		Reference:       entry.Reference,
		CreatedUnixUTC:  entry.CreatedUnixUTC,
		ResolvedUnixUTC: entry.ResolvedUnixUTC,
	}
}

func toEntryPayloads(entries []wallet.Entry) []entryPayload {
	payloads := make([]entryPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, toEntryPayload(entry))
	}
	return payloads
}

func toEventPayload(event betting.Event) eventPayload {
	odds := make(map[string]float64, len(event.Odds))
	for option, value := range event.Odds {
		odds[option] = value.Float()
	}
	return eventPayload{
		EventID:         event.EventID.String(),
		Title:           event.Title,
		Description:     event.Description,
		Options:         event.Options,
		Odds:            odds,
		Status:          event.Status.String(),
		WinningOption:   event.WinningOption,
		CreatedUnixUTC:  event.CreatedUnixUTC,
		ResolvedUnixUTC: event.ResolvedUnixUTC,
	}
}

func toEventPayloads(events []betting.Event) []eventPayload {
	payloads := make([]eventPayload, 0, len(events))
	for _, event := range events {
		payloads = append(payloads, toEventPayload(event))
	}
	return payloads
}

func toBetPayload(bet betting.Bet) betPayload {
	return betPayload{
		BetID:                bet.BetID.String(),
		UserID:               bet.UserID.String(),
		EventID:              bet.EventID.String(),
		StakeCents:           bet.Stake.Int64(),
		Selection:            bet.Selection,
		Odds:                 bet.Odds.Float(),
		PotentialPayoutCents: bet.PotentialPayout.Int64(),
		Status:               bet.Status.String(),
		CreatedUnixUTC:       bet.CreatedUnixUTC,
		ResolvedUnixUTC:      bet.ResolvedUnixUTC,
	}
}

func toBetPayloads(bets []betting.Bet) []betPayload {
	payloads := make([]betPayload, 0, len(bets))
	for _, bet := range bets {
		payloads = append(payloads, toBetPayload(bet))
	}
	return payloads
}
