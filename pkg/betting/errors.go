package betting

import "errors"

// Domain-level error values returned by betting operations.
var (
	ErrEventNotFound        = errors.New("event not found")
	ErrBettingClosed        = errors.New("betting closed for this event")
	ErrEventFinalized       = errors.New("event already finalized")
	ErrEventStillOpen       = errors.New("event still open")
	ErrInvalidSelection     = errors.New("invalid selection")
	ErrInvalidWinningOption = errors.New("invalid winning option")
	ErrDuplicateBet         = errors.New("bet already placed on this event")
	ErrBetNotPending        = errors.New("bet not pending")
	ErrInvalidEvent         = errors.New("invalid event")
	ErrInvalidEventID       = errors.New("invalid event id")
	ErrInvalidBetID         = errors.New("invalid bet id")
	ErrInvalidOdds          = errors.New("invalid odds")
	ErrInvalidEventStatus   = errors.New("invalid event status")
	ErrInvalidBetStatus     = errors.New("invalid bet status")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)
