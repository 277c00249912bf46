package betting

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
)

// EventID identifies a wagering market.
type EventID struct {
	value string
}

// BetID identifies a single wager.
type BetID struct {
	value string
}

// Odds is a decimal payout multiplier stored in integer hundredths, so 2.50
// is 250. Keeping odds in fixed point makes potential payouts exact:
// payout = stake * odds / 100 in minor units.
type Odds int64

// EventStatus defines the market lifecycle. Resolved and Cancelled are
// terminal.
type EventStatus string

const (
	EventStatusOpen      EventStatus = "open"
	EventStatusResolved  EventStatus = "resolved"
	EventStatusCancelled EventStatus = "cancelled"
)

// BetStatus defines the wager lifecycle. Won, Lost, and Cancelled are
// terminal.
type BetStatus string

const (
	BetStatusPending   BetStatus = "pending"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusCancelled BetStatus = "cancelled"
)

// OptionInput pairs an option name with its odds at event creation.
type OptionInput struct {
	Name string
	Odds Odds
}

// Event is a wagering market with a fixed option/odds table.
type Event struct {
	EventID         EventID
	Title           string
	Description     string
	Options         []string
	Odds            map[string]Odds
	Status          EventStatus
	WinningOption   string
	CreatedUnixUTC  int64
	ResolvedUnixUTC int64
}

// Bet is one user's wager on one option of one event, with odds frozen at
// placement time.
type Bet struct {
	BetID           BetID
	UserID          wallet.UserID
	EventID         EventID
	Stake           wallet.PositiveAmountCents
	Selection       string
	Odds            Odds
	PotentialPayout wallet.AmountCents
	Status          BetStatus
	CreatedUnixUTC  int64
	ResolvedUnixUTC int64
}

// EventSummary is the operator view of a market with outstanding bets.
type EventSummary struct {
	EventID        EventID
	Title          string
	Options        []string
	CreatedUnixUTC int64
	TotalBets      int64
	PendingBets    int64
}

// BreakdownRow aggregates bets sharing a status.
type BreakdownRow struct {
	Count           int64
	TotalStakeCents int64
}

// NewEventID validates and normalizes an event id.
func NewEventID(raw string) (EventID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EventID{}, fmt.Errorf("%w: empty value", ErrInvalidEventID)
	}
	return EventID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id EventID) String() string {
	return id.value
}

// NewBetID validates and normalizes a bet id.
func NewBetID(raw string) (BetID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BetID{}, fmt.Errorf("%w: empty value", ErrInvalidBetID)
	}
	return BetID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id BetID) String() string {
	return id.value
}

// NewOdds validates odds given in integer hundredths.
func NewOdds(hundredths int64) (Odds, error) {
	if hundredths <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidOdds)
	}
	return Odds(hundredths), nil
}

// OddsFromFloat converts a decimal multiplier (as carried on the wire) into
// fixed-point odds, rounding to the nearest hundredth.
func OddsFromFloat(multiplier float64) (Odds, error) {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return 0, fmt.Errorf("%w: not a finite number", ErrInvalidOdds)
	}
	return NewOdds(int64(math.Round(multiplier * 100)))
}

// Float returns the decimal multiplier for presentation.
func (odds Odds) Float() float64 {
	return float64(odds) / 100
}

// Int64 returns the raw hundredths value.
func (odds Odds) Int64() int64 {
	return int64(odds)
}

// Payout computes the total payout for a stake at these odds, floored to a
// whole minor unit.
func (odds Odds) Payout(stake wallet.PositiveAmountCents) wallet.AmountCents {
	return wallet.AmountCents(stake.Int64() * odds.Int64() / 100)
}

// NormalizeOption canonicalizes user-supplied option text for matching. The
// same normalization runs at event creation, bet placement, and resolution
// so the stored selection and winning option always compare equal on the
// canonical form.
func NormalizeOption(raw string) string {
	return strings.TrimSpace(raw)
}

// buildOptionTable validates and canonicalizes the option/odds table: at
// least two distinct options, every multiplier positive. Option names keep
// their submitted casing but are matched case-insensitively from then on.
func buildOptionTable(options []OptionInput) ([]string, map[string]Odds, error) {
	names := make([]string, 0, len(options))
	oddsTable := make(map[string]Odds, len(options))
	for _, option := range options {
		name := NormalizeOption(option.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("%w: empty option name", ErrInvalidEvent)
		}
		for _, existing := range names {
			if strings.EqualFold(existing, name) {
				return nil, nil, fmt.Errorf("%w: duplicate option %q", ErrInvalidEvent, name)
			}
		}
		if option.Odds <= 0 {
			return nil, nil, fmt.Errorf("%w: option %q", ErrInvalidOdds, name)
		}
		names = append(names, name)
		oddsTable[name] = option.Odds
	}
	if len(names) < 2 {
		return nil, nil, fmt.Errorf("%w: at least 2 options required", ErrInvalidEvent)
	}
	sort.Strings(names)
	return names, oddsTable, nil
}

// MatchOption resolves user-supplied text against the canonical option set,
// case-insensitively. The returned name is the stored canonical form.
func (event Event) MatchOption(raw string) (string, bool) {
	normalized := NormalizeOption(raw)
	for _, option := range event.Options {
		if strings.EqualFold(option, normalized) {
			return option, true
		}
	}
	return "", false
}

// ParseEventStatus validates a stored event status.
func ParseEventStatus(raw string) (EventStatus, error) {
	switch status := EventStatus(raw); status {
	case EventStatusOpen, EventStatusResolved, EventStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEventStatus, raw)
	}
}

// String returns the stored representation.
func (status EventStatus) String() string {
	return string(status)
}

// ParseBetStatus validates a stored bet status.
func ParseBetStatus(raw string) (BetStatus, error) {
	switch status := BetStatus(raw); status {
	case BetStatusPending, BetStatusWon, BetStatusLost, BetStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBetStatus, raw)
	}
}

// String returns the stored representation.
func (status BetStatus) String() string {
	return string(status)
}
