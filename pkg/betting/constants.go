package betting

const (
	operationCreateEvent  = "create_event"
	operationPlaceBet     = "place_bet"
	operationResolveEvent = "resolve_event"
	operationCancelEvent  = "cancel_event"
	operationSettleBet    = "settle_bet"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)
