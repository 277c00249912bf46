package wallet

const (
	operationDeposit      = "deposit"
	operationDebit        = "debit"
	operationCredit       = "credit"
	operationHold         = "hold"
	operationFinalizeHold = "finalize_hold"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	// DefaultCurrency is assigned to wallets created on first use.
	DefaultCurrency = "USD"
)
