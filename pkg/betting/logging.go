package betting

import (
	"context"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogBetOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing betting operation.
type OperationLog struct {
	Operation string
	UserID    wallet.UserID
	EventID   EventID
	BetID     BetID
	Amount    wallet.AmountCents
	Outcome   string
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithIDGenerator overrides how new event and bet ids are minted. Tests use
// this to produce stable identifiers.
func WithIDGenerator(generate func() string) ServiceOption {
	return func(service *Service) {
		service.idFn = generate
	}
}
