// Package oplog adapts the domain operation-log callbacks onto zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/betbook/pkg/betting"
	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"go.uber.org/zap"
)

// WalletLogger implements wallet.OperationLogger.
type WalletLogger struct {
	logger *zap.Logger
}

// NewWalletLogger wires a wallet operation logger.
func NewWalletLogger(logger *zap.Logger) *WalletLogger {
	return &WalletLogger{logger: logger}
}

func (walletLogger *WalletLogger) LogOperation(ctx context.Context, entry wallet.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("user_id", entry.UserID.String()),
		zap.String("entry_id", entry.EntryID.String()),
		zap.String("kind", entry.Kind.String()),
		zap.Int64("amount_cents", entry.Amount.Int64()),
		zap.String("reference", entry.Reference),
	}
	if entry.Error != nil {
		walletLogger.logger.Warn("wallet operation failed", append(fields, zap.Error(entry.Error))...)
		return
	}
	walletLogger.logger.Info("wallet operation", fields...)
}

// BettingLogger implements betting.OperationLogger.
type BettingLogger struct {
	logger *zap.Logger
}

// NewBettingLogger wires a betting operation logger.
func NewBettingLogger(logger *zap.Logger) *BettingLogger {
	return &BettingLogger{logger: logger}
}

func (bettingLogger *BettingLogger) LogBetOperation(ctx context.Context, entry betting.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("user_id", entry.UserID.String()),
		zap.String("event_id", entry.EventID.String()),
		zap.String("bet_id", entry.BetID.String()),
		zap.Int64("amount_cents", entry.Amount.Int64()),
		zap.String("outcome", entry.Outcome),
	}
	if entry.Error != nil {
		bettingLogger.logger.Warn("betting operation failed", append(fields, zap.Error(entry.Error))...)
		return
	}
	bettingLogger.logger.Info("betting operation", fields...)
}
