package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type depositRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type withdrawRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (server *Server) handleWallet(ctx *gin.Context) {
	principal := getPrincipal(ctx)
	userID, err := wallet.NewUserID(principal.UserID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	balance, err := server.wallets.Balance(ctx.Request.Context(), userID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	entries, err := server.wallets.Statement(ctx.Request.Context(), userID, statementLimit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"balance": balancePayload{
			BalanceCents: balance.BalanceCents.Int64(),
			Currency:     balance.Currency,
		},
		"entries": toEntryPayloads(entries),
	})
}

// handleDeposit first registers the order with the payment provider; only a
// provider acknowledgement credits the wallet, with the provider order id as
// the ledger reference.
func (server *Server) handleDeposit(ctx *gin.Context) {
	principal := getPrincipal(ctx)
	userID, err := wallet.NewUserID(principal.UserID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	var request depositRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	amount, err := wallet.NewPositiveAmountCents(request.AmountCents)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	orderID, err := server.provider.CreateDepositOrder(ctx.Request.Context(), amount.Int64(), wallet.DefaultCurrency)
	if err != nil {
		server.logger.Error("deposit order failed", zap.Error(err))
		ctx.JSON(http.StatusBadGateway, errorResponse("provider_error", "payment provider unavailable"))
		return
	}
	entry, err := server.wallets.Deposit(ctx.Request.Context(), userID, amount, orderID, wallet.MetadataJSON{})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"entry": toEntryPayload(entry)})
}

func (server *Server) handleWithdraw(ctx *gin.Context) {
	principal := getPrincipal(ctx)
	userID, err := wallet.NewUserID(principal.UserID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	var request withdrawRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	amount, err := wallet.NewPositiveAmountCents(request.AmountCents)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	entry, err := server.withdrawals.RequestWithdrawal(ctx.Request.Context(), userID, amount)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"request": toEntryPayload(entry)})
}
