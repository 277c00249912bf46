package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"github.com/gin-gonic/gin"
)

type withdrawalDecisionRequest struct {
	Approve *bool `json:"approve"`
}

func (server *Server) handleDecideWithdrawal(ctx *gin.Context) {
	requestID, err := wallet.NewEntryID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_request_id", "withdrawal request id is required"))
		return
	}
	var request withdrawalDecisionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil || request.Approve == nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "approve must be true or false"))
		return
	}
	entry, err := server.withdrawals.Decide(ctx.Request.Context(), requestID, *request.Approve)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"request": toEntryPayload(entry)})
}

func (server *Server) handlePendingWithdrawals(ctx *gin.Context) {
	entries, err := server.withdrawals.PendingRequests(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"requests": toEntryPayloads(entries)})
}

func (server *Server) handleStats(ctx *gin.Context) {
	totals, err := server.wallets.Totals(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	breakdown, err := server.bets.Breakdown(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	totalBets := int64(0)
	totalStakeCents := int64(0)
	for _, row := range breakdown {
		totalBets += row.Count
		totalStakeCents += row.TotalStakeCents
	}
	ctx.JSON(http.StatusOK, gin.H{
		"wallet_count":             totals.WalletCount,
		"total_balance_cents":      totals.TotalBalanceCents,
		"total_deposit_cents":      totals.TotalDepositCents,
		"total_withdrawn_cents":    totals.TotalWithdrawnCents,
		"pending_withdrawal_count": totals.PendingWithdrawalCount,
		"pending_withdrawal_cents": totals.PendingWithdrawalCents,
		"total_bets":               totalBets,
		"total_stake_cents":        totalStakeCents,
	})
}

func (server *Server) handleAllTransactions(ctx *gin.Context) {
	entries, err := server.wallets.AllEntries(ctx.Request.Context(), adminListLimit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"entries": toEntryPayloads(entries)})
}

func (server *Server) handleBetBreakdown(ctx *gin.Context) {
	breakdown, err := server.bets.Breakdown(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	rows := make(map[string]gin.H, len(breakdown))
	for status, row := range breakdown {
		rows[status.String()] = gin.H{
			"count":             row.Count,
			"total_stake_cents": row.TotalStakeCents,
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"breakdown": rows})
}
