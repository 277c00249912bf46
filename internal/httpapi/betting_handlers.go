package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/betbook/pkg/betting"
	"github.com/MarkoPoloResearchLab/betbook/pkg/wallet"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type placeBetRequest struct {
	EventID     string `json:"event_id"`
	AmountCents int64  `json:"amount_cents"`
	Selection   string `json:"selection"`
}

type createEventRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Options     map[string]float64 `json:"options"`
}

type resolveEventRequest struct {
	WinningOption string `json:"winning_option"`
}

func (server *Server) handlePlaceBet(ctx *gin.Context) {
	principal := getPrincipal(ctx)
	userID, err := wallet.NewUserID(principal.UserID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	var request placeBetRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	eventID, err := betting.NewEventID(request.EventID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_event_id", "event_id is required"))
		return
	}
	stake, err := wallet.NewPositiveAmountCents(request.AmountCents)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	bet, err := server.bets.PlaceBet(ctx.Request.Context(), userID, eventID, stake, request.Selection)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	server.metrics.betsPlaced.Inc()
	ctx.JSON(http.StatusCreated, gin.H{"bet": toBetPayload(bet)})
}

func (server *Server) handleUserBets(ctx *gin.Context) {
	principal := getPrincipal(ctx)
	userID, err := wallet.NewUserID(principal.UserID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	bets, err := server.bets.UserBets(ctx.Request.Context(), userID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"bets": toBetPayloads(bets)})
}

func (server *Server) handleOpenEvents(ctx *gin.Context) {
	var cached []eventPayload
	if hit, err := server.cache.GetOpenEvents(ctx.Request.Context(), &cached); err != nil {
		server.logger.Warn("event cache read failed", zap.Error(err))
	} else if hit {
		ctx.JSON(http.StatusOK, gin.H{"events": cached})
		return
	}
	events, err := server.bets.OpenEvents(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	payloads := toEventPayloads(events)
	if err := server.cache.SetOpenEvents(ctx.Request.Context(), payloads); err != nil {
		server.logger.Warn("event cache write failed", zap.Error(err))
	}
	ctx.JSON(http.StatusOK, gin.H{"events": payloads})
}

func (server *Server) handleCreateEvent(ctx *gin.Context) {
	var request createEventRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	options := make([]betting.OptionInput, 0, len(request.Options))
	for name, multiplier := range request.Options {
		odds, err := betting.OddsFromFloat(multiplier)
		if err != nil {
			server.respondError(ctx, err)
			return
		}
		options = append(options, betting.OptionInput{Name: name, Odds: odds})
	}
	event, err := server.bets.CreateEvent(ctx.Request.Context(), request.Title, request.Description, options)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	server.invalidateEventCache(ctx)
	ctx.JSON(http.StatusCreated, gin.H{"event": toEventPayload(event)})
}

func (server *Server) handleResolveEvent(ctx *gin.Context) {
	eventID, err := betting.NewEventID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_event_id", "event id is required"))
		return
	}
	var request resolveEventRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	if err := server.bets.ResolveEvent(ctx.Request.Context(), eventID, request.WinningOption); err != nil {
		server.respondError(ctx, err)
		return
	}
	server.invalidateEventCache(ctx)
	ctx.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

func (server *Server) handleCancelEvent(ctx *gin.Context) {
	eventID, err := betting.NewEventID(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_event_id", "event id is required"))
		return
	}
	if err := server.bets.CancelEvent(ctx.Request.Context(), eventID); err != nil {
		server.respondError(ctx, err)
		return
	}
	server.invalidateEventCache(ctx)
	ctx.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (server *Server) handlePendingEvents(ctx *gin.Context) {
	summaries, err := server.bets.PendingEvents(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	payloads := make([]gin.H, 0, len(summaries))
	for _, summary := range summaries {
		payloads = append(payloads, gin.H{
			"event_id":         summary.EventID.String(),
			"title":            summary.Title,
			"options":          summary.Options,
			"created_unix_utc": summary.CreatedUnixUTC,
			"total_bets":       summary.TotalBets,
			"pending_bets":     summary.PendingBets,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"events": payloads})
}

func (server *Server) handleAllBets(ctx *gin.Context) {
	bets, err := server.bets.AllBets(ctx.Request.Context(), adminListLimit)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"bets": toBetPayloads(bets)})
}

func (server *Server) invalidateEventCache(ctx *gin.Context) {
	if err := server.cache.Invalidate(ctx.Request.Context()); err != nil {
		server.logger.Warn("event cache invalidation failed", zap.Error(err))
	}
}
