package apihttp

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"clawtrader/internal/logger"
	"clawtrader/internal/market"
	"clawtrader/internal/pkg/convert"
	"clawtrader/internal/portfolio"
	"clawtrader/internal/report"
	"clawtrader/internal/types"
)

type handlers struct {
	source market.Source
	store  *portfolio.Store
}

// market dispatches on the action query parameter. Upstream rate limiting and
// status codes pass through; anything unexpected collapses to a 500 carrying
// only the error message.
func (h *handlers) market(c *gin.Context) {
	switch c.Query("action") {
	case "quotes":
		h.marketQuotes(c)
	case "history":
		h.marketHistory(c)
	case "search":
		h.marketSearch(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action: use quotes, history or search"})
	}
}

func (h *handlers) marketQuotes(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids parameter is required"})
		return
	}
	ids := make([]string, 0, 8)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	quotes, err := h.source.Quotes(c.Request.Context(), ids)
	if err != nil {
		writeUpstreamError(c, err)
		return
	}
	if quotes == nil {
		quotes = []market.Quote{}
	}
	c.JSON(http.StatusOK, quotes)
}

func (h *handlers) marketHistory(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id parameter is required"})
		return
	}
	days := 30
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}
	candles, err := h.source.History(c.Request.Context(), id, days)
	if err != nil {
		writeUpstreamError(c, err)
		return
	}
	if candles == nil {
		candles = []market.Candle{}
	}
	c.JSON(http.StatusOK, candles)
}

func (h *handlers) marketSearch(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter is required"})
		return
	}
	results, err := h.source.Search(c.Request.Context(), q)
	if err != nil {
		writeUpstreamError(c, err)
		return
	}
	if results == nil {
		results = []market.SearchResult{}
	}
	c.JSON(http.StatusOK, results)
}

func writeUpstreamError(c *gin.Context, err error) {
	if market.IsRateLimited(err) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited by upstream, retry later"})
		return
	}
	if status := market.UpstreamStatus(err); status != 0 {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// trade validates and echoes a trade description. Execution happens only
// through the portfolio store; this endpoint records intent for external
// callers and never mutates trading state.
func (h *handlers) trade(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	action := strings.ToLower(strings.TrimSpace(convert.ToString(body["action"])))
	if action != "buy" && action != "sell" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be buy or sell"})
		return
	}
	assetID := strings.TrimSpace(convert.ToString(body["assetId"]))
	symbol := strings.TrimSpace(convert.ToString(body["symbol"]))
	if assetID == "" || symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assetId and symbol are required"})
		return
	}
	price := convert.ToFloat64(body["price"])
	if price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price is required and must be positive"})
		return
	}
	_, hasQuantity := body["quantity"]
	_, hasAmount := body["amountUSD"]
	if !hasQuantity && !hasAmount {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity or amountUSD is required"})
		return
	}

	quantity := convert.ToFloat64(body["quantity"])
	amountUSD := convert.ToFloat64(body["amountUSD"])
	if hasQuantity && quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}
	if hasAmount && amountUSD <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amountUSD must be positive"})
		return
	}
	if quantity == 0 {
		quantity = amountUSD / price
	}
	if amountUSD == 0 {
		amountUSD = quantity * price
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"trade": gin.H{
			"action":    action,
			"assetId":   assetID,
			"symbol":    strings.ToUpper(symbol),
			"quantity":  quantity,
			"amountUSD": amountUSD,
			"price":     price,
			"timestamp": time.Now().UnixMilli(),
		},
	})
}

// portfolio is informational only. The authoritative state lives in the
// store; callers describing trades use POST /trade.
func (h *handlers) portfolio(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "portfolio state is owned by the trading store and persisted locally",
		"trade":   "POST /trade describes a trade intent; execution happens only through store operations",
		"report":  "GET /report renders the performance review page",
	})
}

func (h *handlers) report(c *gin.Context) {
	snap := h.store.Snapshot()
	metrics := h.store.Metrics()

	assetID := snap.SelectedAssetID
	if assetID == "" {
		assetID = portfolio.DefaultAssetID
	}
	rng := snap.SelectedTimeRange
	if !rng.Valid() {
		rng = types.Range7D
	}

	candles, err := h.source.History(c.Request.Context(), assetID, rng.Days())
	if err != nil {
		// the equity curve alone is still worth rendering
		logger.Warnf("report: history fetch for %s failed: %v", assetID, err)
		candles = nil
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := report.Render(c.Writer, report.Input{
		Snapshot: snap,
		Metrics:  metrics,
		AssetID:  assetID,
		Candles:  candles,
	}); err != nil {
		logger.Errorf("report: render failed: %v", err)
	}
}
