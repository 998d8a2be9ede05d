package api

import (
	"net/http"
	"strconv"
	"strings"

	"forex-entry-bot/internal/auth"
	"forex-entry-bot/internal/candle"
	"forex-entry-bot/internal/market"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"symbol": s.evaluator.Strategy().Symbol(),
	}
	if s.repo != nil {
		if err := s.repo.HealthCheck(c.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
		}
	}
	c.JSON(http.StatusOK, status)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	cfg := s.cfg.AuthConfig
	if req.Username != cfg.AdminUser || !auth.VerifyPassword(req.Password, cfg.AdminPassHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.jwtManager.GenerateToken(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int64(s.jwtManager.TokenTTL().Seconds()),
	})
}

// handleCandle returns the structure analysis of the latest closed bar
// plus any multi-bar patterns over the recent window.
func (s *Server) handleCandle(c *gin.Context) {
	snapshot, _, err := s.evaluator.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	strat := s.evaluator.Strategy()
	analyzer := candle.NewAnalyzer(snapshot, strat.PipUnit(), 0, 0)
	latest, ok := analyzer.Analyze(0)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no bars available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":              strat.Symbol(),
		"pattern":             latest.Pattern,
		"rejection":           latest.Rejection,
		"body_to_range":       latest.BodyToRange,
		"upper_wick_to_range": latest.UpperWickToRange,
		"lower_wick_to_range": latest.LowerWickToRange,
		"wick_to_body":        latest.WickToBody,
		"is_doji":             latest.IsDoji,
		"bullish":             latest.Bullish,
		"bearish":             latest.Bearish,
		"sequences":           analyzer.AnalyzeSequence(0, 5),
	})
}

// handleFibonacci returns the current swing pair and level ladder.
func (s *Server) handleFibonacci(c *gin.Context) {
	snapshot, _, err := s.evaluator.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	levels := s.evaluator.Strategy().FibLevels(snapshot)
	if !levels.Valid {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"swing_high":  levels.SwingHigh,
		"swing_low":   levels.SwingLow,
		"high_offset": levels.HighOffset,
		"low_offset":  levels.LowOffset,
		"uptrend":     levels.Uptrend,
		"levels":      levels.AllLevels(),
	})
}

// handleZones returns the ranked confluence zones for a requested side.
func (s *Server) handleZones(c *gin.Context) {
	side, ok := parseSide(c.Query("side"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
		return
	}

	snapshot, price, err := s.evaluator.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	zones := s.evaluator.Strategy().Zones(snapshot, side, price)
	payload := make([]gin.H, len(zones))
	for i, z := range zones {
		payload[i] = gin.H{
			"price":         z.Price,
			"score":         z.Score,
			"strength":      z.StrengthScore(),
			"factors":       z.FactorSummary(),
			"distance":      z.Distance,
			"at_resistance": z.AtResistance,
			"at_support":    z.AtSupport,
			"valid":         z.Valid,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"side":            side,
		"reference_price": price,
		"zones":           payload,
	})
}

// handleEntry runs the full strategy evaluation without placing orders.
func (s *Server) handleEntry(c *gin.Context) {
	snapshot, price, err := s.evaluator.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	signal, err := s.evaluator.Strategy().Evaluate(snapshot, price)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signal":      signal.Type,
		"side":        signal.Side,
		"entry_price": signal.EntryPrice,
		"score":       signal.Score,
		"strength":    signal.Strength,
		"factors":     signal.Factors,
		"reason":      signal.Reason,
	})
}

// handleEvaluate runs one complete cycle, including order placement,
// and pushes the decision to websocket subscribers.
func (s *Server) handleEvaluate(c *gin.Context) {
	decision, err := s.evaluator.RunCycle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.hub.BroadcastDecision(decision)
	c.JSON(http.StatusOK, decision)
}

func (s *Server) handleDecisions(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision history requires the database"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	decisions, err := s.repo.RecentDecisions(c.Request.Context(), s.evaluator.Strategy().Symbol(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}

func parseSide(raw string) (market.Side, bool) {
	switch strings.ToUpper(raw) {
	case "BUY":
		return market.SideBuy, true
	case "SELL":
		return market.SideSell, true
	default:
		return "", false
	}
}
