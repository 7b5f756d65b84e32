package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/miyabiren/tabletop-companion/game/stats"
	mw "github.com/miyabiren/tabletop-companion/middleware"
)

// StatsHandler exposes the stat edit session over REST. The same four
// operations back whatever front end drives them (chat buttons, CLI, HTTP).
type StatsHandler struct {
	svc stats.Editor
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(svc stats.Editor) *StatsHandler {
	return &StatsHandler{svc: svc}
}

func (h *StatsHandler) params(c *gin.Context) (int64, stats.Track, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, 0, false
	}
	track, err := stats.ParseTrack(c.Param("track"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, false
	}
	return id, track, true
}

// Open handles POST /api/characters/:id/stats/:track.
func (h *StatsHandler) Open(c *gin.Context) {
	charID, track, ok := h.params(c)
	if !ok {
		return
	}
	ov, err := h.svc.Initialize(c.Request.Context(), charID, track, mw.GetAccountID(c), mw.IsGM(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": ov})
}

type adjustRequest struct {
	Stat  string `json:"stat" binding:"required"`
	Delta int    `json:"delta" binding:"required"`
}

// Adjust handles POST /api/characters/:id/stats/:track/adjust.
func (h *StatsHandler) Adjust(c *gin.Context) {
	charID, track, ok := h.params(c)
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ov, err := h.svc.Adjust(c.Request.Context(), charID, track, req.Stat, req.Delta, mw.GetAccountID(c), mw.IsGM(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": ov})
}

// Apply handles POST /api/characters/:id/stats/:track/apply.
func (h *StatsHandler) Apply(c *gin.Context) {
	charID, track, ok := h.params(c)
	if !ok {
		return
	}
	ov, err := h.svc.Apply(c.Request.Context(), charID, track, mw.GetAccountID(c), mw.IsGM(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": ov, "applied": true})
}

// Cancel handles DELETE /api/characters/:id/stats/:track.
func (h *StatsHandler) Cancel(c *gin.Context) {
	charID, track, ok := h.params(c)
	if !ok {
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), charID, track, mw.GetAccountID(c), mw.IsGM(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}
