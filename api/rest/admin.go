package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/miyabiren/tabletop-companion/game/economy"
	"github.com/miyabiren/tabletop-companion/game/roster"
	"github.com/miyabiren/tabletop-companion/game/stats"
	mw "github.com/miyabiren/tabletop-companion/middleware"
	"github.com/miyabiren/tabletop-companion/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles GM-only REST endpoints.
// Routes must be protected by the GMOnly middleware.
type AdminHandler struct {
	db     *gorm.DB
	ledger *economy.Ledger
	roster *roster.Index
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, ledger *economy.Ledger, ix *roster.Index, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, ledger: ledger, roster: ix, logger: logger}
}

// ResetStats handles POST /api/admin/characters/:id/stats/reset.
// Reinitializes every stat (and its shadow) to the species baseline.
func (h *AdminHandler) ResetStats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var ch model.Character
	if err := h.db.Where("id = ?", id).First(&ch).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}
	var sp model.Species
	if err := h.db.Where("id = ?", ch.SpeciesID).First(&sp).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "species missing"})
		return
	}

	baseline := stats.BaselineValues(&sp)
	reset := make(map[string]interface{}, len(baseline)*2)
	for col, v := range baseline {
		reset[col] = v
		reset[col+"_shadow"] = v
	}
	if err := h.db.Model(&ch).Updates(reset).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.logger.Info("stats reset", zap.Int64("char_id", id),
		zap.Int64("by_account", mw.GetAccountID(c)))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type grantRequest struct {
	Destination economy.HolderRef `json:"destination" binding:"required"`
	Amount      int64             `json:"amount" binding:"required,gt=0"`
	Reason      string            `json:"reason" binding:"max=128"`
}

// Grant handles POST /api/admin/grant: mints money onto a holder.
func (h *AdminHandler) Grant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requester := economy.Requester{AccountID: mw.GetAccountID(c), GM: true}
	next, err := h.ledger.Grant(c.Request.Context(), requester,
		req.Destination, req.Amount, req.Reason, mw.GetTraceID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "money": next})
}

// AuditLogs handles GET /api/admin/audit?limit=.
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var logs []model.AuditLog
	if err := h.db.Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// RebuildRoster handles POST /api/admin/roster/:guild_id/rebuild.
func (h *AdminHandler) RebuildRoster(c *gin.Context) {
	guildID, err := strconv.ParseInt(c.Param("guild_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild_id"})
		return
	}
	if err := h.roster.Rebuild(c.Request.Context(), guildID); err != nil {
		if errors.Is(err, roster.ErrRebuildBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "rebuild already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GuildRoster handles GET /api/admin/roster/:guild_id.
// Lists every living character name in the guild with its ID.
func (h *AdminHandler) GuildRoster(c *gin.Context) {
	guildID, err := strconv.ParseInt(c.Param("guild_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild_id"})
		return
	}
	names, err := h.roster.Guild(c.Request.Context(), guildID)
	if err != nil {
		if errors.Is(err, roster.ErrRebuildBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "rebuild already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "roster": names})
}
