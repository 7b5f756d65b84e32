package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/miyabiren/tabletop-companion/config"
	"github.com/miyabiren/tabletop-companion/game/roster"
	"github.com/miyabiren/tabletop-companion/game/stats"
	mw "github.com/miyabiren/tabletop-companion/middleware"
	"github.com/miyabiren/tabletop-companion/model"
	"gorm.io/gorm"
)

// CharacterHandler handles character REST endpoints.
type CharacterHandler struct {
	db     *gorm.DB
	roster *roster.Index
	game   config.GameConfig
}

// NewCharacterHandler creates a new CharacterHandler.
func NewCharacterHandler(db *gorm.DB, ix *roster.Index, game config.GameConfig) *CharacterHandler {
	return &CharacterHandler{db: db, roster: ix, game: game}
}

// List handles GET /api/characters.
func (h *CharacterHandler) List(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var chars []model.Character
	if err := h.db.Where("account_id = ?", accountID).Find(&chars).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": chars})
}

type createCharacterRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=32"`
	GuildID   int64  `json:"guild_id" binding:"required"`
	SpeciesID int64  `json:"species_id" binding:"required"`
}

// Create handles POST /api/characters.
// New characters start at the species floor for every stat.
func (h *CharacterHandler) Create(c *gin.Context) {
	accountID := mw.GetAccountID(c)

	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing []model.Character
	if err := h.db.Select("id").Where("account_id = ?", accountID).Find(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if len(existing) >= h.game.MaxCharacters {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max characters reached"})
		return
	}

	var sp model.Species
	if err := h.db.Where("id = ?", req.SpeciesID).First(&sp).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid species_id"})
		return
	}

	// Names are unique per guild among living characters.
	var dup model.Character
	err := h.db.Where("guild_id = ? AND name = ? AND retired = ?", req.GuildID, req.Name, false).
		First(&dup).Error
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "character name already taken"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ch := &model.Character{
		GuildID:   req.GuildID,
		AccountID: accountID,
		Name:      req.Name,
		SpeciesID: sp.ID,
		Level:     1,
	}
	if err := h.db.Create(ch).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	// Start every stat at the species floor.
	if err := h.db.Model(ch).Updates(stats.BaselineValues(&sp)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	_ = h.db.Where("id = ?", ch.ID).First(ch).Error

	h.roster.Put(c.Request.Context(), ch.GuildID, ch.Name, ch.ID)
	c.JSON(http.StatusOK, gin.H{"character": ch})
}

// Get handles GET /api/characters/:id.
func (h *CharacterHandler) Get(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"character": ch})
}

// Resolve handles GET /api/characters/resolve?guild_id=&name=.
// Uses the roster index rather than scanning the table.
func (h *CharacterHandler) Resolve(c *gin.Context) {
	guildID, err := strconv.ParseInt(c.Query("guild_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild_id"})
		return
	}
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	id, err := h.roster.Lookup(c.Request.Context(), guildID, name)
	if errors.Is(err, roster.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"char_id": id})
}

type renameRequest struct {
	Name string `json:"name" binding:"required,min=1,max=32"`
}

// Rename handles POST /api/characters/:id/rename.
func (h *CharacterHandler) Rename(c *gin.Context) {
	ch, ok := h.ownedCharacter(c)
	if !ok {
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	oldName := ch.Name
	if err := h.db.Model(ch).Update("name", req.Name).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.roster.Remove(c.Request.Context(), ch.GuildID, oldName)
	h.roster.Put(c.Request.Context(), ch.GuildID, req.Name, ch.ID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Retire handles POST /api/characters/:id/retire.
func (h *CharacterHandler) Retire(c *gin.Context) {
	ch, ok := h.ownedCharacter(c)
	if !ok {
		return
	}
	if err := h.db.Model(ch).Update("retired", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.roster.Remove(c.Request.Context(), ch.GuildID, ch.Name)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ownedCharacter loads the :id character and enforces ownership (GM bypasses).
func (h *CharacterHandler) ownedCharacter(c *gin.Context) (*model.Character, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var ch model.Character
	if err := h.db.Where("id = ?", id).First(&ch).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return nil, false
	}
	if ch.AccountID != mw.GetAccountID(c) && !mw.IsGM(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your character"})
		return nil, false
	}
	return &ch, true
}
