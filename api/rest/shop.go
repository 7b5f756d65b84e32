package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/miyabiren/tabletop-companion/middleware"
	"github.com/miyabiren/tabletop-companion/model"
	"gorm.io/gorm"
)

// ShopHandler handles shop REST endpoints. A shop is just a named holder;
// what it sells is the table's business, not the service's.
type ShopHandler struct {
	db *gorm.DB
}

// NewShopHandler creates a ShopHandler.
func NewShopHandler(db *gorm.DB) *ShopHandler {
	return &ShopHandler{db: db}
}

type createShopRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=64"`
	GuildID     int64  `json:"guild_id" binding:"required"`
	OwnerCharID *int64 `json:"owner_char_id"` // omit for a GM-run shop
}

// Create handles POST /api/shops.
func (h *ShopHandler) Create(c *gin.Context) {
	var req createShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.OwnerCharID == nil {
		if !mw.IsGM(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "GM-run shops require the GM flag"})
			return
		}
	} else {
		var ch model.Character
		if err := h.db.Where("id = ?", *req.OwnerCharID).First(&ch).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		if ch.AccountID != mw.GetAccountID(c) && !mw.IsGM(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your character"})
			return
		}
	}

	s := &model.Shop{GuildID: req.GuildID, Name: req.Name, OwnerCharID: req.OwnerCharID}
	if err := h.db.Create(s).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": s})
}

// Get handles GET /api/shops/:id.
func (h *ShopHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var s model.Shop
	if err := h.db.Where("id = ?", id).First(&s).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "shop not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"shop": s})
}
