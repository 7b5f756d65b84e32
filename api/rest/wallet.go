package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/miyabiren/tabletop-companion/middleware"
	"github.com/miyabiren/tabletop-companion/model"
	"gorm.io/gorm"
)

// WalletHandler handles shared-wallet REST endpoints.
type WalletHandler struct {
	db *gorm.DB
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(db *gorm.DB) *WalletHandler {
	return &WalletHandler{db: db}
}

type createWalletRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=64"`
	GuildID int64  `json:"guild_id" binding:"required"`
	CharID  int64  `json:"char_id" binding:"required"` // first owner
}

// Create handles POST /api/wallets. The creating character becomes the first owner.
func (h *WalletHandler) Create(c *gin.Context) {
	var req createWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ch model.Character
	if err := h.db.Where("id = ?", req.CharID).First(&ch).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}
	if ch.AccountID != mw.GetAccountID(c) && !mw.IsGM(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your character"})
		return
	}

	w := &model.Wallet{GuildID: req.GuildID, Name: req.Name}
	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		return tx.Create(&model.WalletOwner{WalletID: w.ID, CharID: ch.ID}).Error
	})
	if txErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w})
}

// Get handles GET /api/wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var w model.Wallet
	if err := h.db.Where("id = ?", id).First(&w).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
		return
	}
	var owners []model.WalletOwner
	_ = h.db.Where("wallet_id = ?", id).Find(&owners).Error
	ownerIDs := make([]int64, 0, len(owners))
	for _, o := range owners {
		ownerIDs = append(ownerIDs, o.CharID)
	}
	c.JSON(http.StatusOK, gin.H{"wallet": w, "owner_char_ids": ownerIDs})
}

type addOwnerRequest struct {
	CharID int64 `json:"char_id" binding:"required"`
}

// AddOwner handles POST /api/wallets/:id/owners.
// Only an existing owner (through one of their characters) or a GM may add owners.
func (h *WalletHandler) AddOwner(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req addOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !mw.IsGM(c) {
		var mine []model.WalletOwner
		err := h.db.
			Joins("JOIN characters ON characters.id = wallet_owners.char_id").
			Where("wallet_owners.wallet_id = ? AND characters.account_id = ?", id, mw.GetAccountID(c)).
			Find(&mine).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if len(mine) == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a wallet owner"})
			return
		}
	}

	var ch model.Character
	if err := h.db.Where("id = ?", req.CharID).First(&ch).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}
	if err := h.db.Create(&model.WalletOwner{WalletID: id, CharID: req.CharID}).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "already an owner"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
