package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/miyabiren/tabletop-companion/game/economy"
	mw "github.com/miyabiren/tabletop-companion/middleware"
)

// TransferHandler exposes the money ledger over REST.
type TransferHandler struct {
	ledger *economy.Ledger
}

// NewTransferHandler creates a TransferHandler.
func NewTransferHandler(ledger *economy.Ledger) *TransferHandler {
	return &TransferHandler{ledger: ledger}
}

type transferRequest struct {
	Source      economy.HolderRef `json:"source" binding:"required"`
	Destination economy.HolderRef `json:"destination" binding:"required"`
	Amount      int64             `json:"amount" binding:"required,gt=0"`
	Reason      string            `json:"reason" binding:"max=128"`
}

// Create handles POST /api/transfers.
func (h *TransferHandler) Create(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	requester := economy.Requester{AccountID: mw.GetAccountID(c), GM: mw.IsGM(c)}
	rec, err := h.ledger.Transfer(c.Request.Context(), requester,
		req.Source, req.Destination, req.Amount, req.Reason, mw.GetTraceID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfer": rec})
}

// List handles GET /api/transfers?kind=&id=&limit=.
func (h *TransferHandler) List(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	ref := economy.HolderRef{Kind: c.Query("kind"), ID: id}
	recs, err := h.ledger.Recent(c.Request.Context(), ref, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": recs})
}

// Balance handles GET /api/holders/:kind/:id/balance.
func (h *TransferHandler) Balance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ref := economy.HolderRef{Kind: c.Param("kind"), ID: id}
	bal, err := h.ledger.Balance(c.Request.Context(), ref)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": ref.Kind, "id": ref.ID, "money": bal})
}
