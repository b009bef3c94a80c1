package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"solana-stock-swap/internal/domain"
)

type favoriteList struct {
	Favorites []*domain.Favorite `json:"favorites"`
}

type favoriteRequest struct {
	Symbol string `json:"symbol"`
}

// GET /api/favorites
func (h *Handler) listFavorites(c *gin.Context) {
	favs, err := h.favorites.List(c.Request.Context(), walletFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if favs == nil {
		favs = []*domain.Favorite{}
	}
	c.JSON(http.StatusOK, favoriteList{Favorites: favs})
}

// POST /api/favorites {symbol}
func (h *Handler) addFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	fav, err := h.favorites.Add(c.Request.Context(), walletFrom(c), req.Symbol)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fav)
}

// DELETE /api/favorites?symbol= (or a {symbol} body)
func (h *Handler) removeFavorite(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" && c.Request.ContentLength != 0 {
		var req favoriteRequest
		if err := bindJSON(c, &req); err != nil {
			h.writeError(c, err)
			return
		}
		symbol = req.Symbol
	}
	if err := h.favorites.Remove(c.Request.Context(), walletFrom(c), symbol); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
