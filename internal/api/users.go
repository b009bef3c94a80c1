package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/me
func (h *Handler) me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), walletFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
