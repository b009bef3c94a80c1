package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/jupiter"
	"solana-stock-swap/internal/ledger"
	"solana-stock-swap/internal/storage"
)

type errorResponse struct {
	Error          string `json:"error"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	UpstreamBody   string `json:"upstreamBody,omitempty"`
}

// writeError maps err onto a status code and body. Unclassified errors are
// logged and answered with a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		quoteErr *jupiter.UpstreamError
		buildErr *jupiter.SwapBuildError
	)
	switch {
	case errors.As(err, &quoteErr):
		c.JSON(http.StatusServiceUnavailable, errorResponse{
			Error:          "quote unavailable",
			UpstreamStatus: quoteErr.StatusCode,
			UpstreamBody:   quoteErr.Body,
		})
	case errors.As(err, &buildErr):
		c.JSON(http.StatusBadGateway, errorResponse{
			Error:          "swap build failed",
			UpstreamStatus: buildErr.StatusCode,
			UpstreamBody:   buildErr.Body,
		})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid input"})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "upstream unavailable"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, ledger.ErrAuditUnavailable):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrPriceImpactTooHigh):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// bindJSON decodes the body into dst, reporting a malformed body as a validation error.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return domain.NewValidationError("body", err.Error())
	}
	return nil
}
