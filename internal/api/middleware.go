package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/auth"
	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/observability"
)

const walletKey = "wallet"

// RequireWallet rejects requests the auth gateway cannot attribute to a wallet.
func (h *Handler) RequireWallet() gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet, ok := h.gateway.Authenticate(c.Request)
		if !ok {
			h.writeError(c, domain.ErrUnauthenticated)
			c.Abort()
			return
		}
		c.Set(walletKey, wallet)
		c.Next()
	}
}

// RequireStreamWallet is RequireWallet that also accepts the token as a
// ?token= query parameter. Browsers cannot set headers on websocket upgrades.
func (h *Handler) RequireStreamWallet() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Query("token"))
		if _, present := c.Request.Header["Authorization"]; present || token == "" {
			h.RequireWallet()(c)
			return
		}
		if !strings.HasPrefix(token, auth.Scheme+" ") {
			token = auth.Scheme + " " + token
		}
		wallet, ok := h.gateway.AuthenticateToken(token)
		if !ok {
			h.writeError(c, domain.ErrUnauthenticated)
			c.Abort()
			return
		}
		c.Set(walletKey, wallet)
		c.Next()
	}
}

// AssertedWallet only requires a non-empty wallet header.
func (h *Handler) AssertedWallet() gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet := strings.TrimSpace(c.GetHeader(auth.WalletHeader))
		if wallet == "" {
			observability.RecordAuthFailure("missing_wallet_header")
			h.writeError(c, domain.ErrUnauthenticated)
			c.Abort()
			return
		}
		c.Set(walletKey, wallet)
		c.Next()
	}
}

func walletFrom(c *gin.Context) string {
	return c.GetString(walletKey)
}

func (h *Handler) withTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		observability.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(status), elapsed.Seconds())

		entry := h.logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"route":      route,
			"status":     status,
			"latency_ms": elapsed.Milliseconds(),
		})
		if wallet := walletFrom(c); wallet != "" {
			entry = entry.WithField("wallet", wallet)
		}
		if status >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Debug("request served")
		}
	}
}
