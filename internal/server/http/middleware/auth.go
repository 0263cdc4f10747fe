package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/pkg/auth"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/dto"
)

const operatorTokenHeader = "X-Operator-Token"

// OperatorRequired guards operator endpoints when an operator token is configured.
func OperatorRequired(verifier pkgAuth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifier.Enabled() {
			c.Next()
			return
		}

		if err := verifier.Verify(extractToken(c)); err != nil {
			if errors.Is(err, pkgAuth.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Error("Unauthorized", "Operator token required"))
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.GetHeader(operatorTokenHeader))
}
