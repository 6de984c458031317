package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

const operatorKey = "auth.operator"

// AuthMiddleware admits requests carrying a valid operator bearer token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "expected Authorization: Bearer <token>")
			return
		}
		claims, err := ValidateToken(raw)
		if err != nil {
			logger.Warningf("[Auth] Rejected token from %s: %v", c.ClientIP(), err)
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(operatorKey, claims)
		c.Next()
	}
}

// Operator returns the claims AuthMiddleware stored on the request.
func Operator(c *gin.Context) (*OperatorClaims, bool) {
	v, ok := c.Get(operatorKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*OperatorClaims)
	return claims, ok
}

func GetOperatorID(c *gin.Context) (uint, bool) {
	claims, ok := Operator(c)
	if !ok {
		return 0, false
	}
	return claims.OperatorID(), true
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "unauthorized"})
}
