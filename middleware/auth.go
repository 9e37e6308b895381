package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
)

const RoleContextKey = "role"

// AdminJWT accepts a Bearer token signed with secret whose role claim
// is admin.
func AdminJWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if header == "" || tokenStr == header {
			apperrors.Respond(c, apperrors.Unauthorized("Unauthorized: missing bearer token"))
			return
		}

		claims, err := parseToken(tokenStr, secret)
		if err != nil {
			apperrors.Respond(c, apperrors.Unauthorized("Unauthorized: "+err.Error()))
			return
		}
		if role, _ := claims["role"].(string); role != "admin" {
			apperrors.Respond(c, apperrors.Forbidden("Admin role required"))
			return
		}

		c.Set(RoleContextKey, "admin")
		c.Next()
	}
}

func parseToken(tokenStr string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
