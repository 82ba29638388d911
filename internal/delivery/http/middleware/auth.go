package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin - значение клейма role, дающее доступ к админке.
const RoleAdmin = "admin"

type ErrorResponse struct {
	Error string `json:"error"`
}

// AdminClaims - клеймы токена админки.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminJWT проверяет Bearer токен (HMAC) с role=admin и кладёт subject в контекст.
// С пустым секретом админка закрыта целиком.
func AdminJWT(secretKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secretKey) == 0 {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "админка отключена"})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "отсутствует заголовок Authorization"})
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "неверный формат заголовка Authorization"})
			return
		}

		claims := &AdminClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
			}
			return secretKey, nil
		})
		if err != nil || !token.Valid {
			msg := "невалидный токен"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "токен истёк"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msg})
			return
		}
		if claims.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "недостаточно прав"})
			return
		}

		c.Set(adminSubjectKey, claims.Subject)
		c.Next()
	}
}
