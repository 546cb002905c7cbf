package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Margay/config"
	"github.com/lshigami/Margay/internal/dto"
	"github.com/lshigami/Margay/internal/util"
	"github.com/rs/zerolog/log"
)

// AuthMiddleware rejects requests without a valid bearer access token and
// stashes the parsed claims in the gin context under "user".
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Authentication credentials were not provided"})
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			log.Debug().Err(err).Msg("AuthMiddleware: token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid or expired token"})
			return
		}
		if claims.TokenType != util.TokenTypeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid or expired token"})
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}
