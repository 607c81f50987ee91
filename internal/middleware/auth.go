package middleware

import (
	"net/http"
	"strings"

	"github.com/gearbox-dev/gearbox/db"
	"github.com/gearbox-dev/gearbox/internal/auth"
	"github.com/gearbox-dev/gearbox/internal/models"
	"github.com/gearbox-dev/gearbox/internal/types"
	"github.com/gin-gonic/gin"
)

type AuthenticatedUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// tokenFromRequest prefers the auth cookie set at login and falls back
// to a Bearer header for non-browser clients.
func tokenFromRequest(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie("token"); err == nil && cookie != "" {
		return cookie
	}

	header := ctx.GetHeader("Authorization")

	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}

	return ""
}

func AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := tokenFromRequest(ctx)

		if tokenString == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := auth.VerifyJWT(tokenString)

		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, ok := auth.UserIDFromClaims(claims)

		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token claims"})
			return
		}

		var user models.User

		if err := db.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		ctx.Set(types.ContextUserKey, AuthenticatedUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
		})
		ctx.Next()
	}
}
