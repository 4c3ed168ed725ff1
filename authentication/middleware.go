package authentication

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
)

const (
	userKey         = "user"
	impersonatorKey = "impersonatorID"
)

// AuthMiddleware requires a valid access token and loads the user
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing the authorization header"})
			return
		}

		if !authenticate(c, tokenString) {
			return
		}
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokenString string) bool {
	claims, err := ParseToken(tokenString, models.TokenAccess)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return false
	}

	var user models.User
	if err := configuration.DB.First(&user, claims.UserID).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return false
	}

	c.Set(userKey, user)
	if claims.ImpersonatorID != 0 {
		c.Set(impersonatorKey, claims.ImpersonatorID)
	}
	return true
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		// EventSource cannot set headers
		return c.Query("token")
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
}

// CurrentUser returns the authenticated user set by the middleware
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// SetCurrentUser is used by tests and internal callers
func SetCurrentUser(c *gin.Context, user models.User) {
	c.Set(userKey, user)
}
