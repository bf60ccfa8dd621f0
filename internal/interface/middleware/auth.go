package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
	"github.com/oksasatya/go-ddd-private-messages/pkg/response"
)

const CtxUserIDKey = "userID"

func unauthorized(c *gin.Context, msg string, detail any) {
	response.Error[any](c, http.StatusUnauthorized, msg, detail)
	c.Abort()
}

// Auth validates the access token cookie and requires the token's session
// to still be the active one in Redis. It sets userID, userName, and
// userEmail in the Gin context on success.
func Auth(rdb redis.Cmdable, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.AccessCookie)
		if err != nil || token == "" {
			unauthorized(c, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			unauthorized(c, "invalid access token", err.Error())
			return
		}

		data, err := rdb.HGetAll(c.Request.Context(), helpers.SessionKey(claims.UserID)).Result()
		if err != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			unauthorized(c, "session not found", nil)
			return
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Set("userName", data["username"])
		c.Set("userEmail", data["email"])
		c.Next()
	}
}
