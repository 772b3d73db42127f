package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reeldump/internal/api/response"
	"reeldump/internal/model"
	"reeldump/internal/token"
)

// UserLoader 按 uid 加载用户，查无记录时返回 gorm.ErrRecordNotFound。
type UserLoader interface {
	FindByUID(ctx context.Context, uid uint) (*model.User, error)
}

// AuthMiddleware 校验 Bearer 令牌并把用户身份写入上下文。
//
// 令牌缺失或无效时直接以 401 终止请求；令牌有效但按 uid 查库失败时
// 返回 500，而不是放行。通过校验后 "uid" 与 "email" 可从上下文读取。
func AuthMiddleware(tokens *token.Manager, users UserLoader, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortError(c, http.StatusUnauthorized, "Not authorized, access token is missing.")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.AbortError(c, http.StatusUnauthorized, "Not authorized, access token is missing.")
			return
		}

		uid, err := tokens.Verify(parts[1])
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "Not authorized, access token is invalid.")
			return
		}

		user, err := users.FindByUID(c.Request.Context(), uid)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.AbortError(c, http.StatusUnauthorized, "Not authorized, access token is invalid.")
			return
		}
		if err != nil {
			if logger != nil {
				logger.Error("auth user lookup failed", slog.Uint64("uid", uint64(uid)), slog.String("error", err.Error()))
			}
			response.AbortError(c, http.StatusInternalServerError, "Failed to verify user.")
			return
		}

		c.Set("uid", user.UID)
		c.Set("email", user.Email)
		c.Next()
	}
}
