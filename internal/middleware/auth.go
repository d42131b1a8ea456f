package middleware

import (
	"errors"
	"net/http"
	"strings"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TokenCookie        = "token"
	TokenExpiredHeader = "X-Token-Expired"
)

func extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); token != "" {
			return token
		}
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	if token, err := c.Cookie(TokenCookie); err == nil {
		return token
	}
	return ""
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		cfg := c.MustGet("config").(*config.Config)
		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				// 过期：通知前端重新登录并清掉 cookie
				var userID uint
				if claims != nil {
					userID = claims.UserID
				}
				logger.Log.Info("JWT expired", zap.Uint("userID", userID), zap.String("path", c.Request.URL.Path))
				c.Header(TokenExpiredHeader, "true")
				c.SetCookie(TokenCookie, "", -1, "/", "", false, true)
				util.Error(c, http.StatusUnauthorized, "Token expired")
				c.Abort()
				return
			}
			logger.Log.Debug("JWT rejected", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// RoleMiddleware 管理员拥有所有角色的权限
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

type UserActivityRepo interface {
	FindByID(id uint) (*model.User, error)
	UpdateLastSeen(userID uint) error
}

// ActivityMiddleware 每次请求确认账号仍然存在且未被禁用，已签发的 token 在禁用后立即失效
func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			c.Next()
			return
		}

		user, err := repo.FindByID(claims.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if err != nil {
			util.LogInternalError(c, err)
			c.Abort()
			return
		}
		if user.Disabled {
			logger.Log.Info("Disabled account rejected", zap.Uint("userID", user.ID), zap.String("path", c.Request.URL.Path))
			util.Error(c, http.StatusForbidden, util.ErrAccountDisabled.Error())
			c.Abort()
			return
		}

		// 异步更新，不阻塞主流程
		go func(id uint) {
			if err := repo.UpdateLastSeen(id); err != nil {
				logger.Log.Debug("Failed to update last seen", zap.Uint("userID", id), zap.Error(err))
			}
		}(user.ID)
		c.Next()
	}
}

// ConfigMiddleware 将当前配置注入上下文，供 AuthMiddleware 读取
func ConfigMiddleware(get func() *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("config", get())
		c.Next()
	}
}
