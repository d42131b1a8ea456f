package app

import (
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.POST("/logout", c.auth.Logout)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)

	learning := group.Group("/learning")
	{
		learning.GET("/overview", c.learning.GetOverview)
		learning.GET("/progress", c.learning.GetProgress)
		learning.POST("/scores", c.learning.SaveScores)

		learning.POST("/modules/:moduleId/complete", c.learning.CompleteModule)
		learning.GET("/modules/:moduleId/content", c.learning.GetModuleContent)

		learning.GET("/checkpoints/:number", c.learning.GetCheckpoint)
		learning.POST("/checkpoints/:number/submit", c.learning.SubmitCheckpoint)
		learning.PUT("/checkpoints/:number/session", c.learning.SaveSession)
		learning.GET("/checkpoints/:number/session", c.learning.ResumeSession)
		learning.DELETE("/checkpoints/:number/session", c.learning.DiscardSession)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.ActivityMiddleware(repos.user), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/modules", c.catalog.ListModules)
		admin.POST("/modules", c.catalog.CreateModule)
		admin.PUT("/modules/:moduleId", c.catalog.UpdateModule)
		admin.DELETE("/modules/:moduleId", c.catalog.DeleteModule)
		admin.POST("/modules/:moduleId/content", c.catalog.UploadModuleContent)

		admin.GET("/checkpoints", c.catalog.ListCheckpoints)
		admin.GET("/checkpoints/:number", c.catalog.GetCheckpoint)
		admin.POST("/checkpoints", c.catalog.CreateCheckpoint)
		admin.PUT("/checkpoints/:number", c.catalog.UpdateCheckpoint)
		admin.DELETE("/checkpoints/:number", c.catalog.DeleteCheckpoint)

		admin.GET("/users", c.user.GetUsers)
		admin.GET("/users/:id/overview", c.user.GetUserOverview)
		admin.PUT("/users/:id/disable", c.user.DisableUser)

		admin.GET("/reports/progress.xlsx", c.report.ExportProgress)
	}
}
