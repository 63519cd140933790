package app

import (
	"edu_platform_backend/docs"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/middleware"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	// 接口文档中的路径已带 /api 前缀
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	// 报名
	rg.GET("/enrollments", c.enrollment.ListEnrollments)
	rg.POST("/enrollments", c.enrollment.CreateEnrollment)
	rg.GET("/enrollments/:id", c.enrollment.GetEnrollment)
	rg.GET("/enrollments/student/:studentId", c.enrollment.GetStudentEnrollments)

	// 学习进度
	rg.GET("/progress", c.progress.ListProgress)
	rg.GET("/progress/:id", c.progress.GetProgress)
	rg.GET("/progress/enrollment/:enrollmentId", c.progress.GetProgressByEnrollment)
	rg.GET("/progress/student/:studentId", c.progress.GetProgressByStudent)
	rg.PUT("/progress/lesson/:enrollmentId", c.progress.UpdateLessonProgress)

	// 存储
	rg.GET("/storage/upload-url", c.storage.GetUploadURL)
	rg.GET("/storage/download-url", c.storage.GetDownloadURL)
	rg.PUT("/storage/local/:key", c.storage.UploadLocal)
	rg.GET("/lessons/:id/content-url", c.storage.GetLessonContentURL)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.PUT("/enrollments/:id", c.enrollment.UpdateEnrollment)
		admin.DELETE("/enrollments/:id", c.enrollment.DeleteEnrollment)
		admin.POST("/progress/reset/:enrollmentId", c.progress.ResetProgress)
	}
}
