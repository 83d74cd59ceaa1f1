package app

import (
	"quiz_portal_backend/docs"
	"quiz_portal_backend/internal/config"
	"quiz_portal_backend/internal/middleware"
	"quiz_portal_backend/internal/model"
	"quiz_portal_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)
	a.registerCatalogRoutes(router, c, repos, cfg)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.Check)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// Anyone holding a certificate code can check it, no login needed.
		public.GET("/certificates/verify", c.certificate.Verify)
	}
}

// registerCatalogRoutes exposes the published course and test catalog with
// optional authentication: guests see published entries only, logged-in
// teachers see drafts too.
func (a *App) registerCatalogRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	catalog := router.Group("/api")
	catalog.Use(middleware.TryAuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		catalog.GET("/courses", c.course.List)
		catalog.GET("/courses/:id", c.course.Get)
		catalog.GET("/tests", c.test.List)
		catalog.GET("/tests/:id", c.test.GetForStudent)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)
	rg.PUT("/user/profile", c.user.UpdateProfile)
	rg.POST("/user/avatar/upload", c.user.UploadAvatar)

	rg.POST("/tests/:id/attempts", c.attempt.Start)

	rg.GET("/attempts/:id", c.attempt.GetDetail)
	rg.POST("/attempts/:id/answers", c.attempt.RecordAnswer)
	rg.POST("/attempts/:id/submit", c.attempt.Submit)
	rg.POST("/attempts/:id/heartbeat", c.attempt.Heartbeat)
	rg.POST("/attempts/:id/violations", c.attempt.ReportViolation)
	rg.POST("/attempts/:id/certificate", c.certificate.Issue)

	rg.GET("/my-attempts", c.attempt.ListMine)
	rg.GET("/my-certificates", c.certificate.ListMine)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/courses", c.course.Create)
		teacher.PUT("/courses/:id", c.course.Update)
		teacher.DELETE("/courses/:id", c.course.Delete)

		teacher.POST("/tests", c.test.Create)
		teacher.GET("/tests/:id", c.test.Get)
		teacher.PUT("/tests/:id", c.test.Update)
		teacher.DELETE("/tests/:id", c.test.Delete)

		teacher.GET("/tests/:id/attempts", c.attempt.ListForReview)
		teacher.GET("/attempts/:id", c.attempt.GetDetail)
		teacher.GET("/attempts/:id/violations", c.attempt.ListViolations)
		teacher.POST("/attempts/:id/terminate", c.attempt.Terminate)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.ListUsers)
	}
}
