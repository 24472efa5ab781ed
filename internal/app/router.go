package app

import (
	"quiz_engine/internal/config"
	"quiz_engine/internal/middleware"
	"quiz_engine/internal/model"
	"quiz_engine/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要登录的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.Timeout(cfg.Server.RequestTimeout), middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		a.registerQuizRoutes(authGroup, c)
	}

	// 3. 教师/管理员
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.AuthMiddleware(cfg.JWT.Secret),
		middleware.RoleMiddleware(model.RoleTeacher, model.RoleAdmin),
	)
	{
		admin.GET("/quiz-results/pending", c.quiz.ListPendingResults)
		admin.PATCH("/quiz-results/:id/attempts/:questionId/score", c.quiz.CorrectScore)
		admin.GET("/quiz-results/:id/audit-logs", c.quiz.ListAuditLogs)
	}
}

func (a *App) registerQuizRoutes(group *gin.RouterGroup, c *controllers) {
	quizzes := group.Group("/quizzes")
	{
		quizzes.GET("/:configId/generate", c.quiz.GenerateQuiz)
		quizzes.POST("/grade", c.quiz.GradeSubmission)
		quizzes.POST("/:configId/submit", c.quiz.SubmitQuiz)
	}

	results := group.Group("/quiz-results")
	{
		results.GET("/:id", c.quiz.GetResult)
		results.POST("", middleware.RoleMiddleware(model.RoleTeacher, model.RoleAdmin), c.quiz.PersistResult)
	}
}
