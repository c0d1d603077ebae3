package app

import (
	"bridge4er_backend/internal/config"
	"bridge4er_backend/internal/middleware"
	"bridge4er_backend/internal/model"
	"bridge4er_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/api/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/subjects", c.questionBank.GetSubjects)
		authGroup.GET("/subjects/:subject/chapters", c.questionBank.GetChapters)
		authGroup.GET("/subjects/:subject/chapters/:chapter/questions", c.questionBank.GetQuestions)

		authGroup.GET("/exam-sets", c.examSet.GetExamSets)
		authGroup.GET("/exam-sets/:id", c.examSet.GetExamSet)

		admin := authGroup.Group("/admin")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.POST("/sync/question-bank", c.sync.SyncQuestionBank)
		}
	}
}
