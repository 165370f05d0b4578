package handlers

import (
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/services"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	termSetHandler    *TermSetHandler
	assessmentHandler *AssessmentHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		termSetHandler:    NewTermSetHandler(serviceManager.TermSet(), logger),
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), serviceManager.Export(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "phonics-check-assistant",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Term set routes
		termSets := v1.Group("/term-sets")
		{
			termSets.POST("/import", hm.termSetHandler.ImportTermSet)
			termSets.GET("", hm.termSetHandler.ListTermSets)
			termSets.GET("/:id", hm.termSetHandler.GetTermSet)
			termSets.DELETE("/:id", hm.termSetHandler.DeleteTermSet)
		}

		// Assessment routes
		assessments := v1.Group("/assessments")
		{
			assessments.POST("", hm.assessmentHandler.CreateAssessment)
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.DELETE("/:id", hm.assessmentHandler.DeleteAssessment)

			assessments.PUT("/:id/outcomes", hm.assessmentHandler.RecordOutcome)
			assessments.POST("/:id/complete", hm.assessmentHandler.CompleteAssessment)
			assessments.POST("/:id/not-done", hm.assessmentHandler.MarkNotDone)
			assessments.GET("/:id/export", hm.assessmentHandler.ExportAssessment)
		}
	}
}
