package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/CET-Mate/exam-session-service/internal/repositories"
	"github.com/CET-Mate/exam-session-service/internal/services"
	"github.com/CET-Mate/exam-session-service/internal/validator"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	paperHandler   *PaperHandler
	resultHandler  *ResultHandler
}

func NewHandlerManager(
	sessionService services.SessionService,
	repo repositories.Repository,
	validator *validator.Validator,
	logger *slog.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(sessionService, repo.Session(), validator, logger),
		paperHandler:   NewPaperHandler(repo.Paper(), logger),
		resultHandler:  NewResultHandler(repo.Result(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		papers := v1.Group("/papers")
		{
			papers.GET("", hm.paperHandler.ListPapers)
			papers.GET("/:id", hm.paperHandler.GetPaper)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("/start", hm.sessionHandler.StartSession)
			sessions.GET("", hm.sessionHandler.ListSessions)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)

			// Navigation
			sessions.POST("/:id/goto/:index", hm.sessionHandler.MoveTo)
			sessions.POST("/:id/next", hm.sessionHandler.Next)
			sessions.POST("/:id/previous", hm.sessionHandler.Previous)
			sessions.POST("/:id/section/:type", hm.sessionHandler.JumpToSection)

			// Answer capture
			sessions.POST("/:id/answers/choice", hm.sessionHandler.RecordChoice)
			sessions.POST("/:id/answers/text", hm.sessionHandler.RecordText)

			// Time and grading output
			sessions.GET("/:id/time-remaining", hm.sessionHandler.GetTimeRemaining)
			sessions.GET("/:id/progress", hm.sessionHandler.GetProgress)
			sessions.GET("/:id/result", hm.sessionHandler.GetResult)
			sessions.GET("/:id/result/export", hm.sessionHandler.ExportResult)
		}

		results := v1.Group("/results")
		{
			results.GET("", hm.resultHandler.ListResults)
		}
	}

	router.GET("/health", healthCheck)
}
