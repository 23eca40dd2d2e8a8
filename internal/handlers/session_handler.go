package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CET-Mate/exam-session-service/internal/models"
	"github.com/CET-Mate/exam-session-service/internal/repositories"
	"github.com/CET-Mate/exam-session-service/internal/services"
	"github.com/CET-Mate/exam-session-service/internal/validator"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	sessionRepo    repositories.SessionRepository
	validator      *validator.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	sessionRepo repositories.SessionRepository,
	validator *validator.Validator,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		sessionRepo:    sessionRepo,
		validator:      validator,
	}
}

// StartSession starts a new timed exam session
// @Summary Start exam session
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Start session data"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	h.LogRequest(c, "Starting exam session")

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	studentID := h.studentID(c)
	if studentID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Student identity missing",
		})
		return
	}

	resp, err := h.sessionService.Start(c.Request.Context(), &req, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SubmitSession submits a session for grading
// @Summary Submit exam session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param submit body services.SubmitRequest false "Submit reason"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Submitting exam session", "session_id", id)

	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	if err := h.sessionService.Submit(c.Request.Context(), id, req.Reason); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Session submitted",
	})
}

// MoveTo jumps to a specific question
// @Summary Move to question
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param index path int true "Question index"
// @Success 200 {object} services.NavigationResponse
// @Failure 400 {object} ErrorResponse
// @Router /sessions/{id}/goto/{index} [post]
func (h *SessionHandler) MoveTo(c *gin.Context) {
	id := c.Param("id")
	index, ok := h.parseIntParam(c, "index")
	if !ok {
		return
	}

	resp, err := h.sessionService.MoveTo(c.Request.Context(), id, index)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Next advances to the next question; at the last question it submits
// @Summary Next question
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.NavigationResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/next [post]
func (h *SessionHandler) Next(c *gin.Context) {
	id := c.Param("id")

	resp, err := h.sessionService.Next(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Previous moves to the previous question
// @Summary Previous question
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.NavigationResponse
// @Failure 400 {object} ErrorResponse
// @Router /sessions/{id}/previous [post]
func (h *SessionHandler) Previous(c *gin.Context) {
	id := c.Param("id")

	resp, err := h.sessionService.Previous(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// JumpToSection moves to the first question of a section
// @Summary Jump to section
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param type path string true "Section type"
// @Success 200 {object} services.NavigationResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/section/{type} [post]
func (h *SessionHandler) JumpToSection(c *gin.Context) {
	id := c.Param("id")
	sectionType := models.SectionType(c.Param("type"))

	resp, err := h.sessionService.JumpToSection(c.Request.Context(), id, sectionType)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordChoice records a choice answer
// @Summary Record choice answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param answer body services.RecordChoiceRequest true "Choice data"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /sessions/{id}/answers/choice [post]
func (h *SessionHandler) RecordChoice(c *gin.Context) {
	id := c.Param("id")

	var req services.RecordChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.sessionService.RecordChoice(c.Request.Context(), id, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Answer recorded",
	})
}

// RecordText records or stages a free-text answer
// @Summary Record text answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param answer body services.RecordTextRequest true "Text data"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /sessions/{id}/answers/text [post]
func (h *SessionHandler) RecordText(c *gin.Context) {
	id := c.Param("id")

	var req services.RecordTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.sessionService.RecordText(c.Request.Context(), id, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Answer recorded",
	})
}

// GetTimeRemaining returns the countdown's remaining seconds
// @Summary Get time remaining
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse{data=int}
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/time-remaining [get]
func (h *SessionHandler) GetTimeRemaining(c *gin.Context) {
	id := c.Param("id")

	remaining, err := h.sessionService.TimeRemaining(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Time remaining retrieved",
		Data:    remaining,
	})
}

// GetProgress returns grading progress for a submitted session
// @Summary Get grading progress
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.GradingProgress
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/progress [get]
func (h *SessionHandler) GetProgress(c *gin.Context) {
	id := c.Param("id")

	progress, err := h.sessionService.Progress(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// GetResult returns the graded result
// @Summary Get exam result
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.ExamResult
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/result [get]
func (h *SessionHandler) GetResult(c *gin.Context) {
	id := c.Param("id")

	result, err := h.sessionService.Result(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportResult downloads the result as an xlsx workbook
// @Summary Export exam result
// @Tags sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/result/export [get]
func (h *SessionHandler) ExportResult(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Exporting exam result", "session_id", id)

	workbook, err := h.sessionService.ExportResult(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="result-`+id+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

// ListSessions lists sessions with filters
// @Summary List exam sessions
// @Tags sessions
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Param status query string false "Session status"
// @Param student_id query string false "Student ID"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} ErrorResponse
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	filters := h.parseSessionFilters(c)

	sessions, total, err := h.sessionRepo.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	page := (filters.Offset / max(filters.Limit, 1)) + 1
	totalPages := (int(total) + filters.Limit - 1) / max(filters.Limit, 1)
	c.JSON(http.StatusOK, map[string]interface{}{
		"data":        sessions,
		"total":       total,
		"page":        page,
		"size":        filters.Limit,
		"total_pages": totalPages,
	})
}

func (h *SessionHandler) parseSessionFilters(c *gin.Context) repositories.SessionFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.SessionFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if status := c.Query("status"); status != "" {
		sessionStatus := models.SessionStatus(status)
		filters.Status = &sessionStatus
	}
	if studentID := strings.TrimSpace(c.Query("student_id")); studentID != "" {
		filters.StudentID = &studentID
	}

	return filters
}
