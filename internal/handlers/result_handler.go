package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CET-Mate/exam-session-service/internal/repositories"
)

// ResultHandler serves the result history across sessions. Per-session
// result access lives on the session routes.
type ResultHandler struct {
	BaseHandler
	resultRepo repositories.ResultRepository
}

func NewResultHandler(resultRepo repositories.ResultRepository, logger *slog.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler: NewBaseHandler(logger),
		resultRepo:  resultRepo,
	}
}

// ListResults lists graded results with filters
// @Summary List exam results
// @Tags results
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Param student_id query string false "Student ID"
// @Param paper_id query uint false "Paper ID"
// @Param min_score query number false "Minimum total score"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} ErrorResponse
// @Router /results [get]
func (h *ResultHandler) ListResults(c *gin.Context) {
	filters := h.parseResultFilters(c)

	results, total, err := h.resultRepo.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	page := (filters.Offset / max(filters.Limit, 1)) + 1
	totalPages := (int(total) + filters.Limit - 1) / max(filters.Limit, 1)
	c.JSON(http.StatusOK, map[string]interface{}{
		"data":        results,
		"total":       total,
		"page":        page,
		"size":        filters.Limit,
		"total_pages": totalPages,
	})
}

func (h *ResultHandler) parseResultFilters(c *gin.Context) repositories.ResultFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.ResultFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if studentID := strings.TrimSpace(c.Query("student_id")); studentID != "" {
		filters.StudentID = &studentID
	}
	if paperIDStr := c.Query("paper_id"); paperIDStr != "" {
		if paperID, err := strconv.ParseUint(paperIDStr, 10, 32); err == nil {
			id := uint(paperID)
			filters.PaperID = &id
		}
	}
	if minScoreStr := c.Query("min_score"); minScoreStr != "" {
		if minScore, err := strconv.ParseFloat(minScoreStr, 64); err == nil {
			filters.MinScore = &minScore
		}
	}

	return filters
}
