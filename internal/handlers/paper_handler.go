package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CET-Mate/exam-session-service/internal/repositories"
)

// PaperHandler serves the read-only paper catalog. Papers are authored
// elsewhere; this service only runs sessions over them.
type PaperHandler struct {
	BaseHandler
	paperRepo repositories.PaperRepository
}

func NewPaperHandler(paperRepo repositories.PaperRepository, logger *slog.Logger) *PaperHandler {
	return &PaperHandler{
		BaseHandler: NewBaseHandler(logger),
		paperRepo:   paperRepo,
	}
}

// ListPapers lists available exam papers
// @Summary List exam papers
// @Tags papers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} ErrorResponse
// @Router /papers [get]
func (h *PaperHandler) ListPapers(c *gin.Context) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	papers, total, err := h.paperRepo.List(c.Request.Context(), size, (page-1)*size)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	totalPages := (int(total) + size - 1) / max(size, 1)
	c.JSON(http.StatusOK, map[string]interface{}{
		"data":        papers,
		"total":       total,
		"page":        page,
		"size":        size,
		"total_pages": totalPages,
	})
}

// GetPaper retrieves one paper by ID
// @Summary Get exam paper
// @Tags papers
// @Produce json
// @Param id path uint true "Paper ID"
// @Success 200 {object} models.ExamPaper
// @Failure 404 {object} ErrorResponse
// @Router /papers/{id} [get]
func (h *PaperHandler) GetPaper(c *gin.Context) {
	id, ok := h.parseUintParam(c, "id")
	if !ok {
		return
	}

	paper, err := h.paperRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Exam paper not found",
			})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, paper)
}
