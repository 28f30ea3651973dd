package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"storegate/internal/pdf"
	"storegate/internal/repositories"
)

type ReportHandler struct {
	events    repositories.SignInEventRecorder
	generator pdf.ReportGenerator
}

func NewReportHandler(events repositories.SignInEventRecorder, generator pdf.ReportGenerator) *ReportHandler {
	return &ReportHandler{events: events, generator: generator}
}

// @Summary      Sign-in audit export
// @Description  Renders the recent sign-in trail as a PDF (admin only)
// @Tags         Reports
// @Produce      application/pdf
// @Param        limit  query  int  false  "Max events"  default(200)
// @Success      200
// @Router       /admin/reports/signins.pdf [get]
func (h *ReportHandler) SignInReport(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	adminID, _ := getUserAndRole(c)
	log.Printf("[report][signin] export by user_id=%d limit=%d", adminID, limit)

	events, err := h.events.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}

	data, err := h.generator.SignInReport(events, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render report"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="signins.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
