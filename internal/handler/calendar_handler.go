package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/collegesync/collegesync-api/internal/service"
	appErrors "github.com/collegesync/collegesync-api/pkg/errors"
	"github.com/collegesync/collegesync-api/pkg/response"
)

// CalendarHandler serves the role-scoped calendar feed.
type CalendarHandler struct {
	service *service.CalendarService
}

// NewCalendarHandler creates a new handler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Events godoc
// @Summary Calendar events
// @Description Appointments visible to the caller, shaped for the calendar widget
// @Tags Calendar
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.service.ListForViewer(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
