package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/collegesync/collegesync-api/internal/service"
	appErrors "github.com/collegesync/collegesync-api/pkg/errors"
	"github.com/collegesync/collegesync-api/pkg/response"
)

// EnrollmentHandler exposes enrollment management and role-scoped listings.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll student
// @Description Enroll a student into a subject
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	if err := h.service.Enroll(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"student_id": req.StudentID, "subject_id": req.SubjectID})
}

// Unenroll godoc
// @Summary Remove enrollment
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param subjectId path string true "Subject ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{studentId}/{subjectId} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if err := h.service.Unenroll(c.Request.Context(), c.Param("studentId"), c.Param("subjectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MySubjects godoc
// @Summary My subjects
// @Description Subjects the authenticated student is enrolled in
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /my/subjects [get]
func (h *EnrollmentHandler) MySubjects(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	subjects, err := h.service.MySubjects(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// MyStudents godoc
// @Summary My students
// @Description Students enrolled in the authenticated teacher's subjects
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /my/students [get]
func (h *EnrollmentHandler) MyStudents(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	students, err := h.service.MyStudents(c.Request.Context(), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// ExportRoster godoc
// @Summary Export roster
// @Description Download the authenticated teacher's roster as CSV or PDF
// @Tags Enrollments
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /my/students/export [get]
func (h *EnrollmentHandler) ExportRoster(c *gin.Context) {
	viewer, ok := viewerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := c.DefaultQuery("format", "csv")
	export, err := h.service.ExportRoster(c.Request.Context(), viewer, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+export.Filename)
	c.Data(http.StatusOK, export.ContentType, export.Content)
}
