package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"school-chatbot/internal/models"
	"school-chatbot/internal/repository"
	"school-chatbot/internal/service"
)

// maxUploadSize caps a bulk CSV upload.
const maxUploadSize = 10 << 20

type AdminHandler interface {
	Login(c *gin.Context)
	ListStudents(c *gin.Context)
	CreateStudent(c *gin.Context)
	UpdateStudent(c *gin.Context)
	DeleteStudent(c *gin.Context)
	SaveMark(c *gin.Context)
	SaveAttendance(c *gin.Context)
	Upload(c *gin.Context)
	Report(c *gin.Context)
}

type adminHandler struct {
	admin  service.AdminService
	auth   service.AuthService
	logger *zap.Logger
}

func NewAdminHandler(admin service.AdminService, auth service.AuthService, logger *zap.Logger) AdminHandler {
	return &adminHandler{admin: admin, auth: auth, logger: logger}
}

// Login handles POST /admin/login
func (h *adminHandler) Login(c *gin.Context) {
	var req models.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokenString, expirationTime, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.logger.Error("Failed to login admin", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to login"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      tokenString,
		"expires_at": expirationTime,
	})
}

// ListStudents handles GET /admin/students
func (h *adminHandler) ListStudents(c *gin.Context) {
	students, err := h.admin.ListStudents(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list students", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve students"})
		return
	}
	if students == nil {
		students = []*models.Student{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// CreateStudent handles POST /admin/students
func (h *adminHandler) CreateStudent(c *gin.Context) {
	var req models.CreateStudentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	student, err := h.admin.CreateStudent(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err, "Failed to create student")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Student added successfully", "student": student})
}

// UpdateStudent handles PUT /admin/students/:id
func (h *adminHandler) UpdateStudent(c *gin.Context) {
	id, ok := studentIDParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateStudentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.admin.UpdateStudent(c.Request.Context(), id, req); err != nil {
		h.writeError(c, err, "Failed to update student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student updated successfully"})
}

// DeleteStudent handles DELETE /admin/students/:id
func (h *adminHandler) DeleteStudent(c *gin.Context) {
	id, ok := studentIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteStudent(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "Failed to delete student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully"})
}

// SaveMark handles POST /admin/marks
func (h *adminHandler) SaveMark(c *gin.Context) {
	var req models.MarkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.admin.SaveMark(c.Request.Context(), req); err != nil {
		h.writeError(c, err, "Failed to save marks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Marks saved successfully"})
}

// SaveAttendance handles POST /admin/attendance
func (h *adminHandler) SaveAttendance(c *gin.Context) {
	var req models.AttendanceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.admin.SaveAttendance(c.Request.Context(), req); err != nil {
		h.writeError(c, err, "Failed to save attendance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance saved successfully"})
}

// Upload handles POST /admin/upload with a multipart "file" field.
func (h *adminHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A CSV file is required in the 'file' field"})
		return
	}
	file, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer file.Close()

	summary, err := h.admin.Import(c.Request.Context(), file)
	if err != nil {
		h.writeError(c, err, "Failed to import file")
		return
	}
	h.logger.Info("Bulk upload imported",
		zap.String("file", header.Filename),
		zap.Int("rows", summary.Rows))
	c.JSON(http.StatusOK, gin.H{"message": "Upload successful", "summary": summary})
}

// Report handles GET /admin/report/:id
func (h *adminHandler) Report(c *gin.Context) {
	id, ok := studentIDParam(c, "id")
	if !ok {
		return
	}
	report, err := h.admin.Report(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "Failed to build report")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *adminHandler) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, repository.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
	case errors.Is(err, repository.ErrStudentExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Student already exists"})
	case errors.Is(err, service.ErrInvalidUpload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func studentIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student ID"})
		return 0, false
	}
	return id, true
}
