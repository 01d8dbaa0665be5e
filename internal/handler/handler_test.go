package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"school-chatbot/internal/models"
	"school-chatbot/internal/repository"
	"school-chatbot/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChat struct {
	req     *models.ChatRequest
	err     error
	history []*models.ChatHistory
	limit   int
}

func (f *fakeChat) Handle(_ context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatResponse{Reply: "Hello!\n\n" + req.Message}, nil
}

func (f *fakeChat) History(_ context.Context, _ int64, limit int) ([]*models.ChatHistory, error) {
	f.limit = limit
	return f.history, f.err
}

func chatRouter(chat ChatService) *gin.Engine {
	h := NewChatHandler(chat, 5, zap.NewNop())
	r := gin.New()
	r.POST("/chat", h.Chat)
	r.GET("/chat/history/:student_id", h.History)
	return r
}

func do(r http.Handler, method, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChat(t *testing.T) {
	chat := &fakeChat{}
	r := chatRouter(chat)

	w := do(r, http.MethodPost, "/chat", []byte(`{"message":"show my marks","role":"parent","student_id":7}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hello!\n\nshow my marks", resp.Reply)
	require.NotNil(t, chat.req.StudentID)
	assert.Equal(t, int64(7), *chat.req.StudentID)
	assert.Equal(t, models.RoleParent, chat.req.Role)
}

func TestChatRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"missing message", `{"role":"parent"}`, nil},
		{"unknown role", `{"message":"hi","role":"teacher"}`, nil},
		{"not json", `{`, nil},
		{"id required", `{"message":"show my marks","role":"student"}`, service.ErrStudentIDRequired},
		{"bad id", `{"message":"show my marks","role":"student","student_id":-1}`, service.ErrInvalidStudentID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(chatRouter(&fakeChat{err: tt.err}), http.MethodPost, "/chat", []byte(tt.body), nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}

	w := do(chatRouter(&fakeChat{err: errors.New("boom")}), http.MethodPost, "/chat",
		[]byte(`{"message":"hi","role":"student"}`), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestChatHistory(t *testing.T) {
	id := int64(3)
	chat := &fakeChat{history: []*models.ChatHistory{
		{ID: 2, Role: models.RoleStudent, UserMessage: "b", BotReply: "y", StudentID: &id},
		{ID: 1, Role: models.RoleStudent, UserMessage: "a", BotReply: "x", StudentID: &id},
	}}
	r := chatRouter(chat)

	w := do(r, http.MethodGet, "/chat/history/3", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.ChatHistory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].ID)
	assert.Equal(t, 5, chat.limit)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/chat/history/abc", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/chat/history/0", nil, nil).Code)
}

func adminRouter(t *testing.T) *gin.Engine {
	t.Helper()
	logger := zap.NewNop()
	db, err := repository.NewSQLiteDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.MigrateDB(db, logger))

	hash, err := service.HashPassword("s3cret")
	require.NoError(t, err)
	h := NewAdminHandler(
		service.NewAdminService(repository.NewStudentRepository(db, logger), logger),
		service.NewAuthService("admin", hash, "test-secret", time.Hour, logger),
		logger)

	r := gin.New()
	r.POST("/admin/login", h.Login)
	r.GET("/admin/students", h.ListStudents)
	r.POST("/admin/students", h.CreateStudent)
	r.PUT("/admin/students/:id", h.UpdateStudent)
	r.DELETE("/admin/students/:id", h.DeleteStudent)
	r.POST("/admin/marks", h.SaveMark)
	r.POST("/admin/attendance", h.SaveAttendance)
	r.POST("/admin/upload", h.Upload)
	r.GET("/admin/report/:id", h.Report)
	return r
}

func TestAdminLogin(t *testing.T) {
	r := adminRouter(t)

	w := do(r, http.MethodPost, "/admin/login", []byte(`{"username":"admin","password":"s3cret"}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)

	w = do(r, http.MethodPost, "/admin/login", []byte(`{"username":"admin","password":"nope"}`), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/admin/login", []byte(`{"username":"admin"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminStudentEndpoints(t *testing.T) {
	r := adminRouter(t)

	w := do(r, http.MethodPost, "/admin/students", []byte(`{"id":1,"name":"Asha"}`), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(r, http.MethodPost, "/admin/students", []byte(`{"id":1,"name":"Asha"}`), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(r, http.MethodPost, "/admin/students", []byte(`{"id":0,"name":"Nobody"}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/admin/students/1", []byte(`{"name":"Asha K"}`), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/admin/students/9", []byte(`{"name":"x"}`), nil).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/admin/marks", []byte(`{"student_id":1,"subject":"Maths","score":90}`), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/admin/marks", []byte(`{"student_id":1,"subject":"Maths","score":190}`), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/admin/marks", []byte(`{"student_id":9,"subject":"Maths","score":90}`), nil).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/admin/attendance", []byte(`{"student_id":1,"date":"2025-10-08","status":"present"}`), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/admin/attendance", []byte(`{"student_id":1,"status":"present"}`), nil).Code)

	w = do(r, http.MethodGet, "/admin/report/1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.StudentReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "Asha K", report.Student.Name)
	assert.Equal(t, 90.0, report.Summary.AverageScore)
	assert.Equal(t, 100.0, report.Summary.AttendancePercent)

	w = do(r, http.MethodGet, "/admin/students", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Asha K")

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/admin/students/1", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/admin/students/1", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/admin/report/1", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/admin/report/x", nil, nil).Code)
}

func upload(t *testing.T, r http.Handler, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "students.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminUpload(t *testing.T) {
	r := adminRouter(t)

	w := upload(t, r, "student_id,name,subject,score,date,status\n1,Asha,Maths,91,2025-10-08,present\n")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"marks":1`)

	w = upload(t, r, "id,name\n1,Asha\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing required columns")

	w = do(r, http.MethodPost, "/admin/upload", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
