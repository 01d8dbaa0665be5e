package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"school-chatbot/internal/models"
	"school-chatbot/internal/service"
)

// ChatService is the part of the orchestrator the chat endpoints need.
type ChatService interface {
	Handle(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)
	History(ctx context.Context, studentID int64, limit int) ([]*models.ChatHistory, error)
}

type ChatHandler interface {
	Chat(c *gin.Context)
	History(c *gin.Context)
}

type chatHandler struct {
	chat         ChatService
	historyLimit int
	logger       *zap.Logger
}

func NewChatHandler(chat ChatService, historyLimit int, logger *zap.Logger) ChatHandler {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &chatHandler{chat: chat, historyLimit: historyLimit, logger: logger}
}

// Chat handles POST /chat
func (h *chatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.chat.Handle(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrStudentIDRequired) ||
			errors.Is(err, service.ErrInvalidStudentID) ||
			errors.Is(err, service.ErrInvalidRole) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to handle chat message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// History handles GET /chat/history/:student_id
func (h *chatHandler) History(c *gin.Context) {
	idStr := c.Param("student_id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid student ID"})
		return
	}

	entries, err := h.chat.History(c.Request.Context(), id, h.historyLimit)
	if err != nil {
		h.logger.Error("Failed to get chat history", zap.Int64("student_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve chat history"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
