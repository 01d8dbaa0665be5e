package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"school-chatbot/internal/models"
)

// ChatHistoryRepository stores the conversation log.
type ChatHistoryRepository interface {
	Save(ctx context.Context, entry *models.ChatHistory) error
	ListByStudent(ctx context.Context, studentID int64, limit int) ([]*models.ChatHistory, error)
}

type chatHistoryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewChatHistoryRepository(db *sqlx.DB, logger *zap.Logger) ChatHistoryRepository {
	return &chatHistoryRepository{db: db, logger: logger}
}

func (r *chatHistoryRepository) Save(ctx context.Context, entry *models.ChatHistory) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	query := r.db.Rebind(`INSERT INTO chat_history (role, user_message, bot_reply, student_id, timestamp)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	return r.db.QueryRowxContext(ctx, query,
		entry.Role, entry.UserMessage, entry.BotReply, entry.StudentID, entry.Timestamp).Scan(&entry.ID)
}

// ListByStudent returns up to limit entries, newest first.
func (r *chatHistoryRepository) ListByStudent(ctx context.Context, studentID int64, limit int) ([]*models.ChatHistory, error) {
	entries := []*models.ChatHistory{}
	query := r.db.Rebind(`SELECT id, role, user_message, bot_reply, student_id, timestamp
		FROM chat_history WHERE student_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`)
	err := r.db.SelectContext(ctx, &entries, query, studentID, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
