package telegram_bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"school-chatbot/internal/models"
	"school-chatbot/internal/service"
)

// ChatService answers one chat message.
type ChatService interface {
	Handle(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)
}

// Session is what a Telegram chat has told the bot about itself.
type Session struct {
	StudentID *int64
	Role      models.Role
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot relays Telegram messages to the chat pipeline.
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   sender
	chat     ChatService
	sessions *lru.Cache[int64, Session]
	access   map[int64][]int64 // chat ID -> student IDs it may ask about
	logger   *zap.Logger
}

const (
	helpText = "I answer questions about marks, attendance and academic progress.\n\n" +
		"/student <id> - set the student you are asking about\n" +
		"/role parent|student - set who you are (default: parent)\n" +
		"/help - show this message"
	needStudentText   = "Please tell me the student ID first, for example: /student 12"
	notAuthorisedText = "This chat is not authorised to use the school assistant. Please contact the school office."
)

// NewBot creates a new Telegram bot instance. When access is non-empty only
// the listed chats are served, each limited to its own student IDs; an empty
// access map serves every chat.
func NewBot(token string, sessionCacheSize int, access map[int64][]int64, chat ChatService, logger *zap.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}
	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	if len(access) == 0 {
		logger.Warn("Telegram chat access list is empty, any chat can ask about any student")
	}

	b, err := newBot(botAPI, sessionCacheSize, access, chat, logger)
	if err != nil {
		return nil, err
	}
	b.api = botAPI
	return b, nil
}

func newBot(s sender, sessionCacheSize int, access map[int64][]int64, chat ChatService, logger *zap.Logger) (*Bot, error) {
	if sessionCacheSize <= 0 {
		sessionCacheSize = 1024
	}
	sessions, err := lru.New[int64, Session](sessionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Bot{sender: s, chat: chat, sessions: sessions, access: access, logger: logger}, nil
}

// allowed reports whether chatID may ask about studentID. A zero studentID
// checks only that the chat is listed.
func (b *Bot) allowed(chatID, studentID int64) bool {
	if len(b.access) == 0 {
		return true
	}
	ids, ok := b.access[chatID]
	if !ok {
		return false
	}
	if studentID == 0 {
		return true
	}
	for _, id := range ids {
		if id == studentID {
			return true
		}
	}
	return false
}

// Start begins listening for updates from Telegram
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				b.sendMessage(update.Message.Chat.ID, b.respond(ctx, update.Message))
			}
		}
	}
}

// respond returns the reply text for one incoming message.
func (b *Bot) respond(ctx context.Context, message *tgbotapi.Message) string {
	chatID := message.Chat.ID
	if !b.allowed(chatID, 0) {
		b.logger.Warn("Rejected message from unlisted Telegram chat", zap.Int64("chat_id", chatID))
		return notAuthorisedText
	}
	session := b.session(chatID)

	if message.IsCommand() {
		args := strings.TrimSpace(message.CommandArguments())
		switch message.Command() {
		case "start":
			return fmt.Sprintf("Hello, %s!\n\n%s", firstName(message), helpText)
		case "help":
			return helpText
		case "student":
			id, err := strconv.ParseInt(args, 10, 64)
			if err != nil || id <= 0 {
				return "Usage: /student <id>, where id is a positive number."
			}
			if !b.allowed(chatID, id) {
				b.logger.Warn("Rejected student ID for Telegram chat",
					zap.Int64("chat_id", chatID),
					zap.Int64("student_id", id))
				return "This chat is not linked to that student ID."
			}
			session.StudentID = &id
			b.sessions.Add(chatID, session)
			return fmt.Sprintf("Student ID set to %d.", id)
		case "role":
			role := models.Role(strings.ToLower(args))
			if !role.Valid() {
				return "Usage: /role parent or /role student"
			}
			session.Role = role
			b.sessions.Add(chatID, session)
			return fmt.Sprintf("Role set to %s.", role)
		default:
			return "Unknown command. Use /help to see what I can do."
		}
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		return helpText
	}

	resp, err := b.chat.Handle(ctx, &models.ChatRequest{
		Message:   text,
		Role:      session.Role,
		StudentID: session.StudentID,
	})
	if err != nil {
		if errors.Is(err, service.ErrStudentIDRequired) || errors.Is(err, service.ErrInvalidStudentID) {
			return needStudentText
		}
		b.logger.Error("Failed to handle Telegram message", zap.Int64("chat_id", chatID), zap.Error(err))
		return service.TechnicalIssueReply
	}
	return resp.Reply
}

func (b *Bot) session(chatID int64) Session {
	if s, ok := b.sessions.Get(chatID); ok {
		return s
	}
	return Session{Role: models.RoleParent}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func firstName(message *tgbotapi.Message) string {
	if message.From != nil && message.From.FirstName != "" {
		return message.From.FirstName
	}
	return "there"
}
