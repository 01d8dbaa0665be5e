package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"school-chatbot/internal/guard"
	"school-chatbot/internal/intent"
	"school-chatbot/internal/llm"
	"school-chatbot/internal/metrics"
	"school-chatbot/internal/models"
	"school-chatbot/internal/repository"
	"school-chatbot/internal/safety"
	"school-chatbot/internal/tone"
)

const (
	// TechnicalIssueReply replaces the body of any reply whose handling failed.
	TechnicalIssueReply = "We are experiencing a technical issue. Please contact the school office."
	// UnavailableReply replaces a generative answer that timed out or failed.
	UnavailableReply = "The AI advisor is currently unavailable. Please try again later."
)

// RouterConfig tunes the orchestrator.
type RouterConfig struct {
	RequestTimeout          time.Duration // bound on one generative call
	PersistTimeout          time.Duration // bound on saving chat history
	AdvisorAttendanceWindow int           // recent attendance rows given to the advisor
	OfficePhone             string
}

// Router sequences the rule stages, dispatches to a deterministic or
// generative responder, applies tone and records the exchange.
type Router struct {
	students  repository.StudentRepository
	history   repository.ChatHistoryRepository
	generator llm.Generator
	metrics   *metrics.Metrics
	cfg       RouterConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewRouter(
	students repository.StudentRepository,
	history repository.ChatHistoryRepository,
	generator llm.Generator,
	m *metrics.Metrics,
	cfg RouterConfig,
	logger *zap.Logger,
) *Router {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 3 * time.Second
	}
	if cfg.AdvisorAttendanceWindow <= 0 {
		cfg.AdvisorAttendanceWindow = 10
	}
	return &Router{
		students:  students,
		history:   history,
		generator: generator,
		metrics:   m,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle answers one chat message. Guard rejections and internal failures are
// ordinary replies; only a malformed request returns an error
// (ErrInvalidRole, ErrStudentIDRequired, ErrInvalidStudentID).
func (r *Router) Handle(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if !req.Role.Valid() {
		return nil, ErrInvalidRole
	}

	start := r.now()
	logger := r.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("role", string(req.Role)))
	if req.StudentID != nil {
		logger = logger.With(zap.Int64("student_id", *req.StudentID))
	}
	logger.Debug("Handling chat message", zap.String("message", req.Message))

	decision := Decide(req.Message, start)
	if !decision.Rejected() && decision.Intent.Label.StudentScoped() {
		if req.StudentID == nil {
			return nil, ErrStudentIDRequired
		}
		if *req.StudentID <= 0 {
			return nil, ErrInvalidStudentID
		}
	}

	stage, label := decision.Stage, decision.Label()
	body, err := r.respond(ctx, req, decision, logger)
	if err != nil {
		logger.Error("Failed to answer chat message",
			zap.String("stage", string(stage)),
			zap.String("label", label),
			zap.Error(err))
		body = TechnicalIssueReply
		stage, label = StageError, "technical_issue"
	}

	var category safety.Category
	if decision.Stage == StageSafety {
		category = decision.Safety.Category
	}
	reply := tone.Adapt(string(req.Role), body, category)

	r.persist(ctx, req, reply, logger)

	r.metrics.ObserveOutcome(string(stage), label)
	r.metrics.ObserveRequest(string(stage), r.now().Sub(start))
	logger.Info("Chat message answered",
		zap.String("stage", string(stage)),
		zap.String("label", label),
		zap.Duration("duration", r.now().Sub(start)))

	return &models.ChatResponse{Reply: reply}, nil
}

// respond produces the reply body. A panic in any responder is returned as
// an error.
func (r *Router) respond(ctx context.Context, req *models.ChatRequest, d Decision, logger *zap.Logger) (body string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while answering: %v", p)
		}
	}()

	switch d.Stage {
	case StageSafety:
		logger.Warn("Message blocked by safety screen",
			zap.String("category", string(d.Safety.Category)),
			zap.String("rationale", d.Safety.Rationale))
		return safety.Redirect(d.Safety.Category), nil
	case StageAuthorization:
		logger.Warn("Message denied by authorization guard",
			zap.String("reason", string(d.Authz.Reason)),
			zap.String("phrase", d.Authz.Phrase))
		return d.Authz.Reply, nil
	case StageDomain:
		return guard.OffDomainReply(r.cfg.OfficePhone), nil
	}

	if d.Intent.Label == intent.LabelNone {
		return r.generate(ctx, "fallback", req.Role, fallbackPrompt(req), logger), nil
	}

	student, err := r.students.GetStudent(ctx, *req.StudentID)
	if err != nil {
		return "", fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil {
		return StudentNotFoundReply, nil
	}

	switch d.Intent.Label {
	case intent.LabelAverage:
		return r.average(ctx, student)
	case intent.LabelAttendance:
		return r.attendance(ctx, student, d.Time)
	case intent.LabelMarks:
		return r.marks(ctx, student)
	case intent.LabelStrongestWeakest:
		return r.strongestWeakest(ctx, student, d.Intent.Weakest())
	case intent.LabelSubjectPerformance:
		if d.Intent.Subject == nil {
			return r.advisor(ctx, req, student, logger)
		}
		return r.subjectPerformance(ctx, req, student, *d.Intent.Subject, logger)
	case intent.LabelAdvisor:
		return r.advisor(ctx, req, student, logger)
	default:
		return "", fmt.Errorf("unhandled intent %q", d.Intent.Label)
	}
}

// generate calls the generative service under the request timeout. Any
// failure yields UnavailableReply.
func (r *Router) generate(ctx context.Context, purpose string, role models.Role, text string, logger *zap.Logger) string {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()

	reply, err := r.generator.Generate(ctx, models.GenerationRequest{Role: role, Prompt: text})
	switch {
	case err == nil && reply != "":
		r.metrics.ObserveGeneration(purpose, "ok")
		return reply
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.metrics.ObserveGeneration(purpose, "timeout")
		logger.Warn("Generative call timed out",
			zap.String("purpose", purpose),
			zap.Duration("timeout", r.cfg.RequestTimeout))
	case err == nil:
		r.metrics.ObserveGeneration(purpose, "empty")
		logger.Warn("Generative call returned no text", zap.String("purpose", purpose))
	default:
		r.metrics.ObserveGeneration(purpose, "error")
		logger.Warn("Generative call failed", zap.String("purpose", purpose), zap.Error(err))
	}
	return UnavailableReply
}

// persist saves the exchange. It survives cancellation of the caller's
// context and only logs failures.
func (r *Router) persist(ctx context.Context, req *models.ChatRequest, reply string, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.PersistTimeout)
	defer cancel()

	entry := &models.ChatHistory{
		Role:        req.Role,
		UserMessage: req.Message,
		BotReply:    reply,
		StudentID:   req.StudentID,
		Timestamp:   r.now().UTC(),
	}
	if err := r.history.Save(ctx, entry); err != nil {
		logger.Error("Failed to save chat history", zap.Error(err))
	}
}

// History returns the latest chat entries of a student, newest first.
func (r *Router) History(ctx context.Context, studentID int64, limit int) ([]*models.ChatHistory, error) {
	if studentID <= 0 {
		return nil, ErrInvalidStudentID
	}
	return r.history.ListByStudent(ctx, studentID, limit)
}
