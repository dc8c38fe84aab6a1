package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/ai"
	"github.com/debriefhub/debriefhub/internal/events"
	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
)

var (
	ErrSessionNotActive   = errors.New("debriefing session is not active")
	ErrNoMoreQuestions    = errors.New("no more questions in session")
	ErrQuestionUnanswered = errors.New("current question has no answer yet")
)

// debriefingExpiry is how long a rep has to complete a scheduled debriefing
// before it expires.
const debriefingExpiry = 48 * time.Hour

// defaultQuestions is the base question set for every debriefing. A branch
// question is appended at runtime when an answer suggests a stage change.
var defaultQuestions = []string{
	"How did the meeting go overall?",
	"What were the key points discussed?",
	"What action items came out of the meeting?",
	"What are the agreed next steps?",
	"Did the deal stage or amount change as a result of this meeting?",
}

// stageBranchQuestion is asked when the stage-change answer is affirmative.
const stageBranchQuestion = "What is the new stage, and what is the updated deal amount if it changed?"

// InsightExtractor distills structured insights from answered questions.
type InsightExtractor interface {
	ExtractInsights(ctx context.Context, qas []ai.QA) (*ai.Extraction, error)
}

// DebriefingService runs the post-meeting Q&A flow and turns completed
// sessions into validation sessions via AI extraction.
type DebriefingService struct {
	debriefings repositories.DebriefingRepository
	validations repositories.ValidationRepository
	meetings    repositories.MeetingRepository
	extractor   InsightExtractor
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewDebriefingService(
	debriefings repositories.DebriefingRepository,
	validations repositories.ValidationRepository,
	meetings repositories.MeetingRepository,
	extractor InsightExtractor,
	publisher events.Publisher,
	logger *slog.Logger,
) *DebriefingService {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &DebriefingService{
		debriefings: debriefings,
		validations: validations,
		meetings:    meetings,
		extractor:   extractor,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// ScheduleDebriefing creates a session with the default question set for the
// meeting's owner.
func (d *DebriefingService) ScheduleDebriefing(ctx context.Context, meetingID uuid.UUID) (*models.DebriefingSession, error) {
	meeting, err := d.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}

	session := &models.DebriefingSession{
		MeetingID: meeting.ID,
		UserID:    meeting.UserID,
		Status:    models.DebriefingScheduled,
		ExpiresAt: d.now().Add(debriefingExpiry),
	}
	if err := d.debriefings.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create debriefing session: %w", err)
	}

	for i, prompt := range defaultQuestions {
		question := &models.DebriefingQuestion{
			SessionID: session.ID,
			Sequence:  i + 1,
			Prompt:    prompt,
		}
		if err := d.debriefings.CreateQuestion(ctx, question); err != nil {
			return nil, fmt.Errorf("failed to create question: %w", err)
		}
	}

	return session, nil
}

// StartDebriefing transitions a scheduled session to in-progress and returns
// the first question.
func (d *DebriefingService) StartDebriefing(ctx context.Context, sessionID uuid.UUID) (*models.DebriefingQuestion, error) {
	session, err := d.debriefings.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load debriefing session: %w", err)
	}
	if session.Status != models.DebriefingScheduled && session.Status != models.DebriefingInProgress {
		return nil, ErrSessionNotActive
	}

	if session.Status == models.DebriefingScheduled {
		session.Status = models.DebriefingInProgress
		now := d.now()
		session.StartedAt = &now
		session.CurrentQuestion = 1
		if err := d.debriefings.UpdateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to start debriefing session: %w", err)
		}
	}

	return d.currentQuestion(ctx, session)
}

func (d *DebriefingService) currentQuestion(ctx context.Context, session *models.DebriefingSession) (*models.DebriefingQuestion, error) {
	questions, err := d.debriefings.ListQuestions(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	for _, q := range questions {
		if q.Sequence == session.CurrentQuestion {
			return q, nil
		}
	}
	return nil, ErrNoMoreQuestions
}

// SubmitAnswer records the answer for the current question and advances the
// session. It returns the next question, or nil when the session completed.
func (d *DebriefingService) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, answer string) (*models.DebriefingQuestion, error) {
	session, err := d.debriefings.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load debriefing session: %w", err)
	}
	if session.Status != models.DebriefingInProgress {
		return nil, ErrSessionNotActive
	}

	question, err := d.currentQuestion(ctx, session)
	if err != nil {
		return nil, err
	}

	if err := d.debriefings.AnswerQuestion(ctx, question.ID, answer, d.now()); err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	questions, err := d.debriefings.ListQuestions(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	// Branch: an affirmative stage-change answer appends a follow-up question
	// once.
	if question.Sequence == len(defaultQuestions) && affirmative(answer) && !hasBranch(questions) {
		branch := &models.DebriefingQuestion{
			SessionID: session.ID,
			Sequence:  len(questions) + 1,
			Prompt:    stageBranchQuestion,
		}
		if err := d.debriefings.CreateQuestion(ctx, branch); err != nil {
			return nil, fmt.Errorf("failed to create branch question: %w", err)
		}
		questions = append(questions, branch)
	}

	if session.CurrentQuestion < len(questions) {
		session.CurrentQuestion++
		if err := d.debriefings.UpdateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to advance session: %w", err)
		}
		return d.currentQuestion(ctx, session)
	}

	if err := d.completeSession(ctx, session, questions); err != nil {
		return nil, err
	}
	return nil, nil
}

func hasBranch(questions []*models.DebriefingQuestion) bool {
	for _, q := range questions {
		if q.Prompt == stageBranchQuestion {
			return true
		}
	}
	return false
}

// affirmative is a coarse check for yes-like answers.
func affirmative(answer string) bool {
	lower := " " + strings.ToLower(strings.TrimSpace(answer)) + " "
	for _, word := range []string{" yes ", " yeah ", " yep ", " moved ", " changed ", " advanced "} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// completeSession marks the session done, runs insight extraction, persists
// the insights, and seeds the validation session from them.
func (d *DebriefingService) completeSession(ctx context.Context, session *models.DebriefingSession, questions []*models.DebriefingQuestion) error {
	session.Status = models.DebriefingCompleted
	now := d.now()
	session.CompletedAt = &now
	if err := d.debriefings.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to complete debriefing session: %w", err)
	}

	qas := make([]ai.QA, 0, len(questions))
	for _, q := range questions {
		if q.Answer != "" {
			qas = append(qas, ai.QA{Prompt: q.Prompt, Answer: q.Answer})
		}
	}

	extraction, err := d.extractor.ExtractInsights(ctx, qas)
	if err != nil {
		return fmt.Errorf("failed to extract insights: %w", err)
	}

	d.storeInsights(ctx, session.ID, extraction)

	validation := &models.ValidationSession{
		DebriefingSessionID: session.ID,
		Status:              models.ValidationPending,
		ApprovedSummary:     extraction.Summary,
		ApprovedKeyPoints:   extraction.KeyPoints,
		ApprovedActionItems: extraction.ActionItems,
		ApprovedNextSteps:   extraction.NextSteps,
		ApprovedCRMUpdates:  map[string]interface{}{},
	}
	if err := d.validations.Create(ctx, validation); err != nil {
		return fmt.Errorf("failed to create validation session: %w", err)
	}

	event := map[string]interface{}{
		"debriefing_session_id": session.ID.String(),
		"validation_session_id": validation.ID.String(),
		"meeting_id":            session.MeetingID.String(),
	}
	if err := d.publisher.Publish(ctx, events.SubjectDebriefingCompleted, event); err != nil {
		d.logger.WarnContext(ctx, "failed to publish debriefing completed event", "error", err)
	}

	return nil
}

func (d *DebriefingService) storeInsights(ctx context.Context, sessionID uuid.UUID, extraction *ai.Extraction) {
	store := func(category models.InsightCategory, content string) {
		if content == "" {
			return
		}
		insight := &models.DebriefingInsight{
			SessionID:  sessionID,
			Category:   category,
			Content:    content,
			Confidence: extraction.Confidence,
		}
		if err := d.debriefings.CreateInsight(ctx, insight); err != nil {
			d.logger.WarnContext(ctx, "failed to store insight", "category", category, "error", err)
		}
	}

	store(models.InsightSummary, extraction.Summary)
	for _, kp := range extraction.KeyPoints {
		store(models.InsightKeyPoint, kp)
	}
	for _, item := range extraction.ActionItems {
		store(models.InsightActionItem, item)
	}
	for _, step := range extraction.NextSteps {
		store(models.InsightNextStep, step)
	}
	store(models.InsightSentiment, extraction.Sentiment)
}

// ExpireOverdue marks sessions past their expiry as expired. Returns how many
// were expired.
func (d *DebriefingService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := d.debriefings.ListOverdue(ctx, d.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue sessions: %w", err)
	}

	expired := 0
	for _, session := range overdue {
		session.Status = models.DebriefingExpired
		if err := d.debriefings.UpdateSession(ctx, session); err != nil {
			d.logger.WarnContext(ctx, "failed to expire session", "session_id", session.ID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (d *DebriefingService) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.DebriefingSession, error) {
	return d.debriefings.GetSession(ctx, sessionID)
}

func (d *DebriefingService) ListInsights(ctx context.Context, sessionID uuid.UUID) ([]*models.DebriefingInsight, error) {
	return d.debriefings.ListInsights(ctx, sessionID)
}
