package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/crm"
	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
)

// fakeCRMClient scripts the remote CRM for orchestrator tests.
type fakeCRMClient struct {
	system       crm.System
	updateErr    error
	taskErr      error
	updateCalls  int
	taskCalls    int
	lastRecordID string
	lastPayload  crm.MeetingPayload
}

func (f *fakeCRMClient) System() crm.System { return f.system }

func (f *fakeCRMClient) UpdateRecord(ctx context.Context, recordID string, p crm.MeetingPayload) (string, error) {
	f.updateCalls++
	f.lastRecordID = recordID
	f.lastPayload = p
	if f.updateErr != nil {
		return "", f.updateErr
	}
	return recordID, nil
}

func (f *fakeCRMClient) CreateTask(ctx context.Context, recordID string, t crm.TaskPayload) (string, error) {
	f.taskCalls++
	if f.taskErr != nil {
		return "", f.taskErr
	}
	return "task-" + recordID, nil
}

func (f *fakeCRMClient) UpdateOpportunityStage(ctx context.Context, recordID, stage string) error {
	return f.updateErr
}

func (f *fakeCRMClient) GetOpportunityDetails(ctx context.Context, recordID string) (map[string]interface{}, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return map[string]interface{}{"Id": recordID}, nil
}

// fakeSyncRecords stores records keyed by (session, system) like the real
// upsert does.
type fakeSyncRecords struct {
	mu      sync.Mutex
	records map[string]*models.SyncRecord
}

func newFakeSyncRecords() *fakeSyncRecords {
	return &fakeSyncRecords{records: make(map[string]*models.SyncRecord)}
}

func recordKey(sessionID uuid.UUID, system string) string {
	return sessionID.String() + "/" + system
}

func (f *fakeSyncRecords) Upsert(ctx context.Context, record *models.SyncRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := recordKey(record.ValidationSessionID, record.CRMSystem)
	if existing, ok := f.records[key]; ok {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		if record.RetryCount < existing.RetryCount {
			record.RetryCount = existing.RetryCount
		}
		if record.RemoteRecordID == "" {
			record.RemoteRecordID = existing.RemoteRecordID
		}
		if record.SyncedAt == nil {
			record.SyncedAt = existing.SyncedAt
		}
	} else {
		record.ID = uuid.New()
		record.CreatedAt = time.Now()
	}
	clone := *record
	f.records[key] = &clone
	return nil
}

func (f *fakeSyncRecords) Seed(ctx context.Context, sessionID uuid.UUID, crmSystem string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := recordKey(sessionID, crmSystem)
	if _, ok := f.records[key]; ok {
		return nil
	}
	f.records[key] = &models.SyncRecord{
		ID:                  uuid.New(),
		ValidationSessionID: sessionID,
		CRMSystem:           crmSystem,
		Status:              models.SyncPending,
		CreatedAt:           time.Now(),
	}
	return nil
}

func (f *fakeSyncRecords) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			clone := *r
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeSyncRecords) GetBySessionAndSystem(ctx context.Context, sessionID uuid.UUID, crmSystem string) (*models.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[recordKey(sessionID, crmSystem)]; ok {
		clone := *r
		return &clone, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeSyncRecords) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SyncRecord
	for _, r := range f.records {
		if r.ValidationSessionID == sessionID {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeSyncRecords) ListByStatus(ctx context.Context, status models.SyncStatus, limit int) ([]*models.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SyncRecord
	for _, r := range f.records {
		if r.Status == status {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeSyncRecords) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id {
			r.Status = status
			r.ErrorMessage = errorMessage
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeValidations struct {
	sessions map[uuid.UUID]*models.ValidationSession
}

func newFakeValidations() *fakeValidations {
	return &fakeValidations{sessions: make(map[uuid.UUID]*models.ValidationSession)}
}

func (f *fakeValidations) Create(ctx context.Context, session *models.ValidationSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeValidations) GetByID(ctx context.Context, id uuid.UUID) (*models.ValidationSession, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeValidations) GetByDebriefingSession(ctx context.Context, debriefingID uuid.UUID) (*models.ValidationSession, error) {
	for _, s := range f.sessions {
		if s.DebriefingSessionID == debriefingID {
			return s, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeValidations) Update(ctx context.Context, session *models.ValidationSession) error {
	if _, ok := f.sessions[session.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.sessions[session.ID] = session
	return nil
}

type fakeDebriefings struct {
	sessions  map[uuid.UUID]*models.DebriefingSession
	questions map[uuid.UUID][]*models.DebriefingQuestion
	insights  map[uuid.UUID][]*models.DebriefingInsight
}

func newFakeDebriefings() *fakeDebriefings {
	return &fakeDebriefings{
		sessions:  make(map[uuid.UUID]*models.DebriefingSession),
		questions: make(map[uuid.UUID][]*models.DebriefingQuestion),
		insights:  make(map[uuid.UUID][]*models.DebriefingInsight),
	}
}

func (f *fakeDebriefings) CreateSession(ctx context.Context, session *models.DebriefingSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeDebriefings) GetSession(ctx context.Context, id uuid.UUID) (*models.DebriefingSession, error) {
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeDebriefings) ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]*models.DebriefingSession, error) {
	var out []*models.DebriefingSession
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeDebriefings) UpdateSession(ctx context.Context, session *models.DebriefingSession) error {
	if _, ok := f.sessions[session.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeDebriefings) ListOverdue(ctx context.Context, now time.Time) ([]*models.DebriefingSession, error) {
	var out []*models.DebriefingSession
	for _, s := range f.sessions {
		if (s.Status == models.DebriefingScheduled || s.Status == models.DebriefingInProgress) && s.ExpiresAt.Before(now) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeDebriefings) CreateQuestion(ctx context.Context, question *models.DebriefingQuestion) error {
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}
	f.questions[question.SessionID] = append(f.questions[question.SessionID], question)
	return nil
}

func (f *fakeDebriefings) ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]*models.DebriefingQuestion, error) {
	return f.questions[sessionID], nil
}

func (f *fakeDebriefings) AnswerQuestion(ctx context.Context, questionID uuid.UUID, answer string, answeredAt time.Time) error {
	for _, qs := range f.questions {
		for _, q := range qs {
			if q.ID == questionID {
				q.Answer = answer
				q.AnsweredAt = &answeredAt
				return nil
			}
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeDebriefings) CreateInsight(ctx context.Context, insight *models.DebriefingInsight) error {
	if insight.ID == uuid.Nil {
		insight.ID = uuid.New()
	}
	f.insights[insight.SessionID] = append(f.insights[insight.SessionID], insight)
	return nil
}

func (f *fakeDebriefings) ListInsights(ctx context.Context, sessionID uuid.UUID) ([]*models.DebriefingInsight, error) {
	return f.insights[sessionID], nil
}

type fakeMeetings struct {
	meetings map[uuid.UUID]*models.Meeting
	pairs    []repositories.ConsolidationPair
}

func newFakeMeetings() *fakeMeetings {
	return &fakeMeetings{meetings: make(map[uuid.UUID]*models.Meeting)}
}

func (f *fakeMeetings) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.ID == uuid.Nil {
		meeting.ID = uuid.New()
	}
	meeting.CreatedAt = time.Now()
	f.meetings[meeting.ID] = meeting
	return nil
}

func (f *fakeMeetings) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	if m, ok := f.meetings[id]; ok {
		return m, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeMeetings) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Meeting, error) {
	var out []*models.Meeting
	for _, m := range f.meetings {
		if m.UserID == userID && m.ConsolidatedInto == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMeetings) Update(ctx context.Context, meeting *models.Meeting) error {
	if _, ok := f.meetings[meeting.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.meetings[meeting.ID] = meeting
	return nil
}

func (f *fakeMeetings) Consolidate(ctx context.Context, meetingID, intoID uuid.UUID) error {
	m, ok := f.meetings[meetingID]
	if !ok || m.ConsolidatedInto != nil {
		return repositories.ErrNotFound
	}
	m.ConsolidatedInto = &intoID
	return nil
}

func (f *fakeMeetings) FindBackToBack(ctx context.Context, gap time.Duration) ([]repositories.ConsolidationPair, error) {
	return f.pairs, nil
}

func (f *fakeMeetings) ListRecurring(ctx context.Context) ([]*models.Meeting, error) {
	var out []*models.Meeting
	for _, m := range f.meetings {
		if m.RecurrenceRule != "" && m.ConsolidatedInto == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMeetings) ExistsAt(ctx context.Context, userID uuid.UUID, title string, at time.Time) (bool, error) {
	for _, m := range f.meetings {
		if m.UserID == userID && m.Title == title && m.ScheduledAt.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMeetings) RecentlyUpdatedIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range f.meetings {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeLeads struct {
	leads map[uuid.UUID]*models.Lead
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{leads: make(map[uuid.UUID]*models.Lead)}
}

func (f *fakeLeads) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	f.leads[lead.ID] = lead
	return nil
}

func (f *fakeLeads) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	if l, ok := f.leads[id]; ok {
		return l, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeLeads) Update(ctx context.Context, lead *models.Lead) error {
	f.leads[lead.ID] = lead
	return nil
}

// fakeCache is an in-memory repositories.Cache without TTL enforcement.
type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

type fakeTracking struct {
	mu  sync.Mutex
	ops map[uuid.UUID][]*models.TrackedOperation
}

func newFakeTracking() *fakeTracking {
	return &fakeTracking{ops: make(map[uuid.UUID][]*models.TrackedOperation)}
}

func (f *fakeTracking) Put(ctx context.Context, op *models.TrackedOperation, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops[op.MeetingID] = append(f.ops[op.MeetingID], op)
	return nil
}

func (f *fakeTracking) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*models.TrackedOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ops[meetingID], nil
}

type capturedEvent struct {
	Subject string
	Payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{Subject: subject, Payload: payload})
	return nil
}

func (f *fakePublisher) Close() {}

func (f *fakePublisher) subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Subject
	}
	return out
}
