package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/notify"
	"github.com/heritage-trails/admin-api/internal/service"
	"github.com/heritage-trails/admin-api/internal/store"
)

type mockConversationStore struct {
	listActiveFn           func(ctx context.Context) ([]model.Conversation, error)
	getFn                  func(ctx context.Context, id string) (*model.Conversation, error)
	assignFn               func(ctx context.Context, id, staffID string) (*model.Conversation, error)
	closeFn                func(ctx context.Context, id string) (*model.Conversation, error)
	recordStaffMessageFn   func(ctx context.Context, id, text string, at time.Time) (*model.Conversation, error)
	decrementStaffUnreadFn func(ctx context.Context, id string, n int64) (*model.Conversation, error)
}

func (m *mockConversationStore) ListActive(ctx context.Context) ([]model.Conversation, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return []model.Conversation{}, nil
}

func (m *mockConversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) Assign(ctx context.Context, id, staffID string) (*model.Conversation, error) {
	if m.assignFn != nil {
		return m.assignFn(ctx, id, staffID)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) Close(ctx context.Context, id string) (*model.Conversation, error) {
	if m.closeFn != nil {
		return m.closeFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) RecordStaffMessage(ctx context.Context, id, text string, at time.Time) (*model.Conversation, error) {
	if m.recordStaffMessageFn != nil {
		return m.recordStaffMessageFn(ctx, id, text, at)
	}
	return &model.Conversation{ID: id}, nil
}

func (m *mockConversationStore) DecrementStaffUnread(ctx context.Context, id string, n int64) (*model.Conversation, error) {
	if m.decrementStaffUnreadFn != nil {
		return m.decrementStaffUnreadFn(ctx, id, n)
	}
	return &model.Conversation{ID: id}, nil
}

type mockMessageStore struct {
	listRecentFn      func(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	insertFn          func(ctx context.Context, msg *model.Message) error
	markReadFromFn    func(ctx context.Context, conversationID string, role model.SenderRole) (int64, error)
	countUnreadFromFn func(ctx context.Context, conversationID string, role model.SenderRole) (int64, error)
	insertCalls       int
}

func (m *mockMessageStore) ListRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, conversationID, limit)
	}
	return nil, nil
}

func (m *mockMessageStore) Insert(ctx context.Context, msg *model.Message) error {
	m.insertCalls++
	if m.insertFn != nil {
		return m.insertFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageStore) MarkReadFrom(ctx context.Context, conversationID string, role model.SenderRole) (int64, error) {
	if m.markReadFromFn != nil {
		return m.markReadFromFn(ctx, conversationID, role)
	}
	return 0, nil
}

func (m *mockMessageStore) CountUnreadFrom(ctx context.Context, conversationID string, role model.SenderRole) (int64, error) {
	if m.countUnreadFromFn != nil {
		return m.countUnreadFromFn(ctx, conversationID, role)
	}
	return 0, nil
}

type mockUserStore struct {
	listFn            func(ctx context.Context, filter model.UserFilter) ([]model.User, int, error)
	getFn             func(ctx context.Context, id string) (*model.User, error)
	getByEmailFn      func(ctx context.Context, email string) (*model.User, error)
	createFn          func(ctx context.Context, user *model.User) error
	updateFn          func(ctx context.Context, user *model.User) error
	setPasswordHashFn func(ctx context.Context, id, hash string) error
	audienceFn        func(ctx context.Context, audience model.Audience, language string) ([]model.User, error)
}

func (m *mockUserStore) List(ctx context.Context, filter model.UserFilter) ([]model.User, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []model.User{}, 0, nil
}

func (m *mockUserStore) Get(ctx context.Context, id string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, store.ErrNotFound
}

func (m *mockUserStore) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserStore) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserStore) SetPasswordHash(ctx context.Context, id, hash string) error {
	if m.setPasswordHashFn != nil {
		return m.setPasswordHashFn(ctx, id, hash)
	}
	return nil
}

func (m *mockUserStore) Audience(ctx context.Context, audience model.Audience, language string) ([]model.User, error) {
	if m.audienceFn != nil {
		return m.audienceFn(ctx, audience, language)
	}
	return []model.User{}, nil
}

type mockBookingStore struct {
	listFn         func(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error)
	getFn          func(ctx context.Context, id string) (*model.Booking, error)
	updateStatusFn func(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, staffID string, reason *string) (*model.Booking, error)
	inRangeFn      func(ctx context.Context, r model.DateRange) ([]model.Booking, error)
	updateCalls    int
}

func (m *mockBookingStore) List(ctx context.Context, filter model.BookingFilter) ([]model.Booking, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []model.Booking{}, 0, nil
}

func (m *mockBookingStore) Get(ctx context.Context, id string) (*model.Booking, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockBookingStore) UpdateStatus(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, staffID string, reason *string) (*model.Booking, error) {
	m.updateCalls++
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, from, to, staffID, reason)
	}
	return nil, store.ErrNotFound
}

func (m *mockBookingStore) InRange(ctx context.Context, r model.DateRange) ([]model.Booking, error) {
	if m.inRangeFn != nil {
		return m.inRangeFn(ctx, r)
	}
	return []model.Booking{}, nil
}

type mockFeedbackStore struct {
	replyFn   func(ctx context.Context, id, staffID, reply string) (*model.Feedback, error)
	inRangeFn func(ctx context.Context, r model.DateRange) ([]model.Feedback, error)
}

func (m *mockFeedbackStore) List(context.Context, model.FeedbackFilter) ([]model.Feedback, int, error) {
	return []model.Feedback{}, 0, nil
}

func (m *mockFeedbackStore) Get(context.Context, string) (*model.Feedback, error) {
	return nil, store.ErrNotFound
}

func (m *mockFeedbackStore) Reply(ctx context.Context, id, staffID, reply string) (*model.Feedback, error) {
	if m.replyFn != nil {
		return m.replyFn(ctx, id, staffID, reply)
	}
	return nil, store.ErrNotFound
}

func (m *mockFeedbackStore) SetStatus(_ context.Context, id string, status model.FeedbackStatus) (*model.Feedback, error) {
	return &model.Feedback{ID: id, Status: status}, nil
}

func (m *mockFeedbackStore) InRange(ctx context.Context, r model.DateRange) ([]model.Feedback, error) {
	if m.inRangeFn != nil {
		return m.inRangeFn(ctx, r)
	}
	return []model.Feedback{}, nil
}

type mockCampaignStore struct {
	getFn         func(ctx context.Context, id string) (*model.Campaign, error)
	markSendingFn func(ctx context.Context, id string) (*model.Campaign, error)
	markSentFn    func(ctx context.Context, id string, sent, failed int) (*model.Campaign, error)
	releaseFn     func(ctx context.Context, id string, status model.CampaignStatus) error
	allFn         func(ctx context.Context) ([]model.Campaign, error)
}

func (m *mockCampaignStore) List(context.Context, model.Page) ([]model.Campaign, int, error) {
	return []model.Campaign{}, 0, nil
}

func (m *mockCampaignStore) Get(ctx context.Context, id string) (*model.Campaign, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockCampaignStore) Create(context.Context, *model.Campaign) error { return nil }
func (m *mockCampaignStore) Update(context.Context, *model.Campaign) error { return nil }
func (m *mockCampaignStore) Delete(context.Context, string) error          { return nil }

func (m *mockCampaignStore) MarkSending(ctx context.Context, id string) (*model.Campaign, error) {
	if m.markSendingFn != nil {
		return m.markSendingFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockCampaignStore) ReleaseSending(ctx context.Context, id string, status model.CampaignStatus) error {
	if m.releaseFn != nil {
		return m.releaseFn(ctx, id, status)
	}
	return nil
}

func (m *mockCampaignStore) MarkSent(ctx context.Context, id string, sent, failed int) (*model.Campaign, error) {
	if m.markSentFn != nil {
		return m.markSentFn(ctx, id, sent, failed)
	}
	return &model.Campaign{ID: id, Status: model.CampaignSent, SentCount: sent, FailedCount: failed}, nil
}

func (m *mockCampaignStore) All(ctx context.Context) ([]model.Campaign, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return []model.Campaign{}, nil
}

type mockMasterDataStore struct {
	getFn               func(ctx context.Context, id string) (*model.MasterData, error)
	upsertTranslationFn func(ctx context.Context, t *model.Translation) error
}

func (m *mockMasterDataStore) List(context.Context, string, bool) ([]model.MasterData, error) {
	return []model.MasterData{}, nil
}

func (m *mockMasterDataStore) Get(ctx context.Context, id string) (*model.MasterData, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockMasterDataStore) Create(context.Context, *model.MasterData) error { return nil }
func (m *mockMasterDataStore) Update(context.Context, *model.MasterData) error { return nil }
func (m *mockMasterDataStore) Deactivate(context.Context, string) error        { return nil }

func (m *mockMasterDataStore) Translations(context.Context, []string) ([]model.Translation, error) {
	return []model.Translation{}, nil
}

func (m *mockMasterDataStore) UpsertTranslation(ctx context.Context, t *model.Translation) error {
	if m.upsertTranslationFn != nil {
		return m.upsertTranslationFn(ctx, t)
	}
	return nil
}

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	revoked  []string
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionStore) Create(_ context.Context, session *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (m *mockSessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionStore) DeleteForStaff(_ context.Context, staffID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked = append(m.revoked, staffID)
	for id, s := range m.sessions {
		if s.StaffID == staffID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *mockSessionStore) DeleteOthersForStaff(_ context.Context, staffID, keepID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.StaffID == staffID && id != keepID {
			delete(m.sessions, id)
		}
	}
	return nil
}

type mockStoreProvider struct {
	conversations store.ConversationStore
	messages      store.MessageStore
	users         store.UserStore
}

func (m *mockStoreProvider) Conversations() store.ConversationStore { return m.conversations }
func (m *mockStoreProvider) Messages() store.MessageStore           { return m.messages }
func (m *mockStoreProvider) Users() store.UserStore                 { return m.users }
func (m *mockStoreProvider) Bookings() store.BookingStore           { return nil }
func (m *mockStoreProvider) Feedback() store.FeedbackStore          { return nil }
func (m *mockStoreProvider) Campaigns() store.CampaignStore         { return nil }
func (m *mockStoreProvider) CallRequests() store.CallRequestStore   { return nil }
func (m *mockStoreProvider) MasterData() store.MasterDataStore      { return nil }

type mockTxRunner struct {
	withTxFn func(ctx context.Context, fn func(stores service.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return fn(&mockStoreProvider{})
}

type mockSender struct {
	mu     sync.Mutex
	pushes []notify.PushMessage
	emails []notify.EmailMessage
	result notify.Result
}

func newMockSender(success bool) *mockSender {
	res := notify.Result{Success: success, MessageID: "msg-1"}
	if !success {
		res = notify.Result{Error: "delivery failed"}
	}
	return &mockSender{result: res}
}

func (m *mockSender) SendEmail(_ context.Context, msg notify.EmailMessage) notify.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, msg)
	return m.result
}

func (m *mockSender) SendPush(_ context.Context, msg notify.PushMessage) notify.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes = append(m.pushes, msg)
	return m.result
}

func (m *mockSender) pushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pushes)
}

type mockCallRequestStore struct {
	getFn     func(ctx context.Context, id string) (*model.CallRequest, error)
	assignFn  func(ctx context.Context, id, staffID string) (*model.CallRequest, error)
	resolveFn func(ctx context.Context, id, notes string) (*model.CallRequest, error)
	lastList  model.CallRequestFilter
}

func (m *mockCallRequestStore) List(_ context.Context, filter model.CallRequestFilter) ([]model.CallRequest, int, error) {
	m.lastList = filter
	return []model.CallRequest{}, 0, nil
}

func (m *mockCallRequestStore) Get(ctx context.Context, id string) (*model.CallRequest, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockCallRequestStore) Assign(ctx context.Context, id, staffID string) (*model.CallRequest, error) {
	if m.assignFn != nil {
		return m.assignFn(ctx, id, staffID)
	}
	return nil, store.ErrNotFound
}

func (m *mockCallRequestStore) Resolve(ctx context.Context, id, notes string) (*model.CallRequest, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, id, notes)
	}
	return nil, store.ErrNotFound
}
