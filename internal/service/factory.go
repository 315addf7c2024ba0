package service

import (
	"time"

	"github.com/heritage-trails/admin-api/internal/notify"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// ServicesConfig holds the shared dependencies of all services.
type ServicesConfig struct {
	Stores          *store.Stores
	TxRunner        TxRunner
	Sessions        store.SessionStore
	Feed            realtime.Feed
	Sender          notify.Sender
	Translator      Translator
	JWTSecret       string
	SessionLifetime time.Duration
	ThreadLimit     int
	Logger          *logger.Logger
}

// Services wires every service once. Services that keep state between
// calls (the translation coalescer) must not be rebuilt per request.
type Services struct {
	auth         *AuthService
	users        *UserService
	bookings     *BookingService
	chat         *ChatService
	feedback     *FeedbackService
	marketing    *MarketingService
	reports      *ReportService
	callRequests *CallRequestService
	masterData   *MasterDataService
}

func NewServices(cfg ServicesConfig) *Services {
	st := cfg.Stores
	log := cfg.Logger

	return &Services{
		auth:     NewAuthService(st.Users(), cfg.Sessions, cfg.JWTSecret, cfg.SessionLifetime, log),
		users:    NewUserService(st.Users(), cfg.Sessions, log),
		bookings: NewBookingService(st.Bookings(), st.Users(), cfg.Sender, cfg.Feed, log),
		chat: NewChatService(ChatServiceConfig{
			Conversations: st.Conversations(),
			Messages:      st.Messages(),
			Users:         st.Users(),
			TxRunner:      cfg.TxRunner,
			Sender:        cfg.Sender,
			Feed:          cfg.Feed,
			ThreadLimit:   cfg.ThreadLimit,
		}, log),
		feedback:     NewFeedbackService(st.Feedback(), st.Users(), cfg.Sender, cfg.Feed, log),
		marketing:    NewMarketingService(st.Campaigns(), st.Users(), cfg.Sender, log),
		reports:      NewReportService(st.Bookings(), st.Feedback(), st.Campaigns(), log),
		callRequests: NewCallRequestService(st.CallRequests(), cfg.Feed, log),
		masterData:   NewMasterDataService(st.MasterData(), cfg.Translator, log),
	}
}

func (s *Services) Auth() *AuthService                { return s.auth }
func (s *Services) Users() *UserService               { return s.users }
func (s *Services) Bookings() *BookingService         { return s.bookings }
func (s *Services) Chat() *ChatService                { return s.chat }
func (s *Services) Feedback() *FeedbackService        { return s.feedback }
func (s *Services) Marketing() *MarketingService      { return s.marketing }
func (s *Services) Reports() *ReportService           { return s.reports }
func (s *Services) CallRequests() *CallRequestService { return s.callRequests }
func (s *Services) MasterData() *MasterDataService    { return s.masterData }
