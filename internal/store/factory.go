package store

// Stores hands out table stores bound to one DBTX (pool or transaction).
type Stores struct {
	db DBTX
}

func NewStores(db DBTX) *Stores {
	return &Stores{db: db}
}

func (s *Stores) Conversations() ConversationStore {
	return &conversationStore{db: s.db}
}

func (s *Stores) Messages() MessageStore {
	return &messageStore{db: s.db}
}

func (s *Stores) Users() UserStore {
	return &userStore{db: s.db}
}

func (s *Stores) Bookings() BookingStore {
	return &bookingStore{db: s.db}
}

func (s *Stores) Feedback() FeedbackStore {
	return &feedbackStore{db: s.db}
}

func (s *Stores) Campaigns() CampaignStore {
	return &campaignStore{db: s.db}
}

func (s *Stores) CallRequests() CallRequestStore {
	return &callRequestStore{db: s.db}
}

func (s *Stores) MasterData() MasterDataStore {
	return &masterDataStore{db: s.db}
}
