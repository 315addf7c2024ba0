package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/realtime"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// CallRequestService handles call-back requests from visitors.
type CallRequestService struct {
	requests store.CallRequestStore
	events   eventPublisher
	logger   *logger.Logger
}

// NewCallRequestService creates a new call request service.
func NewCallRequestService(requests store.CallRequestStore, feed realtime.Feed, log *logger.Logger) *CallRequestService {
	log = log.Named("call_requests")
	return &CallRequestService{
		requests: requests,
		events:   eventPublisher{feed: feed, logger: log},
		logger:   log,
	}
}

// List returns a page of call requests.
func (s *CallRequestService) List(ctx context.Context, filter model.CallRequestFilter) (*model.ListResponse[model.CallRequest], error) {
	switch filter.Status {
	case "", model.CallRequestPending, model.CallRequestInProgress, model.CallRequestResolved:
	default:
		return nil, invalid("status", "unknown status")
	}
	filter.Page = filter.Page.Normalize()

	items, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing call requests: %w", err)
	}
	return model.NewListResponse(items, total, filter.Page), nil
}

// Get returns one call request.
func (s *CallRequestService) Get(ctx context.Context, id string) (*model.CallRequest, error) {
	req, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading call request", err)
	}
	return req, nil
}

// Assign takes the request on behalf of the caller.
func (s *CallRequestService) Assign(ctx context.Context, session *model.Session, id string) (*model.CallRequest, error) {
	current, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading call request", err)
	}
	if current.Status == model.CallRequestResolved {
		return nil, fmt.Errorf("%w: call request already resolved", ErrInvalidTransition)
	}

	req, err := s.requests.Assign(ctx, id, session.StaffID)
	if err != nil {
		return nil, storeErr("assigning call request", err)
	}

	s.logger.Info("call request assigned", zap.String("call_request_id", id), zap.String("staff_id", session.StaffID))
	s.events.publish(ctx, model.TableCallRequests, model.ChangeUpdate, req)
	return req, nil
}

// Resolve closes the request with the caller's notes.
func (s *CallRequestService) Resolve(ctx context.Context, session *model.Session, id, notes string) (*model.CallRequest, error) {
	req, err := s.requests.Resolve(ctx, id, strings.TrimSpace(notes))
	if err != nil {
		return nil, storeErr("resolving call request", err)
	}

	s.logger.Info("call request resolved", zap.String("call_request_id", id), zap.String("staff_id", session.StaffID))
	s.events.publish(ctx, model.TableCallRequests, model.ChangeUpdate, req)
	return req, nil
}
