package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heritage-trails/admin-api/internal/chat"
	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/pkg/logger"
)

// ChatService is the chat surface used by the conversation, stream and
// websocket handlers.
type ChatService interface {
	chat.Backend
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	Assign(ctx context.Context, session *model.Session, conversationID, staffID string) (*model.Conversation, error)
	Close(ctx context.Context, session *model.Session, conversationID string) (*model.Conversation, error)
}

// ConversationHandler handles conversation and message endpoints.
type ConversationHandler struct {
	service ChatService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc ChatService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.service.ListActiveConversations(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ListConversationsResponse{
		Conversations: convs,
		Total:         len(convs),
	})
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, err := h.service.GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Messages handles GET /api/v1/conversations/{id}/messages
func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, err := h.service.RecentMessages(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{Messages: msgs})
}

// Send handles POST /api/v1/conversations/{id}/messages
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.service.Send(r.Context(), session(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, &model.SendMessageResponse{Message: msg})
}

// MarkRead handles POST /api/v1/conversations/{id}/read
func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	n, err := h.service.MarkRead(r.Context(), session(r), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &model.MarkReadResponse{ConversationID: id, Updated: n})
}

// Assign handles POST /api/v1/conversations/{id}/assign
func (h *ConversationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req model.AssignConversationRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.service.Assign(r.Context(), session(r), chi.URLParam(r, "id"), req.StaffID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Close handles POST /api/v1/conversations/{id}/close
func (h *ConversationHandler) Close(w http.ResponseWriter, r *http.Request) {
	conv, err := h.service.Close(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
