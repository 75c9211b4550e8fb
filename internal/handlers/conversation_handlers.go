package handlers

import (
	"net/http"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/services"
	"docuchat-backend/pkg/httputil"
)

const conversationNotFound = "Conversation not found"

// ConversationHandlers handles HTTP requests related to conversations.
type ConversationHandlers struct {
	conversations *services.ConversationService
}

func NewConversationHandlers(conversations *services.ConversationService) *ConversationHandlers {
	return &ConversationHandlers{conversations: conversations}
}

// HandleCreate handles POST /api/conversations.
func (h *ConversationHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateConversationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conv, err := h.conversations.Create(r.Context(), user.ID, req.Title)
	if err != nil {
		respondServiceError(w, r, conversationNotFound, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.NewConversationResponse(conv))
}

// HandleList handles GET /api/conversations.
func (h *ConversationHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	convs, err := h.conversations.List(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, conversationNotFound, err)
		return
	}
	resp := make([]models.ConversationResponse, 0, len(convs))
	for i := range convs {
		resp = append(resp, models.NewConversationResponse(&convs[i]))
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /api/conversations/{id}.
func (h *ConversationHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", conversationNotFound)
	if !ok {
		return
	}
	conv, err := h.conversations.Get(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, r, conversationNotFound, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.NewConversationResponse(conv))
}

// HandleMessages handles GET /api/conversations/{id}/messages.
func (h *ConversationHandlers) HandleMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", conversationNotFound)
	if !ok {
		return
	}
	msgs, err := h.conversations.Messages(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, r, conversationNotFound, err)
		return
	}
	resp := make([]models.MessageResponse, 0, len(msgs))
	for i := range msgs {
		resp = append(resp, models.NewMessageResponse(&msgs[i]))
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /api/conversations/{id}.
func (h *ConversationHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", conversationNotFound)
	if !ok {
		return
	}
	if err := h.conversations.Delete(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, r, conversationNotFound, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.StatusResponse{Message: "Conversation deleted successfully"})
}
