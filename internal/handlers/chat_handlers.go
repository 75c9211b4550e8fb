package handlers

import (
	"net/http"

	"docuchat-backend/internal/models"
	"docuchat-backend/internal/services"
	"docuchat-backend/pkg/httputil"
)

// ChatHandlers handles the question/answer endpoint.
type ChatHandlers struct {
	chatService *services.ChatService
}

func NewChatHandlers(chatService *services.ChatService) *ChatHandlers {
	return &ChatHandlers{chatService: chatService}
}

// HandleChat handles POST /api/chat.
func (h *ChatHandlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.ChatRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.chatService.Chat(r.Context(), user.ID, req)
	if err != nil {
		respondServiceError(w, r, conversationNotFound, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
