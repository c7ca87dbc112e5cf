package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/messagely/apiserver/internal/services"
	"github.com/messagely/apiserver/internal/store"
	"github.com/messagely/apiserver/types"
)

// MessageHandler provides HTTP handlers for messages. All routes sit
// behind the auth middleware; participant checks live in the service.
type MessageHandler struct {
	messageService *services.MessageService
}

// NewMessageHandler constructs a handler with the provided service.
func NewMessageHandler(messageService *services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// MessageRouter registers message routes on the given router.
func MessageRouter(r chi.Router, messageService *services.MessageService) {
	handler := NewMessageHandler(messageService)

	r.Post("/", handler.SendMessage)
	r.Route("/{messageID}", func(r chi.Router) {
		r.Get("/", handler.GetMessage)
		r.Post("/read", handler.MarkRead)
	})
}

// SendMessage creates a message from the token subject to the requested
// recipient.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	subject, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.ToUsername = strings.TrimSpace(req.ToUsername)
	if req.ToUsername == "" || strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	message, err := h.messageService.Send(r.Context(), subject, req.ToUsername, req.Body)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recipient not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: message})
}

// GetMessage returns a single message to one of its participants.
func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	subject, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseMessageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.messageService.Get(r.Context(), id, subject)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "message not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		default:
			writeError(w, http.StatusInternalServerError, "failed to fetch message")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageDetailResponse{Message: message})
}

// MarkRead stamps the read receipt on behalf of the recipient.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	subject, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseMessageID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.messageService.MarkRead(r.Context(), id, subject)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "message not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		default:
			writeError(w, http.StatusInternalServerError, "failed to mark message read")
		}
		return
	}

	writeJSON(w, http.StatusOK, ReadReceiptResponse{Message: receipt})
}

func parseMessageID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "messageID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid message id")
	}
	return id, nil
}

type SendMessageRequest struct {
	ToUsername string `json:"to_username"`
	Body       string `json:"body"`
}

type MessageResponse struct {
	Message types.Message `json:"message"`
}

type MessageDetailResponse struct {
	Message types.MessageDetail `json:"message"`
}

type ReadReceiptResponse struct {
	Message types.ReadReceipt `json:"message"`
}
