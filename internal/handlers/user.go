package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/messagely/apiserver/internal/services"
	"github.com/messagely/apiserver/internal/store"
	"github.com/messagely/apiserver/types"
)

// UserHandler provides HTTP handlers for user profiles and their
// message listings. All routes sit behind the auth middleware.
type UserHandler struct {
	userService    *services.UserService
	messageService *services.MessageService
}

// NewUserHandler constructs a handler with the provided services.
func NewUserHandler(userService *services.UserService, messageService *services.MessageService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		messageService: messageService,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, messageService *services.MessageService) {
	handler := NewUserHandler(userService, messageService)

	r.Get("/", handler.ListUsers)
	r.Route("/{username}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Get("/to", handler.MessagesTo)
		r.Get("/from", handler.MessagesFrom)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, UsersResponse{Users: users})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !h.requireSameUser(w, r, username) {
		return
	}

	user, err := h.userService.Get(r.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

func (h *UserHandler) MessagesTo(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !h.requireSameUser(w, r, username) {
		return
	}

	messages, err := h.messageService.ReceivedBy(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}

func (h *UserHandler) MessagesFrom(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if !h.requireSameUser(w, r, username) {
		return
	}

	messages, err := h.messageService.SentBy(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Messages: messages})
}

// requireSameUser rejects requests whose token subject does not match the
// username that owns the route. Profile and listing routes are private to
// their owner.
func (h *UserHandler) requireSameUser(w http.ResponseWriter, r *http.Request, username string) bool {
	subject, err := usernameFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if subject != username {
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

type UserResponse struct {
	User types.User `json:"user"`
}

type UsersResponse struct {
	Users []types.UserProfile `json:"users"`
}

type MessagesResponse struct {
	Messages []types.MessageDetail `json:"messages"`
}
