package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/messagely/apiserver/internal/events"
	"github.com/messagely/apiserver/internal/services"
	"github.com/messagely/apiserver/internal/store"
	"github.com/messagely/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User)}
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return types.User{}, store.ErrConflict
	}
	now := time.Now()
	user.JoinedAt = now
	user.LastLoginAt = now
	r.users[user.Username] = user
	return user, nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.LastLoginAt = time.Now()
	r.users[username] = user
	return nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]types.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profiles := make([]types.UserProfile, 0, len(r.users))
	for _, user := range r.users {
		profiles = append(profiles, user.Profile())
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Username < profiles[j].Username })
	return profiles, nil
}

// fakeMessageRepo is an in-memory services.MessageRepository. It mirrors
// the store's behavior: a missing recipient fails the insert, mark-read
// transitions read_at at most once.
type fakeMessageRepo struct {
	mu       sync.Mutex
	users    *fakeUserRepo
	messages map[int64]types.Message
	nextID   int64
	clock    time.Time
}

func newFakeMessageRepo(users *fakeUserRepo) *fakeMessageRepo {
	return &fakeMessageRepo{
		users:    users,
		messages: make(map[int64]types.Message),
		clock:    time.Now(),
	}
}

func (r *fakeMessageRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Millisecond)
	return r.clock
}

func (r *fakeMessageRepo) Create(_ context.Context, message types.Message) (types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users.mu.Lock()
	_, ok := r.users.users[message.ToUsername]
	r.users.mu.Unlock()
	if !ok {
		return types.Message{}, store.ErrNotFound
	}
	r.nextID++
	message.ID = r.nextID
	message.SentAt = r.tick()
	message.ReadAt = nil
	r.messages[message.ID] = message
	return message, nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id int64) (types.MessageDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[id]
	if !ok {
		return types.MessageDetail{}, store.ErrNotFound
	}
	return r.detail(message, true, true), nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, id int64) (types.ReadReceipt, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[id]
	if !ok {
		return types.ReadReceipt{}, false, store.ErrNotFound
	}
	if message.ReadAt != nil {
		return types.ReadReceipt{ID: id, ReadAt: *message.ReadAt}, false, nil
	}
	readAt := r.tick()
	message.ReadAt = &readAt
	r.messages[id] = message
	return types.ReadReceipt{ID: id, ReadAt: readAt}, true, nil
}

func (r *fakeMessageRepo) ListFrom(_ context.Context, username string) ([]types.MessageDetail, error) {
	return r.list(func(m types.Message) bool { return m.FromUsername == username }, false, true), nil
}

func (r *fakeMessageRepo) ListTo(_ context.Context, username string) ([]types.MessageDetail, error) {
	return r.list(func(m types.Message) bool { return m.ToUsername == username }, true, false), nil
}

func (r *fakeMessageRepo) list(match func(types.Message) bool, withFrom, withTo bool) []types.MessageDetail {
	r.mu.Lock()
	defer r.mu.Unlock()
	details := make([]types.MessageDetail, 0)
	for _, message := range r.messages {
		if match(message) {
			details = append(details, r.detail(message, withFrom, withTo))
		}
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].SentAt.Equal(details[j].SentAt) {
			return details[i].ID < details[j].ID
		}
		return details[i].SentAt.Before(details[j].SentAt)
	})
	return details
}

func (r *fakeMessageRepo) detail(message types.Message, withFrom, withTo bool) types.MessageDetail {
	detail := types.MessageDetail{
		ID:     message.ID,
		Body:   message.Body,
		SentAt: message.SentAt,
		ReadAt: message.ReadAt,
	}
	r.users.mu.Lock()
	defer r.users.mu.Unlock()
	if withFrom {
		if user, ok := r.users.users[message.FromUsername]; ok {
			profile := user.Profile()
			detail.FromUser = &profile
		}
	}
	if withTo {
		if user, ok := r.users.users[message.ToUsername]; ok {
			profile := user.Profile()
			detail.ToUser = &profile
		}
	}
	return detail
}

// newTestServer wires the real handlers, services, and middleware over
// in-memory repositories, matching the production router layout.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	userRepo := newFakeUserRepo()
	messageRepo := newFakeMessageRepo(userRepo)
	userService := services.NewUserService(userRepo, bcrypt.MinCost)
	messageService := services.NewMessageService(messageRepo, userRepo, events.NopPublisher{})

	authMiddleware := RequireAuth(testJWTSecret)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	AuthRouter(router, userService, testJWTSecret)
	router.Route("/users", func(r chi.Router) {
		r.Use(authMiddleware)
		UserRouter(r, userService, messageService)
	})
	router.Route("/messages", func(r chi.Router) {
		r.Use(authMiddleware)
		MessageRouter(r, messageService)
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, payload, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, baseURL, username, password string) string {
	t.Helper()

	payload := map[string]string{
		"username":   username,
		"password":   password,
		"first_name": username,
		"last_name":  "Test",
		"phone":      fmt.Sprintf("+1555%07d", len(username)),
	}
	var parsed TokenResponse
	status := doJSON(t, http.MethodPost, baseURL+"/register", "", payload, &parsed)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status = %d", username, status)
	}
	if parsed.Token == "" {
		t.Fatalf("register %s: missing token", username)
	}
	return parsed.Token
}

func sendMessage(t *testing.T, baseURL, token, to, body string) types.Message {
	t.Helper()

	var parsed MessageResponse
	status := doJSON(t, http.MethodPost, baseURL+"/messages", token, map[string]string{
		"to_username": to,
		"body":        body,
	}, &parsed)
	if status != http.StatusCreated {
		t.Fatalf("send message to %s: status = %d", to, status)
	}
	return parsed.Message
}
