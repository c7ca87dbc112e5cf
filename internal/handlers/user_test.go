package handlers

import (
	"net/http"
	"testing"
)

func TestListUsers(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	aliceToken := registerUser(t, ts.URL, "alice", "pw1")
	registerUser(t, ts.URL, "bob", "pw2")

	var parsed UsersResponse
	if status := doJSON(t, http.MethodGet, ts.URL+"/users", aliceToken, nil, &parsed); status != http.StatusOK {
		t.Fatalf("list users status = %d", status)
	}
	if len(parsed.Users) != 2 {
		t.Fatalf("got %d users, want 2", len(parsed.Users))
	}
	if parsed.Users[0].Username != "alice" || parsed.Users[1].Username != "bob" {
		t.Fatalf("unexpected ordering: %+v", parsed.Users)
	}
}

func TestGetUser_SelfOnly(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	aliceToken := registerUser(t, ts.URL, "alice", "pw1")
	registerUser(t, ts.URL, "bob", "pw2")

	var parsed UserResponse
	if status := doJSON(t, http.MethodGet, ts.URL+"/users/alice", aliceToken, nil, &parsed); status != http.StatusOK {
		t.Fatalf("get self status = %d", status)
	}
	if parsed.User.Username != "alice" {
		t.Fatalf("got user %q, want alice", parsed.User.Username)
	}
	if parsed.User.JoinedAt.IsZero() || parsed.User.LastLoginAt.IsZero() {
		t.Fatalf("missing timestamps: %+v", parsed.User)
	}

	if status := doJSON(t, http.MethodGet, ts.URL+"/users/bob", aliceToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("get other status = %d, want %d", status, http.StatusForbidden)
	}
}

func TestUserResponse_NeverExposesPasswordHash(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	aliceToken := registerUser(t, ts.URL, "alice", "pw1")

	var raw map[string]map[string]any
	if status := doJSON(t, http.MethodGet, ts.URL+"/users/alice", aliceToken, nil, &raw); status != http.StatusOK {
		t.Fatalf("get self status = %d", status)
	}
	user, ok := raw["user"]
	if !ok {
		t.Fatalf("response missing user key: %v", raw)
	}
	for _, key := range []string{"password", "password_hash", "PasswordHash"} {
		if _, present := user[key]; present {
			t.Fatalf("response exposes %q: %v", key, user)
		}
	}
}

func TestMessagesFromAndTo(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	aliceToken := registerUser(t, ts.URL, "alice", "pw1")
	bobToken := registerUser(t, ts.URL, "bob", "pw2")
	carolToken := registerUser(t, ts.URL, "carol", "pw3")

	first := sendMessage(t, ts.URL, aliceToken, "bob", "first")
	sendMessage(t, ts.URL, carolToken, "bob", "from carol")
	second := sendMessage(t, ts.URL, aliceToken, "bob", "second")

	// Alice's outbox: her two messages in send order, recipient nested.
	var from MessagesResponse
	if status := doJSON(t, http.MethodGet, ts.URL+"/users/alice/from", aliceToken, nil, &from); status != http.StatusOK {
		t.Fatalf("messages from status = %d", status)
	}
	if len(from.Messages) != 2 {
		t.Fatalf("got %d sent messages, want 2", len(from.Messages))
	}
	if from.Messages[0].ID != first.ID || from.Messages[1].ID != second.ID {
		t.Fatalf("unexpected order: %+v", from.Messages)
	}
	if from.Messages[0].ToUser == nil || from.Messages[0].ToUser.Username != "bob" {
		t.Fatalf("missing to_user profile: %+v", from.Messages[0])
	}
	if from.Messages[0].FromUser != nil {
		t.Fatalf("outbox should not nest the sender: %+v", from.Messages[0])
	}

	// Bob's inbox: all three, sender nested, sent_at ascending.
	var to MessagesResponse
	if status := doJSON(t, http.MethodGet, ts.URL+"/users/bob/to", bobToken, nil, &to); status != http.StatusOK {
		t.Fatalf("messages to status = %d", status)
	}
	if len(to.Messages) != 3 {
		t.Fatalf("got %d received messages, want 3", len(to.Messages))
	}
	for i := 1; i < len(to.Messages); i++ {
		if to.Messages[i].SentAt.Before(to.Messages[i-1].SentAt) {
			t.Fatalf("inbox out of order: %+v", to.Messages)
		}
	}
	if to.Messages[1].FromUser == nil || to.Messages[1].FromUser.Username != "carol" {
		t.Fatalf("missing from_user profile: %+v", to.Messages[1])
	}

	// Listings are private to their owner.
	if status := doJSON(t, http.MethodGet, ts.URL+"/users/bob/to", aliceToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("foreign inbox status = %d, want %d", status, http.StatusForbidden)
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/users/alice/from", bobToken, nil, nil); status != http.StatusForbidden {
		t.Fatalf("foreign outbox status = %d, want %d", status, http.StatusForbidden)
	}
}
