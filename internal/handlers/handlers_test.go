package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sierra/internal/api"
	"sierra/internal/database"
	"sierra/internal/engine"
	"sierra/internal/middleware"
	"sierra/internal/models"
	"sierra/internal/utils"
	"sierra/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *mux.Router) {
	t.Helper()

	log := zap.NewNop().Sugar()
	store := database.NewMemoryStore()
	hub := websocket.NewHub(log)
	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, store, hub, nil, metrics, log, 5*time.Second)

	server := NewServer(system, eng, hub, middleware.NewAuth("test-secret"), nil, metrics, log)
	return server, server.Routes()
}

func doJSON(t *testing.T, router *mux.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, router *mux.Router, username, phone string) api.AuthResponse {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"username": username,
		"phone":    phone,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp api.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.UserID)
	return resp
}

func TestMessagingFlow(t *testing.T) {
	_, router := newTestServer(t)

	alice := registerUser(t, router, "alice", "+15550000001")
	bob := registerUser(t, router, "bob", "+15550000002")

	// Alice sends Bob a message.
	w := doJSON(t, router, http.MethodPost, "/messages", alice.Token, map[string]string{
		"receiverId": bob.UserID,
		"body":       "hello bob",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var message models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &message))
	assert.Equal(t, "hello bob", message.Body)
	assert.False(t, message.IsRead)

	// Both sides see the same history.
	w = doJSON(t, router, http.MethodGet, "/messages/"+bob.UserID, alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)

	// Bob's inbox shows one conversation with one unread.
	w = doJSON(t, router, http.MethodGet, "/conversations", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inbox []models.ConversationSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inbox))
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(1), inbox[0].UnreadCount)
	assert.Equal(t, "hello bob", inbox[0].Message.Body)

	// Bob acknowledges the conversation.
	w = doJSON(t, router, http.MethodPost, "/messages/read", bob.Token, map[string]string{
		"fromUserId": alice.UserID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var marked map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &marked))
	assert.Equal(t, int64(1), marked["updated"])

	// Unread count drops to zero.
	w = doJSON(t, router, http.MethodGet, "/conversations", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inbox))
	require.Len(t, inbox, 1)
	assert.Equal(t, int64(0), inbox[0].UnreadCount)

	// Alice deletes the conversation for both sides.
	w = doJSON(t, router, http.MethodDelete, "/messages/"+bob.UserID, alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/messages/"+alice.UserID, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history = nil
	json.Unmarshal(w.Body.Bytes(), &history)
	assert.Empty(t, history)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	_, router := newTestServer(t)
	registerUser(t, router, "alice", "+15550000001")

	w := doJSON(t, router, http.MethodPost, "/register", "", map[string]string{
		"username": "alice",
		"phone":    "+15550000009",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginFailsWithOpaqueError(t *testing.T) {
	_, router := newTestServer(t)
	registerUser(t, router, "alice", "+15550000001")

	for _, body := range []map[string]string{
		{"username": "alice", "password": "wrongpassword"},
		{"username": "nosuchuser", "password": "password123"},
	} {
		w := doJSON(t, router, http.MethodPost, "/login", "", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		var resp api.AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "Invalid username or password.", resp.Error)
	}
}

func TestLoginReturnsWorkingToken(t *testing.T) {
	_, router := newTestServer(t)
	alice := registerUser(t, router, "alice", "+15550000001")

	w := doJSON(t, router, http.MethodPost, "/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	assert.Equal(t, alice.UserID, resp.UserID)

	w = doJSON(t, router, http.MethodGet, "/users/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, models.DefaultBio, profile.Bio)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, router := newTestServer(t)

	for _, path := range []string{"/conversations", "/users/me", "/users/search?q=a"} {
		w := doJSON(t, router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestSendMessageValidation(t *testing.T) {
	_, router := newTestServer(t)
	alice := registerUser(t, router, "alice", "+15550000001")

	// Sending to yourself is rejected.
	w := doJSON(t, router, http.MethodPost, "/messages", alice.Token, map[string]string{
		"receiverId": alice.UserID,
		"body":       "note to self",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown receiver.
	w = doJSON(t, router, http.MethodPost, "/messages", alice.Token, map[string]string{
		"receiverId": "00000000-0000-0000-0000-000000000099",
		"body":       "anyone?",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Malformed receiver ID.
	w = doJSON(t, router, http.MethodPost, "/messages", alice.Token, map[string]string{
		"receiverId": "not-a-uuid",
		"body":       "hi",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchAndContacts(t *testing.T) {
	_, router := newTestServer(t)
	alice := registerUser(t, router, "alice", "+15550000001")
	registerUser(t, router, "bob", "+15550000002")
	registerUser(t, router, "bonnie", "+15550000003")

	w := doJSON(t, router, http.MethodGet, "/users/search?q=bo", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	assert.Len(t, found, 2)

	w = doJSON(t, router, http.MethodPost, "/users/contacts/match", alice.Token, map[string]any{
		"phones": []string{"+15550000002", "+15559999999"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var matched []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matched))
	require.Len(t, matched, 1)
	assert.Equal(t, "bob", matched[0].Username)
}

func TestDeleteAccountRemovesEverything(t *testing.T) {
	_, router := newTestServer(t)
	alice := registerUser(t, router, "alice", "+15550000001")
	bob := registerUser(t, router, "bob", "+15550000002")

	w := doJSON(t, router, http.MethodPost, "/messages", alice.Token, map[string]string{
		"receiverId": bob.UserID,
		"body":       "goodbye",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/users/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp["messagesDeleted"])

	// Alice's token still parses but her account is gone.
	w = doJSON(t, router, http.MethodGet, "/users/me", alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMediaUploadWithoutStorageConfigured(t *testing.T) {
	_, router := newTestServer(t)
	alice := registerUser(t, router, "alice", "+15550000001")

	req := httptest.NewRequest(http.MethodPost, "/media", nil)
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	_, router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}
