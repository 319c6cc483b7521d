package actors

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"sierra/internal/database"
	"sierra/internal/models"
	"sierra/internal/push"
	"sierra/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEmitter records every payload pushed to each user.
type fakeEmitter struct {
	mu       sync.Mutex
	payloads map[uuid.UUID][][]byte
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{payloads: make(map[uuid.UUID][][]byte)}
}

func (e *fakeEmitter) EmitToUser(userID uuid.UUID, payload []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.payloads[userID] = append(e.payloads[userID], payload)
	return 1
}

func (e *fakeEmitter) eventsFor(userID uuid.UUID) []models.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []models.Event
	for _, p := range e.payloads[userID] {
		var ev models.Event
		if err := json.Unmarshal(p, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

// fakeProvider collects dispatched notifications on a channel.
type fakeProvider struct {
	sent chan push.Notification
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sent: make(chan push.Notification, 16)}
}

func (p *fakeProvider) Send(ctx context.Context, n push.Notification) error {
	p.sent <- n
	return nil
}

type deliveryFixture struct {
	system   *actor.ActorSystem
	store    *database.MemoryStore
	emitter  *fakeEmitter
	provider *fakeProvider
	pid      *actor.PID
}

func newDeliveryFixture(t *testing.T) *deliveryFixture {
	t.Helper()

	system := actor.NewActorSystem()
	store := database.NewMemoryStore()
	emitter := newFakeEmitter()
	provider := newFakeProvider()
	log := zap.NewNop().Sugar()
	metrics := utils.NewMetricsCollector()

	notifyPID := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewNotificationActor(provider, metrics, log, time.Second)
	}))
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewDeliveryActor(store, emitter, notifyPID, metrics, log, time.Second)
	}))

	return &deliveryFixture{
		system:   system,
		store:    store,
		emitter:  emitter,
		provider: provider,
		pid:      pid,
	}
}

func (f *deliveryFixture) addUser(t *testing.T, username string, tokens ...string) *models.User {
	t.Helper()
	user := &models.User{
		ID:         uuid.New(),
		Username:   username,
		Phone:      "+1555" + username,
		PushTokens: tokens,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, f.store.SaveUser(context.Background(), user))
	return user
}

func (f *deliveryFixture) request(t *testing.T, msg any) any {
	t.Helper()
	future := f.system.Root.RequestFuture(f.pid, msg, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	return result
}

func TestSendMessageDeliversEverywhere(t *testing.T) {
	f := newDeliveryFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob", "token-1", "token-2")

	result := f.request(t, &SendMessageMsg{
		SenderID:   alice.ID,
		ReceiverID: bob.ID,
		Body:       "hello bob",
	})

	message, ok := result.(*models.Message)
	require.True(t, ok, "expected a persisted message, got %T", result)
	assert.Equal(t, alice.ID, message.SenderID)
	assert.Equal(t, bob.ID, message.ReceiverID)
	assert.Equal(t, "hello bob", message.Body)
	assert.False(t, message.IsRead)

	// Receiver gets new-message with the unread count for this pair.
	events := f.emitter.eventsFor(bob.ID)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventNewMessage, events[0].Event)

	var payload models.NewMessagePayload
	require.NoError(t, json.Unmarshal(events[0].Data, &payload))
	assert.Equal(t, int64(1), payload.UnreadCount)
	assert.Equal(t, "alice", payload.Message.SenderName)

	// Sender gets a message-sent confirmation.
	senderEvents := f.emitter.eventsFor(alice.ID)
	require.Len(t, senderEvents, 1)
	assert.Equal(t, models.EventMessageSent, senderEvents[0].Event)

	// Push dispatch fans out to every registered token.
	tokens := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case n := <-f.provider.sent:
			tokens[n.Token] = true
			assert.Equal(t, "alice", n.Title)
			assert.Equal(t, "hello bob", n.Body)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for push dispatch")
		}
	}
	assert.True(t, tokens["token-1"])
	assert.True(t, tokens["token-2"])
}

func TestSendMessageToSelfRejected(t *testing.T) {
	f := newDeliveryFixture(t)
	alice := f.addUser(t, "alice")

	result := f.request(t, &SendMessageMsg{
		SenderID:   alice.ID,
		ReceiverID: alice.ID,
		Body:       "note to self",
	})

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected an AppError, got %T", result)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestSendMessageUnknownReceiver(t *testing.T) {
	f := newDeliveryFixture(t)
	alice := f.addUser(t, "alice")

	result := f.request(t, &SendMessageMsg{
		SenderID:   alice.ID,
		ReceiverID: uuid.New(),
		Body:       "anyone there?",
	})

	appErr, ok := result.(*utils.AppError)
	require.True(t, ok, "expected an AppError, got %T", result)
	assert.Equal(t, utils.ErrUserNotFound, appErr.Code)
	assert.Empty(t, f.emitter.eventsFor(alice.ID))
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newDeliveryFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	f.request(t, &SendMessageMsg{SenderID: alice.ID, ReceiverID: bob.ID, Body: "one"})
	f.request(t, &SendMessageMsg{SenderID: alice.ID, ReceiverID: bob.ID, Body: "two"})

	first := f.request(t, &MarkReadMsg{FromID: alice.ID, ToID: bob.ID})
	result, ok := first.(*MarkReadResult)
	require.True(t, ok)
	assert.Equal(t, int64(2), result.Updated)

	// A repeat acknowledge finds nothing left to flip.
	second := f.request(t, &MarkReadMsg{FromID: alice.ID, ToID: bob.ID})
	result, ok = second.(*MarkReadResult)
	require.True(t, ok)
	assert.Equal(t, int64(0), result.Updated)

	unread, err := f.store.CountUnread(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestTypingRelaysToReceiverOnly(t *testing.T) {
	f := newDeliveryFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	f.system.Root.Send(f.pid, &TypingMsg{SenderID: alice.ID, ReceiverID: bob.ID})
	f.system.Root.Send(f.pid, &TypingMsg{SenderID: alice.ID, ReceiverID: bob.ID, Stop: true})

	assert.Eventually(t, func() bool {
		return len(f.emitter.eventsFor(bob.ID)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	events := f.emitter.eventsFor(bob.ID)
	assert.Equal(t, models.EventTyping, events[0].Event)
	assert.Equal(t, models.EventStopTyping, events[1].Event)
	assert.Empty(t, f.emitter.eventsFor(alice.ID))
}

func TestDeleteConversationNotifiesBothSides(t *testing.T) {
	f := newDeliveryFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	f.request(t, &SendMessageMsg{SenderID: alice.ID, ReceiverID: bob.ID, Body: "one"})
	f.request(t, &SendMessageMsg{SenderID: bob.ID, ReceiverID: alice.ID, Body: "two"})

	result := f.request(t, &DeleteConversationMsg{UserA: alice.ID, UserB: bob.ID})
	deleted, ok := result.(*DeleteConversationResult)
	require.True(t, ok)
	assert.Equal(t, int64(2), deleted.Deleted)

	history, err := f.store.GetConversation(context.Background(), alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		events := f.emitter.eventsFor(id)
		require.NotEmpty(t, events)
		assert.Equal(t, models.EventDeleteChat, events[len(events)-1].Event)
	}
}

func TestDeleteAccountCascadesMessages(t *testing.T) {
	f := newDeliveryFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")

	f.request(t, &SendMessageMsg{SenderID: alice.ID, ReceiverID: bob.ID, Body: "to bob"})
	f.request(t, &SendMessageMsg{SenderID: carol.ID, ReceiverID: alice.ID, Body: "from carol"})
	f.request(t, &SendMessageMsg{SenderID: bob.ID, ReceiverID: carol.ID, Body: "unrelated"})

	result := f.request(t, &DeleteAccountMsg{UserID: alice.ID})
	deleted, ok := result.(*DeleteAccountResult)
	require.True(t, ok)
	assert.Equal(t, int64(2), deleted.MessagesDeleted)

	_, err := f.store.GetUser(context.Background(), alice.ID)
	assert.Error(t, err)

	// The conversation alice was not part of survives.
	history, err := f.store.GetConversation(context.Background(), bob.ID, carol.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestInboxSummaries(t *testing.T) {
	f := newDeliveryFixture(t)
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")

	f.request(t, &SendMessageMsg{SenderID: bob.ID, ReceiverID: alice.ID, Body: "first"})
	f.request(t, &SendMessageMsg{SenderID: bob.ID, ReceiverID: alice.ID, Body: "second"})
	f.request(t, &SendMessageMsg{SenderID: carol.ID, ReceiverID: alice.ID, Body: "hi"})

	result := f.request(t, &GetInboxMsg{UserID: alice.ID})
	summaries, ok := result.([]models.ConversationSummary)
	require.True(t, ok, "expected summaries, got %T", result)
	require.Len(t, summaries, 2)

	byCounterpart := make(map[uuid.UUID]models.ConversationSummary)
	for _, s := range summaries {
		byCounterpart[s.Message.SenderID] = s
	}
	assert.Equal(t, "second", byCounterpart[bob.ID].Message.Body)
	assert.Equal(t, int64(2), byCounterpart[bob.ID].UnreadCount)
	assert.Equal(t, int64(1), byCounterpart[carol.ID].UnreadCount)
}
