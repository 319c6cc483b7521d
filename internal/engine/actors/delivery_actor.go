package actors

import (
	stdctx "context"
	"time"

	"sierra/internal/database"
	"sierra/internal/models"
	"sierra/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Emitter pushes a payload to every live session of a user and reports how
// many sessions accepted it. The websocket hub satisfies this.
type Emitter interface {
	EmitToUser(userID uuid.UUID, payload []byte) int
}

// Message types for the DeliveryActor
type (
	SendMessageMsg struct {
		SenderID   uuid.UUID        `json:"senderId"`
		ReceiverID uuid.UUID        `json:"receiverId"`
		Body       string           `json:"body"`
		MediaURL   string           `json:"mediaUrl"`
		MediaKind  models.MediaKind `json:"mediaKind"`
	}

	GetConversationMsg struct {
		UserA uuid.UUID `json:"userA"`
		UserB uuid.UUID `json:"userB"`
	}

	GetInboxMsg struct {
		UserID uuid.UUID `json:"userId"`
	}

	MarkReadMsg struct {
		FromID uuid.UUID `json:"fromId"`
		ToID   uuid.UUID `json:"toId"`
	}

	TypingMsg struct {
		SenderID   uuid.UUID `json:"senderId"`
		ReceiverID uuid.UUID `json:"receiverId"`
		Stop       bool      `json:"stop"`
	}

	DeleteConversationMsg struct {
		UserA uuid.UUID `json:"userA"`
		UserB uuid.UUID `json:"userB"`
	}

	DeleteAccountMsg struct {
		UserID uuid.UUID `json:"userId"`
	}

	MarkReadResult struct {
		Updated int64 `json:"updated"`
	}

	DeleteConversationResult struct {
		Deleted int64 `json:"deleted"`
	}

	DeleteAccountResult struct {
		MessagesDeleted int64 `json:"messagesDeleted"`
	}
)

// DeliveryActor is the delivery router: it persists a send, resolves the
// participants, fans the message out to live sessions and hands off to the
// notification dispatcher. Each send runs its stages strictly in order; a
// persistence failure aborts the whole operation before anything is emitted.
type DeliveryActor struct {
	store        database.Store
	hub          Emitter
	notification *actor.PID
	metrics      *utils.MetricsCollector
	log          *zap.SugaredLogger
	timeout      time.Duration
}

func NewDeliveryActor(store database.Store, hub Emitter, notification *actor.PID, metrics *utils.MetricsCollector, log *zap.SugaredLogger, timeout time.Duration) actor.Actor {
	return &DeliveryActor{
		store:        store,
		hub:          hub,
		notification: notification,
		metrics:      metrics,
		log:          log,
		timeout:      timeout,
	}
}

func (a *DeliveryActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *SendMessageMsg:
		a.handleSend(context, msg)
	case *GetConversationMsg:
		a.handleGetConversation(context, msg)
	case *GetInboxMsg:
		a.handleGetInbox(context, msg)
	case *MarkReadMsg:
		a.handleMarkRead(context, msg)
	case *TypingMsg:
		a.handleTyping(msg)
	case *DeleteConversationMsg:
		a.handleDeleteConversation(context, msg)
	case *DeleteAccountMsg:
		a.handleDeleteAccount(context, msg)
	}
}

// respond is a no-op for live-event sends, which carry no sender to reply to.
func respond(context actor.Context, message any) {
	if context.Sender() != nil {
		context.Respond(message)
	}
}

func (a *DeliveryActor) handleSend(context actor.Context, msg *SendMessageMsg) {
	startTime := time.Now()
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	if msg.SenderID == msg.ReceiverID {
		respond(context, utils.NewValidationError("Cannot send a message to yourself"))
		return
	}

	// Stage 1: persist. Failure aborts the send with nothing emitted.
	message, err := a.store.SaveMessage(ctx, msg.SenderID, msg.ReceiverID, msg.Body, msg.MediaURL, msg.MediaKind)
	if err != nil {
		if appErr, ok := err.(*utils.AppError); ok {
			respond(context, appErr)
			return
		}
		a.log.Errorw("message persistence failed", "sender", msg.SenderID, "receiver", msg.ReceiverID, "err", err)
		respond(context, utils.NewDependencyError("Failed to persist message", err))
		return
	}
	a.metrics.MessagesSent.Inc()

	// Stage 2: resolve both participants' profiles.
	sender, err := a.store.GetUser(ctx, msg.SenderID)
	if err != nil {
		respond(context, utils.NewDependencyError("Failed to resolve sender", err))
		return
	}
	receiver, err := a.store.GetUser(ctx, msg.ReceiverID)
	if err != nil {
		respond(context, utils.NewDependencyError("Failed to resolve receiver", err))
		return
	}

	// Stage 3: unread count for the receiver side of this pair.
	unread, err := a.store.CountUnread(ctx, msg.SenderID, msg.ReceiverID)
	if err != nil {
		respond(context, utils.NewDependencyError("Failed to count unread messages", err))
		return
	}

	resolved := &models.ResolvedMessage{
		Message:      *message,
		SenderName:   sender.Username,
		SenderAvatar: sender.AvatarURL,
	}

	// Stage 4: emit to live sessions; a failed or missing session never
	// cancels delivery to the rest.
	if payload, err := models.EncodeEvent(models.EventNewMessage, models.NewMessagePayload{Message: resolved, UnreadCount: unread}); err == nil {
		delivered := a.hub.EmitToUser(msg.ReceiverID, payload)
		a.metrics.MessagesDelivered.Add(float64(delivered))
	}
	if payload, err := models.EncodeEvent(models.EventMessageSent, models.MessageSentPayload{Message: resolved}); err == nil {
		a.hub.EmitToUser(msg.SenderID, payload)
	}

	// Stage 5: unconditional hand-off to the dispatcher. The receiver may be
	// live on one device and backgrounded on another.
	context.Send(a.notification, &NotifyMsg{Receiver: receiver, Message: resolved})

	a.metrics.AddOperationLatency("send_message", time.Since(startTime))
	respond(context, message)
}

func (a *DeliveryActor) handleGetConversation(context actor.Context, msg *GetConversationMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	messages, err := a.store.GetConversation(ctx, msg.UserA, msg.UserB)
	if err != nil {
		respond(context, utils.NewDependencyError("Failed to get conversation", err))
		return
	}
	respond(context, messages)
}

func (a *DeliveryActor) handleGetInbox(context actor.Context, msg *GetInboxMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	summaries, err := a.store.LatestPerConversation(ctx, msg.UserID)
	if err != nil {
		respond(context, utils.NewDependencyError("Failed to list conversations", err))
		return
	}
	respond(context, summaries)
}

// handleMarkRead flips the read flag in bulk for one direction of a pair.
// No live event is emitted; clients re-fetch counts on their next poll.
func (a *DeliveryActor) handleMarkRead(context actor.Context, msg *MarkReadMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	updated, err := a.store.MarkConversationRead(ctx, msg.FromID, msg.ToID)
	if err != nil {
		respond(context, utils.NewDependencyError("Failed to mark conversation read", err))
		return
	}
	respond(context, &MarkReadResult{Updated: updated})
}

// handleTyping relays a typing indicator to the other party's live sessions.
// No persistence, fire-and-forget.
func (a *DeliveryActor) handleTyping(msg *TypingMsg) {
	name := models.EventTyping
	if msg.Stop {
		name = models.EventStopTyping
	}
	payload, err := models.EncodeEvent(name, models.TypingPayload{
		SenderID:   msg.SenderID.String(),
		ReceiverID: msg.ReceiverID.String(),
	})
	if err != nil {
		return
	}
	a.hub.EmitToUser(msg.ReceiverID, payload)
}

func (a *DeliveryActor) handleDeleteConversation(context actor.Context, msg *DeleteConversationMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	deleted, err := a.store.DeleteConversation(ctx, msg.UserA, msg.UserB)
	if err != nil {
		respond(context, utils.NewDependencyError("Failed to delete conversation", err))
		return
	}

	// Both participants' clients evict their cached history.
	if payload, err := models.EncodeEvent(models.EventDeleteChat, models.DeleteChatPayload{
		UserA: msg.UserA.String(),
		UserB: msg.UserB.String(),
	}); err == nil {
		a.hub.EmitToUser(msg.UserA, payload)
		a.hub.EmitToUser(msg.UserB, payload)
	}

	respond(context, &DeleteConversationResult{Deleted: deleted})
}

// handleDeleteAccount removes the user's messages and then the user record.
// The two deletes are sequential; a crash between them leaves the account
// without messages rather than the reverse.
func (a *DeliveryActor) handleDeleteAccount(context actor.Context, msg *DeleteAccountMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	deleted, err := a.store.DeleteUserMessages(ctx, msg.UserID)
	if err != nil {
		respond(context, utils.NewDependencyError("Failed to delete user messages", err))
		return
	}
	if err := a.store.DeleteUser(ctx, msg.UserID); err != nil {
		if appErr, ok := err.(*utils.AppError); ok {
			respond(context, appErr)
			return
		}
		respond(context, utils.NewDependencyError("Failed to delete user", err))
		return
	}
	respond(context, &DeleteAccountResult{MessagesDeleted: deleted})
}
