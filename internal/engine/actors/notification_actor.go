package actors

import (
	stdctx "context"
	"time"

	"sierra/internal/models"
	"sierra/internal/push"
	"sierra/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// NotifyMsg asks the dispatcher to push a resolved message to every device
// token registered to the receiver.
type NotifyMsg struct {
	Receiver *models.User
	Message  *models.ResolvedMessage
}

// NotificationActor is the best-effort push dispatcher. Tokens are dispatched
// concurrently; a failure for one token affects neither the other tokens nor
// the send operation that queued the notification.
type NotificationActor struct {
	provider push.Provider
	metrics  *utils.MetricsCollector
	log      *zap.SugaredLogger
	timeout  time.Duration
}

func NewNotificationActor(provider push.Provider, metrics *utils.MetricsCollector, log *zap.SugaredLogger, timeout time.Duration) actor.Actor {
	return &NotificationActor{
		provider: provider,
		metrics:  metrics,
		log:      log,
		timeout:  timeout,
	}
}

func (a *NotificationActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *NotifyMsg:
		a.handleNotify(msg)
	}
}

func (a *NotificationActor) handleNotify(msg *NotifyMsg) {
	if a.provider == nil || len(msg.Receiver.PushTokens) == 0 {
		return
	}

	body := notificationBody(msg.Message)
	for _, token := range msg.Receiver.PushTokens {
		a.metrics.PushAttempts.Inc()
		go func(token string) {
			ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
			defer cancel()

			err := a.provider.Send(ctx, push.Notification{
				Token: token,
				Title: msg.Message.SenderName,
				Body:  body,
				Data: map[string]string{
					"messageId": msg.Message.ID.String(),
					"senderId":  msg.Message.SenderID.String(),
				},
			})
			if err != nil {
				a.metrics.PushFailures.Inc()
				a.log.Warnw("push delivery failed", "user", msg.Receiver.ID, "err", err)
			}
		}(token)
	}
}

// notificationBody falls back to a media placeholder when the message has no
// text.
func notificationBody(m *models.ResolvedMessage) string {
	if m.Body != "" {
		return m.Body
	}
	switch m.MediaKind {
	case models.MediaImage:
		return "📷 Photo"
	case models.MediaVideo:
		return "🎥 Video"
	case models.MediaAudio:
		return "🎵 Audio"
	default:
		return "New message"
	}
}
