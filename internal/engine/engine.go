package engine

import (
	"encoding/json"
	"time"

	"sierra/internal/database"
	"sierra/internal/engine/actors"
	"sierra/internal/models"
	"sierra/internal/push"
	"sierra/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine owns the actor system: the delivery router, the notification
// dispatcher and the user actor. Handlers talk to it through RequestFuture;
// live sessions feed it fire-and-forget through HandleLiveEvent.
type Engine struct {
	system        *actor.ActorSystem
	deliveryActor *actor.PID
	notifyActor   *actor.PID
	userActor     *actor.PID
	log           *zap.SugaredLogger
}

func NewEngine(system *actor.ActorSystem, store database.Store, hub actors.Emitter, provider push.Provider, metrics *utils.MetricsCollector, log *zap.SugaredLogger, timeout time.Duration) *Engine {
	notifyProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewNotificationActor(provider, metrics, log, timeout)
	})
	notifyPID := system.Root.Spawn(notifyProps)

	deliveryProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewDeliveryActor(store, hub, notifyPID, metrics, log, timeout)
	})
	deliveryPID := system.Root.Spawn(deliveryProps)

	userProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserActor(store, log, timeout)
	})
	userPID := system.Root.Spawn(userProps)

	return &Engine{
		system:        system,
		deliveryActor: deliveryPID,
		notifyActor:   notifyPID,
		userActor:     userPID,
		log:           log,
	}
}

func (e *Engine) GetDeliveryActor() *actor.PID {
	return e.deliveryActor
}

func (e *Engine) GetUserActor() *actor.PID {
	return e.userActor
}

// HandleLiveEvent routes an inbound live-session event to the delivery
// router. Live events are fire-and-forget: no response flows back to the
// originating session beyond the events the router emits.
func (e *Engine) HandleLiveEvent(senderID uuid.UUID, event models.Event) {
	switch event.Event {
	case models.EventSendMessage:
		var data models.SendMessageData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			e.log.Debugw("dropping malformed send-message event", "sender", senderID, "err", err)
			return
		}
		receiverID, err := uuid.Parse(data.ReceiverID)
		if err != nil {
			e.log.Debugw("dropping send-message event with bad receiver", "sender", senderID, "err", err)
			return
		}
		e.system.Root.Send(e.deliveryActor, &actors.SendMessageMsg{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Body:       data.Body,
		})

	case models.EventTyping, models.EventStopTyping:
		var data models.TypingData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return
		}
		receiverID, err := uuid.Parse(data.ReceiverID)
		if err != nil {
			return
		}
		e.system.Root.Send(e.deliveryActor, &actors.TypingMsg{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Stop:       event.Event == models.EventStopTyping,
		})

	default:
		e.log.Debugw("ignoring unknown live event", "sender", senderID, "event", event.Event)
	}
}
