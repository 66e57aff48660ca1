package chat

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// StateTopic is the watermill topic state changes are published on.
const StateTopic = "chat-state"

// ChangeEnvelope is the wire form of a Change. It only describes the change;
// subscribers read the current state from the Session.
type ChangeEnvelope struct {
	Event          string `json:"event"`
	Version        uint64 `json:"version"`
	Epoch          uint64 `json:"epoch"`
	ConversationID string `json:"conversation_id,omitempty"`
	Phase          string `json:"phase"`
	Notice         string `json:"notice,omitempty"`
}

func EnvelopeFor(ch Change) ChangeEnvelope {
	env := ChangeEnvelope{
		Event:   ch.Event.Name(),
		Version: ch.State.Version,
		Epoch:   ch.State.Epoch,
		Phase:   ch.State.Phase.String(),
		Notice:  ch.State.Notice,
	}
	if id, ok := ch.State.ActiveID.Get(); ok {
		env.ConversationID = id
	}
	return env
}

func DecodeEnvelope(payload []byte) (ChangeEnvelope, error) {
	var env ChangeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ChangeEnvelope{}, errors.Wrap(err, "decode change envelope")
	}
	return env, nil
}

const publishQueueSize = 64

// NewPublishingListener publishes every change to topic from a background
// goroutine, so dispatching never waits on the transport. Changes are
// published in the order they are queued until ctx is done. When the queue is
// full the change is dropped; subscribers read the current state from the
// Session, so a later change carries them forward.
func NewPublishingListener(ctx context.Context, pub message.Publisher, topic string) Listener {
	queue := make(chan ChangeEnvelope, publishQueueSize)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case env := <-queue:
				publishEnvelope(pub, topic, env)
			}
		}
	}()

	return func(ch Change) {
		select {
		case queue <- EnvelopeFor(ch):
		default:
			log.Warn().Str("component", "chat_notify").Str("topic", topic).Uint64("version", ch.State.Version).Msg("publish queue full, dropping change")
		}
	}
}

func publishEnvelope(pub message.Publisher, topic string, env ChangeEnvelope) {
	b, err := json.Marshal(env)
	if err != nil {
		log.Warn().Err(err).Str("component", "chat_notify").Msg("failed to encode change")
		return
	}
	if err := pub.Publish(topic, message.NewMessage(uuid.NewString(), b)); err != nil {
		log.Warn().Err(err).Str("component", "chat_notify").Str("topic", topic).Msg("failed to publish change")
	}
}
