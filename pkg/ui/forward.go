package ui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/parliament-chat/pkg/chat"
)

// Sender is the part of *tea.Program the forwarder needs.
type Sender interface {
	Send(msg tea.Msg)
}

// StateChangedMsg tells the model the session state moved on.
type StateChangedMsg struct {
	Change chat.ChangeEnvelope
}

// StateForwardFunc returns a watermill handler that turns published state
// changes into tea messages. Undecodable payloads are acked and dropped.
func StateForwardFunc(p Sender) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		msg.Ack()

		env, err := chat.DecodeEnvelope(msg.Payload)
		if err != nil {
			log.Error().Err(err).Str("payload", string(msg.Payload)).Msg("failed to parse state change")
			return nil
		}
		log.Trace().Str("event", env.Event).Uint64("version", env.Version).Msg("forwarding state change to UI")
		p.Send(StateChangedMsg{Change: env})
		return nil
	}
}
