package session

import (
	"encoding/json"

	"messenger/pkg/types"
)

// ApplyEvent routes a gateway push event into the store. Wired as the
// gateway subscription handler for all three event names; events are
// applied strictly in arrival order and never reordered or deduplicated.
func (s *Store) ApplyEvent(evt types.Event) {
	switch evt.Name {
	case types.EventChatMessage:
		var msg types.Message
		if err := json.Unmarshal(evt.Payload, &msg); err != nil {
			s.log.Warn().Err(err).Msg("discarding malformed chat_message payload")
			return
		}
		s.applyChatMessage(msg)
	case types.EventTyping:
		var typing types.TypingEvent
		if err := json.Unmarshal(evt.Payload, &typing); err != nil {
			s.log.Warn().Err(err).Msg("discarding malformed typing payload")
			return
		}
		s.applyTyping(typing)
	case types.EventConversationUpdated:
		var update types.ConversationUpdate
		if err := json.Unmarshal(evt.Payload, &update); err != nil {
			s.log.Warn().Err(err).Msg("discarding malformed conversation_updated payload")
			return
		}
		s.applyConversationUpdate(update)
	}
}
