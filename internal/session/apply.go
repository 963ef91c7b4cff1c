package session

import (
	"time"

	"messenger/internal/metrics"
	"messenger/pkg/types"
)

// applyChatMessage appends a pushed message when its conversation is
// active, otherwise bumps the unread counter. Arrival order is preserved
// verbatim; if the gateway redelivers a known id the duplicate stays.
func (s *Store) applyChatMessage(msg types.Message) {
	msg.Delivery = types.DeliveryConfirmed

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == msg.ConversationID {
		s.messages = append(s.messages, msg)
	} else if conv, ok := s.conversations[msg.ConversationID]; ok {
		conv.Unread++
	}
	if conv, ok := s.conversations[msg.ConversationID]; ok {
		conv.LastMessageAt = msg.CreatedAt
	}
	metrics.MessagesReceived.Inc()
}

// applyTyping records or clears a typing entry. A user has at most one
// entry at a time; a new conversation overwrites any prior one. Entries
// expire after the typing TTL unless an explicit stop arrives first.
func (s *Store) applyTyping(evt types.TypingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.typingTimers[evt.UserID]; ok {
		timer.Stop()
		delete(s.typingTimers, evt.UserID)
	}

	if !evt.IsTyping {
		delete(s.typing, evt.UserID)
		return
	}

	s.typing[evt.UserID] = evt.ConversationID
	userID := evt.UserID
	conversationID := evt.ConversationID
	s.typingTimers[userID] = time.AfterFunc(s.typingTTL, func() {
		s.expireTyping(userID, conversationID)
	})
}

// expireTyping clears a typing entry on TTL, unless the user has since
// started typing somewhere else (in which case a newer timer owns the
// entry).
func (s *Store) expireTyping(userID, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.typing[userID] == conversationID {
		delete(s.typing, userID)
		delete(s.typingTimers, userID)
	}
}

// TypingUsers returns the users currently typing in a conversation.
func (s *Store) TypingUsers(conversationID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []string
	for userID, convID := range s.typing {
		if convID == conversationID {
			users = append(users, userID)
		}
	}
	return users
}

// applyConversationUpdate merges a partial conversation update into the
// local record. Unknown conversations are ignored; the next bootstrap or
// list refresh will pick them up.
func (s *Store) applyConversationUpdate(update types.ConversationUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[update.ID]
	if !ok {
		return
	}
	if update.Name != nil {
		conv.Name = *update.Name
	}
	if update.Participants != nil {
		conv.Participants = update.Participants
	}
}
