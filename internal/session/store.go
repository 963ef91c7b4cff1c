// Package session holds the authoritative client-side view of the
// messaging session: the conversation set, the active selection, the
// ordered message list for the active conversation, and who is typing
// where. The store is the sole mutator of this state; the other components
// issue commands through it.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"messenger/internal/metrics"
	"messenger/pkg/interfaces"
	"messenger/pkg/types"
)

// Store is the session state store. All exported methods are safe for
// concurrent use; network calls run outside the lock so the store never
// blocks readers during a round trip.
type Store struct {
	mu  sync.RWMutex
	svc interfaces.DataService

	selfID        string
	bootstrapped  bool
	conversations map[string]*types.Conversation
	contacts      map[string]types.ParticipantInfo

	activeID string
	messages []types.Message
	loadSeq  uint64

	typing       map[string]string // userID -> conversationID
	typingTimers map[string]*time.Timer
	typingTTL    time.Duration

	start singleflight.Group
	log   zerolog.Logger
}

// NewStore creates an empty store over the given data service.
func NewStore(svc interfaces.DataService, selfID string, typingTTL time.Duration, log zerolog.Logger) *Store {
	return &Store{
		svc:           svc,
		selfID:        selfID,
		conversations: make(map[string]*types.Conversation),
		contacts:      make(map[string]types.ParticipantInfo),
		typing:        make(map[string]string),
		typingTimers:  make(map[string]*time.Timer),
		typingTTL:     typingTTL,
		log:           log.With().Str("component", "session-store").Logger(),
	}
}

// Bootstrap loads the conversation list and the contact directory in
// parallel and replaces the local sets.
func (s *Store) Bootstrap(ctx context.Context) error {
	var (
		convs []*types.Conversation
		users []types.ParticipantInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		convs, err = s.svc.ListConversations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.svc.CompanyUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("bootstrap session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]*types.Conversation, len(convs))
	for _, conv := range convs {
		if err := conv.Validate(); err != nil {
			s.log.Warn().Err(err).Str("conversation", conv.ID).Msg("dropping malformed conversation from bootstrap")
			continue
		}
		s.conversations[conv.ID] = conv
	}
	s.contacts = make(map[string]types.ParticipantInfo, len(users))
	for _, u := range users {
		s.contacts[u.UserID] = u
	}
	s.bootstrapped = true

	s.log.Info().Int("conversations", len(convs)).Int("contacts", len(users)).Msg("session bootstrapped")
	return nil
}

// Conversations returns a snapshot of the conversation set ordered by
// most recent activity. The copies are detached: pushed events mutate the
// store's own records, never a snapshot a caller already holds. Shallow
// copies suffice because participant slices are always replaced wholesale,
// never written element-wise.
func (s *Store) Conversations() []types.Conversation {
	s.mu.RLock()
	convs := make([]types.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		convs = append(convs, *conv)
	}
	s.mu.RUnlock()

	sort.Slice(convs, func(i, j int) bool {
		if !convs[i].LastMessageAt.Equal(convs[j].LastMessageAt) {
			return convs[i].LastMessageAt.After(convs[j].LastMessageAt)
		}
		return convs[i].ID < convs[j].ID
	})
	return convs
}

// Conversation looks a conversation up by id, returning a detached copy.
func (s *Store) Conversation(conversationID string) (types.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return types.Conversation{}, false
	}
	return *conv, true
}

// Contact looks a directory entry up by user id.
func (s *Store) Contact(userID string) (types.ParticipantInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.contacts[userID]
	return info, ok
}

// Contacts returns the directory sorted by user id.
func (s *Store) Contacts() []types.ParticipantInfo {
	s.mu.RLock()
	users := make([]types.ParticipantInfo, 0, len(s.contacts))
	for _, u := range s.contacts {
		users = append(users, u)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

// ActiveID returns the id of the active conversation, or "".
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Messages returns a copy of the active conversation's ordered messages.
func (s *Store) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// LoadMessages fetches history for a conversation, makes it active and
// replaces the message list. Each call supersedes any still-in-flight
// load: a response that comes back after a newer request is discarded with
// ErrStaleLoad. On failure the active selection is left unchanged.
func (s *Store) LoadMessages(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if !s.bootstrapped {
		s.mu.Unlock()
		return ErrNotBootstrapped
	}
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	msgs, err := s.svc.MessageHistory(ctx, conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.loadSeq {
		return ErrStaleLoad
	}
	if err != nil {
		return fmt.Errorf("load messages for %s: %w", conversationID, err)
	}

	s.activeID = conversationID
	s.messages = msgs
	if conv, ok := s.conversations[conversationID]; ok {
		conv.Unread = 0
	}
	s.log.Debug().Str("conversation", conversationID).Int("messages", len(msgs)).Msg("conversation activated")
	return nil
}

// SendMessage validates the send precondition, appends an optimistic
// pending entry and delivers through the data service. On success the
// pending entry is replaced with the confirmed server record; on failure
// it is marked failed and kept visible, and the caller restores the input
// text and resubmits explicitly.
func (s *Store) SendMessage(ctx context.Context, conversationID, recipientID, text string, attachmentIDs []string, metas []types.AttachmentMeta) (*types.Message, error) {
	req := types.SendMessageRequest{
		ConversationID: conversationID,
		RecipientID:    recipientID,
		Text:           text,
		AttachmentIDs:  attachmentIDs,
	}
	if err := req.Validate(); err != nil {
		return nil, ErrEmptyMessage
	}

	s.mu.RLock()
	bootstrapped := s.bootstrapped
	s.mu.RUnlock()
	if !bootstrapped {
		return nil, ErrNotBootstrapped
	}

	pending := types.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       s.selfID,
		Text:           text,
		Attachments:    metas,
		CreatedAt:      time.Now(),
		Delivery:       types.DeliveryPending,
	}

	s.mu.Lock()
	if s.activeID == conversationID {
		s.messages = append(s.messages, pending)
	}
	s.mu.Unlock()

	confirmed, err := s.svc.SendMessage(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.markDelivery(pending.ID, types.DeliveryFailed)
		metrics.SendFailures.Inc()
		s.log.Warn().Err(err).Str("conversation", conversationID).Msg("send failed")
		return nil, err
	}

	s.replaceMessage(pending.ID, *confirmed)
	if conv, ok := s.conversations[conversationID]; ok {
		conv.LastMessageAt = confirmed.CreatedAt
	}
	metrics.MessagesSent.Inc()
	return confirmed, nil
}

// markDelivery flips the delivery state of a local message if it is still
// in the active list. Callers hold the lock.
func (s *Store) markDelivery(messageID string, state types.DeliveryState) {
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].Delivery = state
			return
		}
	}
}

// replaceMessage swaps a pending entry for the confirmed record. If the
// active conversation changed while the send was in flight the pending
// entry is already gone and there is nothing to do. Callers hold the lock.
func (s *Store) replaceMessage(messageID string, confirmed types.Message) {
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i] = confirmed
			return
		}
	}
}

// DeleteMessage removes a message from the active list by id. Idempotent:
// deleting an id that is absent (or already deleted) is a no-op.
func (s *Store) DeleteMessage(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// StartConversation finds or creates the 1:1 conversation with a user.
// Concurrent calls for the same peer are coalesced into one request.
func (s *Store) StartConversation(ctx context.Context, otherUserID string) (*types.Conversation, error) {
	v, err, _ := s.start.Do(otherUserID, func() (any, error) {
		conv, err := s.svc.StartConversation(ctx, otherUserID)
		if err != nil {
			return nil, err
		}
		s.UpsertConversation(conv)
		return conv, nil
	})
	if err != nil {
		return nil, fmt.Errorf("start conversation with %s: %w", otherUserID, err)
	}
	return v.(*types.Conversation), nil
}

// ClearChat deletes all messages in a conversation server-side, then
// empties the local list when that conversation is active.
func (s *Store) ClearChat(ctx context.Context, conversationID string) error {
	if err := s.svc.ClearChat(ctx, conversationID); err != nil {
		return fmt.Errorf("clear chat %s: %w", conversationID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == conversationID {
		s.messages = nil
	}
	return nil
}

// ArchiveConversation soft-removes a conversation and drops it locally.
func (s *Store) ArchiveConversation(ctx context.Context, conversationID string) error {
	if err := s.svc.ArchiveConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("archive conversation %s: %w", conversationID, err)
	}
	s.RemoveConversation(conversationID)
	return nil
}

// DeleteConversation hard-removes a conversation and drops it locally.
func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := s.svc.DeleteConversation(ctx, conversationID); err != nil {
		return fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	s.RemoveConversation(conversationID)
	return nil
}

// UpsertConversation inserts or replaces a conversation record. The store
// keeps its own copy so the caller's pointer never aliases store state.
// Malformed records are dropped; the backend is the authority and a
// shape-invalid conversation cannot be rendered or acted on.
func (s *Store) UpsertConversation(conv *types.Conversation) {
	if err := conv.Validate(); err != nil {
		s.log.Warn().Err(err).Str("conversation", conv.ID).Msg("rejecting malformed conversation")
		return
	}
	clone := *conv

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[clone.ID] = &clone
}

// RemoveConversation drops a conversation from the local set, clearing the
// active selection when it was the one removed. Idempotent.
func (s *Store) RemoveConversation(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, conversationID)
	if s.activeID == conversationID {
		s.activeID = ""
		s.messages = nil
	}
}

// RenameConversation updates the local display name of a group.
func (s *Store) RenameConversation(conversationID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[conversationID]; ok {
		conv.Name = name
	}
}

// ReplaceParticipants swaps in the authoritative member list.
func (s *Store) ReplaceParticipants(conversationID string, members []types.ParticipantInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return
	}
	participants := make([]types.Participant, 0, len(members))
	for _, m := range members {
		participants = append(participants, types.Participant{UserID: m.UserID, Role: m.Role})
	}
	conv.Participants = participants
}

var _ interfaces.ConversationStore = (*Store)(nil)
