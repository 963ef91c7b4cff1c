// Package groups sequences membership and naming mutations for group
// conversations against the data service.
package groups

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"messenger/pkg/interfaces"
	"messenger/pkg/types"
)

// State is the mutation gate for one group conversation.
type State string

const (
	StateStable         State = "stable"
	StateAddingMembers  State = "adding_members"
	StateRemovingMember State = "removing_member"
	StateRenaming       State = "renaming"
)

// Controller mutates group conversations one operation at a time per
// group. It performs no authorization: the data service rejects non-admin
// mutations and the error is surfaced verbatim. Local conversation state
// is reconciled through the store interface, never mutated directly.
type Controller struct {
	mu      sync.Mutex
	svc     interfaces.DataService
	store   interfaces.ConversationStore
	selfID  string
	states  map[string]State
	members map[string][]types.ParticipantInfo
	log     zerolog.Logger
}

// NewController creates a controller for the authenticated user.
func NewController(svc interfaces.DataService, store interfaces.ConversationStore, selfID string, log zerolog.Logger) *Controller {
	return &Controller{
		svc:     svc,
		store:   store,
		selfID:  selfID,
		states:  make(map[string]State),
		members: make(map[string][]types.ParticipantInfo),
		log:     log.With().Str("component", "group-controller").Logger(),
	}
}

// begin moves a group from stable into a mutation state.
func (c *Controller) begin(conversationID string, next State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.states[conversationID]; ok && state != StateStable {
		return fmt.Errorf("%w: %s is %s", ErrOperationInProgress, conversationID, state)
	}
	c.states[conversationID] = next
	return nil
}

// end returns a group to stable.
func (c *Controller) end(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[conversationID] = StateStable
}

// StateOf returns the current mutation state of a group.
func (c *Controller) StateOf(conversationID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.states[conversationID]; ok {
		return state
	}
	return StateStable
}

// CreateGroup validates client-side (non-empty trimmed name, at least one
// selected contact; neither reaches the network when violated), creates
// the group and registers it in the store.
func (c *Controller) CreateGroup(ctx context.Context, name string, memberIDs []string) (*types.Conversation, error) {
	if len(memberIDs) == 0 {
		return nil, ErrNoMembersSelected
	}
	trimmed := strings.TrimSpace(name)
	if !types.ValidGroupName(trimmed) {
		return nil, ErrEmptyGroupName
	}

	conv, err := c.svc.CreateGroup(ctx, trimmed, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("create group %q: %w", trimmed, err)
	}
	c.store.UpsertConversation(conv)
	c.log.Info().Str("conversation", conv.ID).Int("members", len(memberIDs)).Msg("group created")
	return conv, nil
}

// Members fetches the authoritative member list, replacing any cached
// copy.
func (c *Controller) Members(ctx context.Context, conversationID string) ([]types.ParticipantInfo, error) {
	members, err := c.svc.GroupMembers(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("fetch members of %s: %w", conversationID, err)
	}

	c.mu.Lock()
	c.members[conversationID] = members
	c.mu.Unlock()

	c.store.ReplaceParticipants(conversationID, members)
	return members, nil
}

// CachedMembers returns the last fetched member list, if any.
func (c *Controller) CachedMembers(conversationID string) ([]types.ParticipantInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	members, ok := c.members[conversationID]
	return members, ok
}

// AddMembers adds users to a group. An empty list is a no-op. After a
// successful add the member list is re-fetched rather than merged, since
// roles and dedup are decided server-side.
func (c *Controller) AddMembers(ctx context.Context, conversationID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	if err := c.begin(conversationID, StateAddingMembers); err != nil {
		return err
	}
	defer c.end(conversationID)

	if err := c.svc.AddGroupMembers(ctx, conversationID, userIDs); err != nil {
		return fmt.Errorf("add members to %s: %w", conversationID, err)
	}
	if _, err := c.Members(ctx, conversationID); err != nil {
		// The add itself succeeded; the stale cache self-heals on the
		// next fetch or pushed update.
		c.log.Warn().Err(err).Str("conversation", conversationID).Msg("member refresh after add failed")
	}
	return nil
}

// RemoveMember removes a single member. Removing the last admin is a
// domain error the data service rejects; the failure is surfaced as-is.
func (c *Controller) RemoveMember(ctx context.Context, conversationID, userID string) error {
	if err := c.begin(conversationID, StateRemovingMember); err != nil {
		return err
	}
	defer c.end(conversationID)

	if err := c.svc.RemoveGroupMember(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("remove %s from %s: %w", userID, conversationID, err)
	}

	c.mu.Lock()
	if members, ok := c.members[conversationID]; ok {
		kept := members[:0]
		for _, m := range members {
			if m.UserID != userID {
				kept = append(kept, m)
			}
		}
		c.members[conversationID] = kept
	}
	members := c.members[conversationID]
	c.mu.Unlock()

	c.store.ReplaceParticipants(conversationID, members)
	return nil
}

// Rename updates the group display name; blank names never reach the
// network.
func (c *Controller) Rename(ctx context.Context, conversationID, name string) error {
	trimmed := strings.TrimSpace(name)
	if !types.ValidGroupName(trimmed) {
		return ErrEmptyGroupName
	}
	if err := c.begin(conversationID, StateRenaming); err != nil {
		return err
	}
	defer c.end(conversationID)

	if err := c.svc.RenameGroup(ctx, conversationID, trimmed); err != nil {
		return fmt.Errorf("rename %s: %w", conversationID, err)
	}
	c.store.RenameConversation(conversationID, trimmed)
	return nil
}

// Leave removes the authenticated user from a group and drops the
// conversation from the local set on success.
func (c *Controller) Leave(ctx context.Context, conversationID string) error {
	if err := c.svc.LeaveGroup(ctx, conversationID); err != nil {
		return fmt.Errorf("leave group %s: %w", conversationID, err)
	}

	c.mu.Lock()
	delete(c.members, conversationID)
	delete(c.states, conversationID)
	c.mu.Unlock()

	c.store.RemoveConversation(conversationID)
	c.log.Info().Str("conversation", conversationID).Msg("left group")
	return nil
}
