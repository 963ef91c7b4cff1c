package interfaces

import "messenger/pkg/types"

// ConversationStore is the slice of the session store the group membership
// controller needs to reconcile local state after a mutation succeeds.
// The store stays the sole mutator of conversation state; the controller
// issues these calls instead of touching the maps directly.
type ConversationStore interface {
	// UpsertConversation inserts or replaces a conversation record.
	UpsertConversation(conv *types.Conversation)

	// RemoveConversation drops a conversation from the local set.
	// Idempotent.
	RemoveConversation(conversationID string)

	// RenameConversation updates the local display name of a group.
	RenameConversation(conversationID, name string)

	// ReplaceParticipants swaps in the authoritative member list after a
	// group mutation; no incremental merge is attempted.
	ReplaceParticipants(conversationID string, members []types.ParticipantInfo)
}
