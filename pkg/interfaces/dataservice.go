package interfaces

import (
	"context"

	"messenger/pkg/types"
)

// DataService is the REST surface of the messaging backend. Every call
// suspends until response or rejection; implementations map transport and
// HTTP failures onto the types error taxonomy so callers can errors.Is
// against types.ErrNotFound, types.ErrPermissionDenied and friends.
type DataService interface {
	// ListConversations returns every conversation visible to the
	// authenticated user.
	ListConversations(ctx context.Context) ([]*types.Conversation, error)

	// MessageHistory fetches the full ordered message list for a
	// conversation. types.ErrNotFound when the conversation is gone.
	MessageHistory(ctx context.Context, conversationID string) ([]types.Message, error)

	// SendMessage delivers a composed message and returns the confirmed
	// server record.
	SendMessage(ctx context.Context, req types.SendMessageRequest) (*types.Message, error)

	// UploadAttachment stores a file and returns its metadata. The
	// attachment is tied to a message only when a later send references it.
	UploadAttachment(ctx context.Context, up types.AttachmentUpload) (*types.AttachmentMeta, error)

	// CompanyUsers returns the contact directory.
	CompanyUsers(ctx context.Context) ([]types.ParticipantInfo, error)

	// StartConversation finds or creates the 1:1 conversation with the
	// given user.
	StartConversation(ctx context.Context, otherUserID string) (*types.Conversation, error)

	// CreateGroup creates a group conversation with the caller as admin.
	CreateGroup(ctx context.Context, name string, memberIDs []string) (*types.Conversation, error)

	// GroupMembers returns the authoritative member list for a group.
	GroupMembers(ctx context.Context, conversationID string) ([]types.ParticipantInfo, error)

	// AddGroupMembers adds users to a group. All-or-nothing semantics are
	// the server's responsibility.
	AddGroupMembers(ctx context.Context, conversationID string, userIDs []string) error

	// RemoveGroupMember removes a single member. Removing the last admin
	// is rejected server-side.
	RemoveGroupMember(ctx context.Context, conversationID, userID string) error

	// RenameGroup updates the group display name.
	RenameGroup(ctx context.Context, conversationID, name string) error

	// LeaveGroup removes the authenticated user from a group.
	LeaveGroup(ctx context.Context, conversationID string) error

	// ArchiveConversation soft-removes a conversation for this user.
	ArchiveConversation(ctx context.Context, conversationID string) error

	// DeleteConversation hard-removes a conversation.
	DeleteConversation(ctx context.Context, conversationID string) error

	// ClearChat deletes all messages in a conversation, keeping the thread.
	ClearChat(ctx context.Context, conversationID string) error
}
