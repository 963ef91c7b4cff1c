package types

import (
	"fmt"
	"regexp"
	"strings"
)

// Compiled once at package initialization; identifiers are opaque but the
// gateway and data service both reject anything outside this alphabet.
var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)

// IsValidID checks an opaque identifier (user, conversation, message,
// attachment). 1-64 characters, alphanumeric plus underscore/hyphen/colon.
func IsValidID(id string) bool {
	if len(id) < 1 || len(id) > 64 {
		return false
	}
	return idRegex.MatchString(id)
}

// Validate enforces the conversation shape invariant: exactly one of
// {OtherUser populated, IsGroup} holds, and participants are non-empty.
func (c *Conversation) Validate() error {
	if !IsValidID(c.ID) {
		return fmt.Errorf("%w: invalid conversation id %q", ErrValidation, c.ID)
	}
	if c.IsGroup == (c.OtherUser != nil) {
		return fmt.Errorf("%w: conversation %s must be either group or 1:1", ErrValidation, c.ID)
	}
	if len(c.Participants) == 0 {
		return fmt.Errorf("%w: conversation %s has no participants", ErrValidation, c.ID)
	}
	return nil
}

// Validate checks the send precondition: trimmed text non-empty or at
// least one attachment id. Applied before any network call.
func (r *SendMessageRequest) Validate() error {
	if !IsValidID(r.ConversationID) {
		return fmt.Errorf("%w: invalid conversation id %q", ErrValidation, r.ConversationID)
	}
	if strings.TrimSpace(r.Text) == "" && len(r.AttachmentIDs) == 0 {
		return fmt.Errorf("%w: message needs text or at least one attachment", ErrValidation)
	}
	return nil
}

// ValidGroupName reports whether a group display name is acceptable after
// trimming. The 200-character cap matches the data service limit.
func ValidGroupName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return len(trimmed) >= 1 && len(trimmed) <= 200
}
