// Package confirm gates destructive conversation actions behind an
// explicit user acknowledgement.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Action is one of the destructive operations the gate protects.
type Action string

const (
	ActionClearChat  Action = "clear_chat"
	ActionArchive    Action = "archive"
	ActionDelete     Action = "delete"
	ActionLeaveGroup Action = "leave_group"
)

// State of the confirmation gate.
type State string

const (
	StateIdle                State = "idle"
	StatePendingConfirmation State = "pending_confirmation"
)

var (
	ErrNothingPending = errors.New("no action awaiting confirmation")
	ErrUnknownAction  = errors.New("unknown destructive action")
)

// Executor performs the destructive operations once confirmed.
type Executor interface {
	ClearChat(ctx context.Context, conversationID string) error
	ArchiveConversation(ctx context.Context, conversationID string) error
	DeleteConversation(ctx context.Context, conversationID string) error
	LeaveGroup(ctx context.Context, conversationID string) error
}

// pending captures the action awaiting acknowledgement.
type pending struct {
	action         Action
	conversationID string
	label          string
}

// Flow is a two-state gate: Idle or PendingConfirmation. Requesting never
// performs the action; Confirm executes exactly one and returns to Idle
// regardless of outcome; Cancel returns to Idle with no side effects.
type Flow struct {
	mu      sync.Mutex
	state   State
	pending pending
	exec    Executor
	log     zerolog.Logger
}

// NewFlow creates an idle gate over an executor.
func NewFlow(exec Executor, log zerolog.Logger) *Flow {
	return &Flow{
		state: StateIdle,
		exec:  exec,
		log:   log.With().Str("component", "confirm-flow").Logger(),
	}
}

// State returns the current gate state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Pending returns the action and label awaiting confirmation, if any.
func (f *Flow) Pending() (Action, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StatePendingConfirmation {
		return "", "", false
	}
	return f.pending.action, f.pending.label, true
}

// Request arms the gate for a destructive action. A newer request
// replaces any prior pending one, matching dialog behavior where opening
// a new prompt dismisses the old.
func (f *Flow) Request(action Action, conversationID, label string) error {
	switch action {
	case ActionClearChat, ActionArchive, ActionDelete, ActionLeaveGroup:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StatePendingConfirmation
	f.pending = pending{action: action, conversationID: conversationID, label: label}
	return nil
}

// Cancel dismisses the pending action with no side effects.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateIdle
	f.pending = pending{}
}

// Confirm executes the pending action exactly once and returns the gate
// to Idle whether the action succeeded or not. Failures are reported to
// the caller, never retried.
func (f *Flow) Confirm(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StatePendingConfirmation {
		f.mu.Unlock()
		return ErrNothingPending
	}
	p := f.pending
	f.state = StateIdle
	f.pending = pending{}
	f.mu.Unlock()

	var err error
	switch p.action {
	case ActionClearChat:
		err = f.exec.ClearChat(ctx, p.conversationID)
	case ActionArchive:
		err = f.exec.ArchiveConversation(ctx, p.conversationID)
	case ActionDelete:
		err = f.exec.DeleteConversation(ctx, p.conversationID)
	case ActionLeaveGroup:
		err = f.exec.LeaveGroup(ctx, p.conversationID)
	}

	if err != nil {
		f.log.Warn().Err(err).Str("action", string(p.action)).Str("conversation", p.conversationID).Msg("confirmed action failed")
		return err
	}
	return nil
}
