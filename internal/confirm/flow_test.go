package confirm

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op             string
	conversationID string
}

type mockExecutor struct {
	calls []call
	err   error
}

func (m *mockExecutor) ClearChat(ctx context.Context, conversationID string) error {
	m.calls = append(m.calls, call{"clear", conversationID})
	return m.err
}

func (m *mockExecutor) ArchiveConversation(ctx context.Context, conversationID string) error {
	m.calls = append(m.calls, call{"archive", conversationID})
	return m.err
}

func (m *mockExecutor) DeleteConversation(ctx context.Context, conversationID string) error {
	m.calls = append(m.calls, call{"delete", conversationID})
	return m.err
}

func (m *mockExecutor) LeaveGroup(ctx context.Context, conversationID string) error {
	m.calls = append(m.calls, call{"leave", conversationID})
	return m.err
}

func TestRequestArmsWithoutExecuting(t *testing.T) {
	exec := &mockExecutor{}
	f := NewFlow(exec, zerolog.Nop())

	require.NoError(t, f.Request(ActionDelete, "c1", "Delete this conversation?"))

	assert.Equal(t, StatePendingConfirmation, f.State())
	action, label, ok := f.Pending()
	require.True(t, ok)
	assert.Equal(t, ActionDelete, action)
	assert.Equal(t, "Delete this conversation?", label)
	assert.Empty(t, exec.calls, "requesting must never perform the action")
}

func TestRequestRejectsUnknownAction(t *testing.T) {
	f := NewFlow(&mockExecutor{}, zerolog.Nop())

	err := f.Request(Action("nuke"), "c1", "")

	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, StateIdle, f.State())
}

func TestNewerRequestReplacesPending(t *testing.T) {
	exec := &mockExecutor{}
	f := NewFlow(exec, zerolog.Nop())

	require.NoError(t, f.Request(ActionClearChat, "c1", "clear?"))
	require.NoError(t, f.Request(ActionArchive, "c2", "archive?"))
	require.NoError(t, f.Confirm(context.Background()))

	assert.Equal(t, []call{{"archive", "c2"}}, exec.calls, "only the latest request executes")
}

func TestCancelHasNoSideEffects(t *testing.T) {
	exec := &mockExecutor{}
	f := NewFlow(exec, zerolog.Nop())

	require.NoError(t, f.Request(ActionLeaveGroup, "g1", "leave?"))
	f.Cancel()

	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, exec.calls)
	assert.ErrorIs(t, f.Confirm(context.Background()), ErrNothingPending)
}

func TestConfirmExecutesExactlyOnce(t *testing.T) {
	exec := &mockExecutor{}
	f := NewFlow(exec, zerolog.Nop())

	require.NoError(t, f.Request(ActionClearChat, "c1", "clear?"))
	require.NoError(t, f.Confirm(context.Background()))

	assert.Equal(t, []call{{"clear", "c1"}}, exec.calls)
	assert.ErrorIs(t, f.Confirm(context.Background()), ErrNothingPending, "a confirmed action cannot be replayed")
}

func TestConfirmWithoutPending(t *testing.T) {
	f := NewFlow(&mockExecutor{}, zerolog.Nop())

	assert.ErrorIs(t, f.Confirm(context.Background()), ErrNothingPending)
}

func TestConfirmFailureReturnsToIdleWithoutRetry(t *testing.T) {
	exec := &mockExecutor{err: errors.New("service unavailable")}
	f := NewFlow(exec, zerolog.Nop())

	require.NoError(t, f.Request(ActionDelete, "c1", "delete?"))
	err := f.Confirm(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateIdle, f.State())
	assert.Len(t, exec.calls, 1, "failures are reported, never retried")
}

func TestEachActionRoutesToItsOperation(t *testing.T) {
	cases := []struct {
		action Action
		op     string
	}{
		{ActionClearChat, "clear"},
		{ActionArchive, "archive"},
		{ActionDelete, "delete"},
		{ActionLeaveGroup, "leave"},
	}
	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			exec := &mockExecutor{}
			f := NewFlow(exec, zerolog.Nop())
			require.NoError(t, f.Request(tc.action, "c1", ""))
			require.NoError(t, f.Confirm(context.Background()))
			assert.Equal(t, []call{{tc.op, "c1"}}, exec.calls)
		})
	}
}
