package groups

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger/pkg/types"
)

// mockGroupService fakes the group half of the data service; unrelated
// operations fail loudly so a test can't wander into them unnoticed.
type mockGroupService struct {
	mu sync.Mutex

	members     map[string][]types.ParticipantInfo
	createErr   error
	addErr      error
	removeErr   error
	renameErr   error
	leaveErr    error
	membersErr  error
	addCalls    int
	createCalls int
	gate        chan struct{}
}

func newMockGroupService() *mockGroupService {
	return &mockGroupService{members: make(map[string][]types.ParticipantInfo)}
}

func (m *mockGroupService) CreateGroup(ctx context.Context, name string, memberIDs []string) (*types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	participants := []types.Participant{{UserID: "u1", Role: types.RoleAdmin}}
	for _, id := range memberIDs {
		participants = append(participants, types.Participant{UserID: id, Role: types.RoleMember})
	}
	return &types.Conversation{ID: "g1", IsGroup: true, Name: name, Participants: participants}, nil
}

func (m *mockGroupService) GroupMembers(ctx context.Context, conversationID string) ([]types.ParticipantInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.membersErr != nil {
		return nil, m.membersErr
	}
	return m.members[conversationID], nil
}

func (m *mockGroupService) AddGroupMembers(ctx context.Context, conversationID string, userIDs []string) error {
	m.mu.Lock()
	m.addCalls++
	gate := m.gate
	err := m.addErr
	if err == nil {
		for _, id := range userIDs {
			m.members[conversationID] = append(m.members[conversationID], types.ParticipantInfo{UserID: id, Role: types.RoleMember})
		}
	}
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (m *mockGroupService) RemoveGroupMember(ctx context.Context, conversationID, userID string) error {
	return m.removeErr
}

func (m *mockGroupService) RenameGroup(ctx context.Context, conversationID, name string) error {
	return m.renameErr
}

func (m *mockGroupService) LeaveGroup(ctx context.Context, conversationID string) error {
	return m.leaveErr
}

func (m *mockGroupService) ListConversations(ctx context.Context) ([]*types.Conversation, error) {
	return nil, errors.New("unexpected call")
}

func (m *mockGroupService) MessageHistory(ctx context.Context, conversationID string) ([]types.Message, error) {
	return nil, errors.New("unexpected call")
}

func (m *mockGroupService) SendMessage(ctx context.Context, req types.SendMessageRequest) (*types.Message, error) {
	return nil, errors.New("unexpected call")
}

func (m *mockGroupService) UploadAttachment(ctx context.Context, up types.AttachmentUpload) (*types.AttachmentMeta, error) {
	return nil, errors.New("unexpected call")
}

func (m *mockGroupService) CompanyUsers(ctx context.Context) ([]types.ParticipantInfo, error) {
	return nil, errors.New("unexpected call")
}

func (m *mockGroupService) StartConversation(ctx context.Context, otherUserID string) (*types.Conversation, error) {
	return nil, errors.New("unexpected call")
}

func (m *mockGroupService) ArchiveConversation(ctx context.Context, conversationID string) error {
	return errors.New("unexpected call")
}

func (m *mockGroupService) DeleteConversation(ctx context.Context, conversationID string) error {
	return errors.New("unexpected call")
}

func (m *mockGroupService) ClearChat(ctx context.Context, conversationID string) error {
	return errors.New("unexpected call")
}

// mockStore records reconciliation calls from the controller.
type mockStore struct {
	mu           sync.Mutex
	upserted     []*types.Conversation
	removed      []string
	renamed      map[string]string
	participants map[string][]types.ParticipantInfo
}

func newMockStore() *mockStore {
	return &mockStore{
		renamed:      make(map[string]string),
		participants: make(map[string][]types.ParticipantInfo),
	}
}

func (m *mockStore) UpsertConversation(conv *types.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, conv)
}

func (m *mockStore) RemoveConversation(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, conversationID)
}

func (m *mockStore) RenameConversation(conversationID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renamed[conversationID] = name
}

func (m *mockStore) ReplaceParticipants(conversationID string, members []types.ParticipantInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants[conversationID] = members
}

func newTestController(svc *mockGroupService, store *mockStore) *Controller {
	return NewController(svc, store, "u1", zerolog.Nop())
}

func TestCreateGroupRequiresMembers(t *testing.T) {
	svc := newMockGroupService()
	c := newTestController(svc, newMockStore())

	_, err := c.CreateGroup(context.Background(), "Team", nil)

	assert.ErrorIs(t, err, ErrNoMembersSelected)
	assert.Zero(t, svc.createCalls, "validation failures never reach the network")
}

func TestCreateGroupRequiresName(t *testing.T) {
	svc := newMockGroupService()
	c := newTestController(svc, newMockStore())

	_, err := c.CreateGroup(context.Background(), "   ", []string{"u2"})

	assert.ErrorIs(t, err, ErrEmptyGroupName)
	assert.Zero(t, svc.createCalls)
}

func TestCreateGroupRegistersConversation(t *testing.T) {
	svc := newMockGroupService()
	store := newMockStore()
	c := newTestController(svc, store)

	conv, err := c.CreateGroup(context.Background(), "  Team  ", []string{"u2", "u3"})

	require.NoError(t, err)
	assert.Equal(t, "Team", conv.Name, "name is trimmed before creation")
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "g1", store.upserted[0].ID)
}

func TestAddMembersEmptyListIsNoOp(t *testing.T) {
	svc := newMockGroupService()
	c := newTestController(svc, newMockStore())

	require.NoError(t, c.AddMembers(context.Background(), "g1", nil))
	assert.Zero(t, svc.addCalls)
}

func TestAddMembersRefreshesFromServer(t *testing.T) {
	svc := newMockGroupService()
	store := newMockStore()
	c := newTestController(svc, store)

	require.NoError(t, c.AddMembers(context.Background(), "g1", []string{"u2", "u3"}))

	members, ok := c.CachedMembers("g1")
	require.True(t, ok)
	assert.Len(t, members, 2)
	assert.Len(t, store.participants["g1"], 2)
	assert.Equal(t, StateStable, c.StateOf("g1"))
}

func TestAddMembersSucceedsWhenRefreshFails(t *testing.T) {
	svc := newMockGroupService()
	svc.membersErr = fmt.Errorf("%w: timeout", types.ErrNetwork)
	c := newTestController(svc, newMockStore())

	err := c.AddMembers(context.Background(), "g1", []string{"u2"})

	assert.NoError(t, err, "the add itself succeeded; refresh failure is non-fatal")
}

func TestConcurrentMutationRejected(t *testing.T) {
	svc := newMockGroupService()
	svc.gate = make(chan struct{})
	c := newTestController(svc, newMockStore())

	done := make(chan error, 1)
	go func() {
		done <- c.AddMembers(context.Background(), "g1", []string{"u2"})
	}()

	require.Eventually(t, func() bool {
		return c.StateOf("g1") == StateAddingMembers
	}, time.Second, 5*time.Millisecond)

	err := c.Rename(context.Background(), "g1", "New Name")
	assert.ErrorIs(t, err, ErrOperationInProgress)

	close(svc.gate)
	require.NoError(t, <-done)
	assert.Equal(t, StateStable, c.StateOf("g1"))
}

func TestMutationsOnDifferentGroupsRunIndependently(t *testing.T) {
	svc := newMockGroupService()
	svc.gate = make(chan struct{})
	c := newTestController(svc, newMockStore())

	done := make(chan error, 1)
	go func() {
		done <- c.AddMembers(context.Background(), "g1", []string{"u2"})
	}()

	require.Eventually(t, func() bool {
		return c.StateOf("g1") == StateAddingMembers
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, c.Rename(context.Background(), "g2", "Other Group"))

	close(svc.gate)
	require.NoError(t, <-done)
}

func TestRemoveMemberUpdatesCache(t *testing.T) {
	svc := newMockGroupService()
	svc.members["g1"] = []types.ParticipantInfo{
		{UserID: "u1", Role: types.RoleAdmin},
		{UserID: "u2", Role: types.RoleMember},
	}
	store := newMockStore()
	c := newTestController(svc, store)

	_, err := c.Members(context.Background(), "g1")
	require.NoError(t, err)

	require.NoError(t, c.RemoveMember(context.Background(), "g1", "u2"))

	members, _ := c.CachedMembers("g1")
	require.Len(t, members, 1)
	assert.Equal(t, "u1", members[0].UserID)
	assert.Len(t, store.participants["g1"], 1)
}

func TestRemoveLastAdminSurfacesServerError(t *testing.T) {
	svc := newMockGroupService()
	svc.removeErr = fmt.Errorf("%w: cannot remove the last admin", types.ErrValidation)
	c := newTestController(svc, newMockStore())

	err := c.RemoveMember(context.Background(), "g1", "u1")

	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, StateStable, c.StateOf("g1"), "gate releases after failure")
}

func TestRenameRejectsBlankName(t *testing.T) {
	svc := newMockGroupService()
	c := newTestController(svc, newMockStore())

	assert.ErrorIs(t, c.Rename(context.Background(), "g1", " \t "), ErrEmptyGroupName)
}

func TestRenameReconcilesStore(t *testing.T) {
	svc := newMockGroupService()
	store := newMockStore()
	c := newTestController(svc, store)

	require.NoError(t, c.Rename(context.Background(), "g1", "  Renamed  "))

	assert.Equal(t, "Renamed", store.renamed["g1"])
}

func TestLeaveDropsConversation(t *testing.T) {
	svc := newMockGroupService()
	svc.members["g1"] = []types.ParticipantInfo{{UserID: "u1", Role: types.RoleMember}}
	store := newMockStore()
	c := newTestController(svc, store)

	_, err := c.Members(context.Background(), "g1")
	require.NoError(t, err)

	require.NoError(t, c.Leave(context.Background(), "g1"))

	assert.Equal(t, []string{"g1"}, store.removed)
	_, ok := c.CachedMembers("g1")
	assert.False(t, ok)
}

func TestLeaveFailureKeepsConversation(t *testing.T) {
	svc := newMockGroupService()
	svc.leaveErr = fmt.Errorf("%w: gone", types.ErrNotFound)
	store := newMockStore()
	c := newTestController(svc, store)

	err := c.Leave(context.Background(), "g1")

	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Empty(t, store.removed)
}
