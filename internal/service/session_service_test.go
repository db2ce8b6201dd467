package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"lexchat-be/internal/constant"
	"lexchat-be/internal/dto"
	"lexchat-be/internal/mapper"
	"lexchat-be/pkg/backend"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionFixture(t *testing.T) (*sessionService, *fakeBackend, *gochannel.GoChannel) {
	t.Helper()
	be := newFakeBackend()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	svc := NewSessionService(be, mapper.NewChatMapper(), pubSub, noopLogger{}).(*sessionService)
	return svc, be, pubSub
}

func civilAndTaxSessions() []backend.SessionPayload {
	civilMeta := json.RawMessage(`{"metadata": {"42": {"case_type": "Civil_Law", "score": 0.9}}}`)
	taxMeta := json.RawMessage(`{"metadata": {"7": {"case_type": "Tax_Law", "score": 0.8}}}`)
	return []backend.SessionPayload{
		{
			SessionId: "sess-civil",
			Messages: []backend.MessagePayload{
				{Id: 1, Content: "what is a contract", Role: "user"},
				{Id: 2, Content: "a contract is...", Role: "ai", Metadata: civilMeta},
			},
		},
		{
			SessionId: "sess-tax",
			Messages: []backend.MessagePayload{
				{Id: 3, Content: "vat question", Role: "user"},
				{Id: 4, Content: "vat works like...", Role: "ai", Metadata: taxMeta},
			},
		},
	}
}

func TestSessionRefreshReplacesSnapshot(t *testing.T) {
	svc, be, _ := newSessionFixture(t)
	ctx := context.Background()

	be.sessions = civilAndTaxSessions()
	svc.Refresh(ctx, "user-1")

	res := svc.Sessions("user-1")
	require.Len(t, res.Sessions, 2)
	assert.False(t, res.Loading)
	assert.False(t, res.Stale)
	assert.Equal(t, "what is a contract", res.Sessions[0].Preview)
	assert.Equal(t, []string{"civil_law"}, res.Sessions[0].CaseTypes)

	got, ok := svc.GetByID("user-1", "sess-tax")
	require.True(t, ok)
	assert.Equal(t, "vat question", got.Preview)

	_, ok = svc.GetByID("user-1", "missing")
	assert.False(t, ok)
}

func TestSessionRefreshFailureKeepsPriorSnapshot(t *testing.T) {
	svc, be, _ := newSessionFixture(t)
	ctx := context.Background()

	be.sessions = civilAndTaxSessions()
	svc.Refresh(ctx, "user-1")

	be.mu.Lock()
	be.sessionsErr = errors.New("backend down")
	be.mu.Unlock()
	svc.Refresh(ctx, "user-1")

	res := svc.Sessions("user-1")
	assert.Len(t, res.Sessions, 2, "failed refresh keeps prior data")
	assert.True(t, res.Stale)
	assert.False(t, res.Loading)
}

func TestSessionCaseTypeFiltering(t *testing.T) {
	svc, be, _ := newSessionFixture(t)
	ctx := context.Background()

	be.sessions = civilAndTaxSessions()
	svc.Refresh(ctx, "user-1")

	counts := svc.AvailableCaseTypes("user-1")
	require.Len(t, counts, 2)
	assert.Equal(t, "civil_law", counts[0].Id)
	assert.Equal(t, "Civil Law", counts[0].Name)
	assert.Equal(t, 1, counts[0].Count)

	filtered := svc.FilterByCaseTypes("user-1", []string{"Tax_Law"})
	require.Len(t, filtered, 1)
	assert.Equal(t, "sess-tax", filtered[0].SessionId)

	assert.Len(t, svc.FilterByCaseTypes("user-1", nil), 2, "empty filter returns everything")
	assert.Empty(t, svc.FilterByCaseTypes("user-1", []string{"criminal_law"}))
}

func TestSessionRefreshTriggeredByConversationEvent(t *testing.T) {
	svc, be, pubSub := newSessionFixture(t)
	ctx := context.Background()

	be.sessions = civilAndTaxSessions()
	require.NoError(t, svc.Start(ctx))

	payload, err := json.Marshal(dto.ConversationCreatedMessage{
		ConversationId: uuid.New(),
		UserKey:        "user-1",
	})
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish(constant.TopicConversationCreated, message.NewMessage(watermill.NewUUID(), payload)))

	require.Eventually(t, func() bool {
		return len(svc.Sessions("user-1").Sessions) == 2
	}, 2*time.Second, 10*time.Millisecond)
}
