package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"lexchat-be/internal/constant"
	"lexchat-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntitlementFixture(t *testing.T) (IEntitlementService, *fakeBackend, *gochannel.GoChannel) {
	t.Helper()
	be := newFakeBackend()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	svc := NewEntitlementService(be, pubSub, noopLogger{})
	return svc, be, pubSub
}

func TestEntitlementDefaultsToNonPremium(t *testing.T) {
	svc, _, _ := newEntitlementFixture(t)

	res := svc.Get("user-1")
	assert.False(t, res.IsPremium)
	assert.False(t, res.Loading)
	assert.False(t, svc.IsPremium("user-1"))
	assert.False(t, svc.IsPremium(""), "anonymous is never premium")
}

func TestEntitlementRefreshReadsBackend(t *testing.T) {
	svc, be, _ := newEntitlementFixture(t)
	ctx := context.Background()

	be.premium["user-1"] = true
	svc.Refresh(ctx, "user-1")

	assert.True(t, svc.IsPremium("user-1"))
	assert.False(t, svc.Get("user-1").Loading)
	assert.False(t, svc.IsPremium("user-2"), "one user's flag does not leak")
}

func TestEntitlementRefreshFailureKeepsLastKnown(t *testing.T) {
	svc, be, _ := newEntitlementFixture(t)
	ctx := context.Background()

	be.premium["user-1"] = true
	svc.Refresh(ctx, "user-1")
	require.True(t, svc.IsPremium("user-1"))

	be.mu.Lock()
	be.premiumErr = errors.New("backend down")
	be.mu.Unlock()
	svc.Refresh(ctx, "user-1")

	assert.True(t, svc.IsPremium("user-1"), "failure keeps last known value")
	assert.False(t, svc.Get("user-1").Loading)
}

func TestEntitlementRefreshTriggeredByPaymentEvent(t *testing.T) {
	svc, be, pubSub := newEntitlementFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	be.premium["user-1"] = true

	payload, err := json.Marshal(dto.PaymentCompletedMessage{
		OrderId: uuid.New(),
		UserId:  "user-1",
	})
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish(constant.TopicPaymentCompleted, message.NewMessage(watermill.NewUUID(), payload)))

	require.Eventually(t, func() bool {
		return svc.IsPremium("user-1")
	}, 2*time.Second, 10*time.Millisecond)
}
