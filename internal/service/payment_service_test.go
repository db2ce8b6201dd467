package service

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"testing"

	"lexchat-be/internal/config"
	"lexchat-be/internal/constant"
	"lexchat-be/internal/dto"
	"lexchat-be/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerKey = "test-server-key"

func newPaymentFixture(t *testing.T) (IPaymentService, *fakeBackend, *memory.OrderStore, *fakePublisher) {
	t.Helper()
	be := newFakeBackend()
	orders := memory.NewOrderStore()
	bus := newFakePublisher()
	cfg := &config.Config{}
	cfg.Payment.MidtransServerKey = testServerKey
	svc := NewPaymentService(be, orders, bus, nil, cfg, noopLogger{})
	return svc, be, orders, bus
}

func signedWebhook(orderId uuid.UUID, status string) *dto.MidtransWebhookRequest {
	req := &dto.MidtransWebhookRequest{
		TransactionStatus: status,
		OrderId:           orderId.String(),
		StatusCode:        "200",
		GrossAmount:       "75000.00",
	}
	input := req.OrderId + req.StatusCode + req.GrossAmount + testServerKey
	req.SignatureKey = fmt.Sprintf("%x", sha512.Sum512([]byte(input)))
	return req
}

func TestWebhookSettlementActivatesPremium(t *testing.T) {
	svc, be, orders, bus := newPaymentFixture(t)
	ctx := context.Background()

	orderId := uuid.New()
	orders.Put(orderId, "user-1")

	require.NoError(t, svc.HandleNotification(ctx, signedWebhook(orderId, "settlement")))

	assert.Equal(t, []string{"user-1"}, be.premiumGrants)
	_, ok := orders.Get(orderId)
	assert.False(t, ok, "settled order is cleared")

	published := bus.published(constant.TopicPaymentCompleted)
	require.Len(t, published, 1)
	var msg dto.PaymentCompletedMessage
	require.NoError(t, json.Unmarshal(published[0], &msg))
	assert.Equal(t, "user-1", msg.UserId)
	assert.Equal(t, orderId, msg.OrderId)
}

func TestWebhookBadSignatureRejected(t *testing.T) {
	svc, be, orders, bus := newPaymentFixture(t)
	ctx := context.Background()

	orderId := uuid.New()
	orders.Put(orderId, "user-1")

	req := signedWebhook(orderId, "settlement")
	req.SignatureKey = "forged"

	require.Error(t, svc.HandleNotification(ctx, req))
	assert.Empty(t, be.premiumGrants)
	assert.Empty(t, bus.published(constant.TopicPaymentCompleted))
}

func TestWebhookPendingIgnored(t *testing.T) {
	svc, be, orders, _ := newPaymentFixture(t)
	ctx := context.Background()

	orderId := uuid.New()
	orders.Put(orderId, "user-1")

	require.NoError(t, svc.HandleNotification(ctx, signedWebhook(orderId, "pending")))
	assert.Empty(t, be.premiumGrants)
	_, ok := orders.Get(orderId)
	assert.True(t, ok, "pending keeps the order for the next notification")
}

func TestWebhookExpireClearsOrder(t *testing.T) {
	svc, be, orders, _ := newPaymentFixture(t)
	ctx := context.Background()

	orderId := uuid.New()
	orders.Put(orderId, "user-1")

	require.NoError(t, svc.HandleNotification(ctx, signedWebhook(orderId, "expire")))
	assert.Empty(t, be.premiumGrants)
	_, ok := orders.Get(orderId)
	assert.False(t, ok)
}

func TestWebhookUnknownOrderRejected(t *testing.T) {
	svc, be, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	require.Error(t, svc.HandleNotification(ctx, signedWebhook(uuid.New(), "settlement")))
	assert.Empty(t, be.premiumGrants)
}
