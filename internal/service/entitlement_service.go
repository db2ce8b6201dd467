package service

import (
	"context"
	"encoding/json"
	"time"

	"lexchat-be/internal/constant"
	"lexchat-be/internal/dto"
	"lexchat-be/internal/entity"
	"lexchat-be/internal/pkg/logger"
	"lexchat-be/pkg/backend"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/patrickmn/go-cache"
)

// IEntitlementService mirrors each user's premium flag. The account backend
// is the source of truth; this cache answers reads without a remote call and
// is refreshed when a payment settles.
type IEntitlementService interface {
	// Get returns the cached entitlement, defaulting to non-premium for
	// users never seen before.
	Get(userId string) *dto.EntitlementResponse

	// IsPremium is the bare flag, for call sites that only gate features.
	IsPremium(userId string) bool

	// Refresh re-reads the flag from the backend. A failed fetch keeps the
	// last known value and clears the loading marker.
	Refresh(ctx context.Context, userId string)

	// Start subscribes to payment-completed events on the in-process bus.
	Start(ctx context.Context) error
}

type entitlementService struct {
	backend backend.Client
	pubSub  *gochannel.GoChannel
	cache   *cache.Cache
	logger  logger.ILogger
}

func NewEntitlementService(client backend.Client, pubSub *gochannel.GoChannel, log logger.ILogger) IEntitlementService {
	return &entitlementService{
		backend: client,
		pubSub:  pubSub,
		cache:   cache.New(time.Hour, 10*time.Minute),
		logger:  log,
	}
}

func (s *entitlementService) snapshot(userId string) entity.Entitlement {
	if v, ok := s.cache.Get(userId); ok {
		return v.(entity.Entitlement)
	}
	return entity.Entitlement{}
}

func (s *entitlementService) Get(userId string) *dto.EntitlementResponse {
	if userId == "" {
		return &dto.EntitlementResponse{}
	}
	ent := s.snapshot(userId)
	return &dto.EntitlementResponse{
		IsPremium: ent.IsPremium,
		Loading:   ent.Loading,
	}
}

func (s *entitlementService) IsPremium(userId string) bool {
	if userId == "" {
		return false
	}
	return s.snapshot(userId).IsPremium
}

func (s *entitlementService) Refresh(ctx context.Context, userId string) {
	if userId == "" {
		return
	}

	current := s.snapshot(userId)
	current.Loading = true
	s.cache.Set(userId, current, cache.DefaultExpiration)

	isPremium, err := s.backend.FetchPremium(ctx, userId)
	if err != nil {
		s.logger.Warn("EntitlementService", "Premium fetch failed, keeping last known value", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		current.Loading = false
		s.cache.Set(userId, current, cache.DefaultExpiration)
		return
	}

	s.cache.Set(userId, entity.Entitlement{
		IsPremium: isPremium,
		Loading:   false,
		FetchedAt: time.Now(),
	}, cache.DefaultExpiration)
}

func (s *entitlementService) Start(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, constant.TopicPaymentCompleted)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.handlePaymentCompleted(ctx, msg)
		}
	}()

	return nil
}

func (s *entitlementService) handlePaymentCompleted(ctx context.Context, msg *message.Message) {
	var payload dto.PaymentCompletedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error("EntitlementService", "Failed to unmarshal payment event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // invalid payloads never become valid, don't retry
		return
	}

	s.logger.Info("EntitlementService", "Refreshing entitlement after payment", map[string]interface{}{
		"user_id":  payload.UserId,
		"order_id": payload.OrderId.String(),
	})
	s.Refresh(ctx, payload.UserId)
	msg.Ack()
}
