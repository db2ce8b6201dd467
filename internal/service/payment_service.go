package service

import (
	"context"
	"crypto/sha512"
	"encoding/json"
	"fmt"

	"lexchat-be/internal/config"
	"lexchat-be/internal/constant"
	"lexchat-be/internal/dto"
	"lexchat-be/internal/pkg/logger"
	"lexchat-be/internal/repository/contract"
	"lexchat-be/pkg/backend"
	"lexchat-be/pkg/events"
	pktNats "lexchat-be/pkg/nats"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// IPaymentService handles the one-time premium purchase. There is no local
// payment ledger: the order store only correlates the webhook back to the
// buyer, and the premium flag itself lives on the account backend.
type IPaymentService interface {
	CreateCheckout(ctx context.Context, userId string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error
}

type paymentService struct {
	backend        backend.Client
	orders         contract.OrderStore
	publisher      IPublisherService
	eventPublisher *pktNats.Publisher
	cfg            *config.Config
	logger         logger.ILogger
}

func NewPaymentService(
	client backend.Client,
	orders contract.OrderStore,
	publisher IPublisherService,
	eventPublisher *pktNats.Publisher,
	cfg *config.Config,
	log logger.ILogger,
) IPaymentService {
	return &paymentService{
		backend:        client,
		orders:         orders,
		publisher:      publisher,
		eventPublisher: eventPublisher,
		cfg:            cfg,
		logger:         log,
	}
}

func (s *paymentService) CreateCheckout(ctx context.Context, userId string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	orderId := uuid.New()
	s.orders.Put(orderId, userId)

	var sClient snap.Client
	env := midtrans.Sandbox
	if s.cfg.App.Environment == "production" {
		env = midtrans.Production
	}
	sClient.New(s.cfg.Payment.MidtransServerKey, env)

	finishRedirectURL := fmt.Sprintf("%s/chat?payment=success", s.cfg.App.ClientURL)
	amount := s.cfg.Payment.PremiumPriceIDR

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderId.String(),
			GrossAmt: amount,
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Callbacks: &snap.Callbacks{
			Finish: finishRedirectURL,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.FirstName,
			LName: req.LastName,
			Email: req.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    "premium-lifetime",
				Price: amount,
				Qty:   1,
				Name:  "LexChat Premium",
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}

	snapResp, midErr := sClient.CreateTransaction(snapReq)
	if midErr != nil {
		s.orders.Delete(orderId)
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}

	s.logger.Info("PaymentService", "Checkout created", map[string]interface{}{
		"order_id": orderId.String(),
		"user_id":  userId,
	})

	return &dto.CheckoutResponse{
		OrderId:         orderId,
		SnapToken:       snapResp.Token,
		SnapRedirectUrl: snapResp.RedirectURL,
	}, nil
}

func (s *paymentService) HandleNotification(ctx context.Context, req *dto.MidtransWebhookRequest) error {
	serverKey := s.cfg.Payment.MidtransServerKey
	if serverKey == "" {
		s.logger.Error("PaymentService", "MIDTRANS_SERVER_KEY not configured", nil)
		return fmt.Errorf("server configuration error")
	}

	// Midtrans signature = SHA512(order_id + status_code + gross_amount + server_key)
	signatureInput := req.OrderId + req.StatusCode + req.GrossAmount + serverKey
	expectedSignature := fmt.Sprintf("%x", sha512.Sum512([]byte(signatureInput)))

	if req.SignatureKey != expectedSignature {
		s.logger.Warn("PaymentService", "Webhook signature mismatch", map[string]interface{}{
			"order_id": req.OrderId,
		})
		return fmt.Errorf("invalid signature")
	}

	orderId, err := uuid.Parse(req.OrderId)
	if err != nil {
		s.logger.Warn("PaymentService", "Invalid order_id format", map[string]interface{}{
			"order_id": req.OrderId,
		})
		return fmt.Errorf("invalid order id format")
	}

	userId, ok := s.orders.Get(orderId)
	if !ok {
		s.logger.Warn("PaymentService", "Webhook for unknown or expired order", map[string]interface{}{
			"order_id": req.OrderId,
		})
		return fmt.Errorf("order not found")
	}

	switch req.TransactionStatus {
	case "capture":
		if req.FraudStatus != "accept" {
			s.logger.Warn("PaymentService", "Capture held by fraud check", map[string]interface{}{
				"order_id":     req.OrderId,
				"fraud_status": req.FraudStatus,
			})
			return nil
		}
		return s.completePayment(ctx, orderId, userId)
	case "settlement":
		return s.completePayment(ctx, orderId, userId)
	case "deny", "cancel", "expire":
		s.logger.Info("PaymentService", "Payment did not complete", map[string]interface{}{
			"order_id": req.OrderId,
			"status":   req.TransactionStatus,
		})
		s.orders.Delete(orderId)
		return nil
	default:
		// pending and anything unrecognized: wait for the next notification
		return nil
	}
}

func (s *paymentService) completePayment(ctx context.Context, orderId uuid.UUID, userId string) error {
	if err := s.backend.MakeUserPremium(ctx, userId); err != nil {
		s.logger.Error("PaymentService", "Failed to mark user premium", map[string]interface{}{
			"order_id": orderId.String(),
			"user_id":  userId,
			"error":    err.Error(),
		})
		// Order kept: midtrans retries the notification.
		return err
	}

	s.orders.Delete(orderId)

	payload, err := json.Marshal(dto.PaymentCompletedMessage{
		OrderId: orderId,
		UserId:  userId,
	})
	if err == nil {
		if err := s.publisher.Publish(ctx, constant.TopicPaymentCompleted, payload); err != nil {
			s.logger.Warn("PaymentService", "Failed to publish payment event", map[string]interface{}{"error": err.Error()})
		}
	}

	if s.eventPublisher != nil {
		evt := events.NewPaymentCompleted(orderId.String(), userId)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("PaymentService", "Failed to publish PAYMENT_COMPLETED to NATS", map[string]interface{}{"error": err.Error()})
		}
	}

	s.logger.Info("PaymentService", "Premium activated", map[string]interface{}{
		"order_id": orderId.String(),
		"user_id":  userId,
	})
	return nil
}
