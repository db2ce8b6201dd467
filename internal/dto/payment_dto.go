package dto

import "github.com/google/uuid"

// CheckoutRequest starts the one-time premium purchase. Identity comes from
// the bearer token, not the body.
type CheckoutRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"omitempty,max=64"`
	LastName  string `json:"last_name" validate:"omitempty,max=64"`
}

type CheckoutResponse struct {
	OrderId         uuid.UUID `json:"order_id"`
	SnapToken       string    `json:"snap_token"`
	SnapRedirectUrl string    `json:"snap_redirect_url"`
}

type MidtransWebhookRequest struct {
	TransactionStatus string `json:"transaction_status"`
	OrderId           string `json:"order_id"`
	FraudStatus       string `json:"fraud_status"`
	// Signature validation fields
	SignatureKey string `json:"signature_key"`
	StatusCode   string `json:"status_code"`
	GrossAmount  string `json:"gross_amount"`
}
