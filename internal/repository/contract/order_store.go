package contract

import "github.com/google/uuid"

// OrderStore correlates a checkout order id with the identity that started
// it, so the payment webhook can tell whom to mark premium. Orders expire if
// the payment never completes.
type OrderStore interface {
	Put(orderId uuid.UUID, identity string)
	Get(orderId uuid.UUID) (string, bool)
	Delete(orderId uuid.UUID)
}
