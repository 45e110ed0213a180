package model

import "errors"

// ErrInvalidTransition возвращается при попытке перевести заказ по
// недопустимому ребру графа состояний. Запрещённый переход не должен
// изменять ни одно поле заказа.
var ErrInvalidTransition = errors.New("invalid status transition")

var paymentEdges = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentPaid:    {PaymentRefunded},
	// failed и refunded — терминальные.
}

var fulfillmentEdges = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentPending:   {FulfillmentConfirmed, FulfillmentCancelled},
	FulfillmentConfirmed: {FulfillmentShipped, FulfillmentCancelled},
	FulfillmentShipped:   {FulfillmentDelivered, FulfillmentCancelled},
	// delivered и cancelled — терминальные.
}

var payoutEdges = map[PayoutStatus][]PayoutStatus{
	PayoutPending:    {PayoutProcessing},
	PayoutProcessing: {PayoutCompleted, PayoutFailed},
	// failed допускает повторную попытку через возврат в pending.
	PayoutFailed: {PayoutPending},
}

// ValidatePaymentTransition проверяет допустимость перехода статуса оплаты.
func ValidatePaymentTransition(from, to PaymentStatus) error {
	for _, next := range paymentEdges[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// ValidateFulfillmentTransition проверяет допустимость перехода
// логистического статуса.
func ValidateFulfillmentTransition(from, to FulfillmentStatus) error {
	for _, next := range fulfillmentEdges[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

// ValidatePayoutTransition проверяет допустимость перехода статуса выплаты.
// Переходы из pending дополнительно ограничены готовностью заказа:
// см. Order.PayoutEligible.
func ValidatePayoutTransition(from, to PayoutStatus) error {
	for _, next := range payoutEdges[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}
