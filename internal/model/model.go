// Package model содержит доменные сущности маркетплейса Flairies.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного пользователя маркетплейса.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// ListingType описывает тип объявления.
type ListingType string

const (
	ListingTypeSell            ListingType = "sell"
	ListingTypeRent            ListingType = "rent"
	ListingTypeSellAccessories ListingType = "sell_accessories"
	ListingTypeDonate          ListingType = "donate"
)

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCOD    PaymentMethod = "cod"
)

// Valid сообщает, является ли значение допустимым способом оплаты.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodOnline || m == PaymentMethodCOD
}

// AllowedMethods описывает способы оплаты, разрешённые для объявления.
type AllowedMethods string

const (
	AllowedMethodsOnline AllowedMethods = "online"
	AllowedMethodsCOD    AllowedMethods = "cod"
	AllowedMethodsBoth   AllowedMethods = "both"
)

// Permits сообщает, допускает ли объявление указанный способ оплаты.
func (a AllowedMethods) Permits(m PaymentMethod) bool {
	switch a {
	case AllowedMethodsBoth:
		return true
	case AllowedMethodsOnline:
		return m == PaymentMethodOnline
	case AllowedMethodsCOD:
		return m == PaymentMethodCOD
	}
	return false
}

// Listing описывает объявление продавца.
type Listing struct {
	ID             int64           `json:"id"`
	SellerID       int64           `json:"seller_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	ListingType    ListingType     `json:"listing_type"`
	Price          decimal.Decimal `json:"price"`
	RentPrice      decimal.Decimal `json:"rent_price"`
	AllowedMethods AllowedMethods  `json:"allowed_payment_methods"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// FulfillmentStatus описывает логистический статус заказа.
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentConfirmed FulfillmentStatus = "confirmed"
	FulfillmentShipped   FulfillmentStatus = "shipped"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentCancelled FulfillmentStatus = "cancelled"
)

// PayoutStatus описывает статус выплаты продавцу по заказу.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// Order описывает сделку между покупателем и продавцом по одному объявлению.
// Комиссия и заработок фиксируются при создании и не пересчитываются,
// даже если платформенные ставки позже меняются.
type Order struct {
	OrderID            string            `json:"order_id"`
	BuyerID            int64             `json:"buyer_id"`
	SellerID           int64             `json:"seller_id"`
	ListingID          int64             `json:"listing_id"`
	ItemPrice          decimal.Decimal   `json:"item_price"`
	CommissionRate     decimal.Decimal   `json:"commission_rate"`
	PlatformCommission decimal.Decimal   `json:"platform_commission"`
	SellerEarnings     decimal.Decimal   `json:"seller_earnings"`
	PaymentMethod      PaymentMethod     `json:"payment_method"`
	PaymentStatus      PaymentStatus     `json:"payment_status"`
	FulfillmentStatus  FulfillmentStatus `json:"fulfillment_status"`
	PayoutStatus       PayoutStatus      `json:"payout_status"`
	GatewayOrderID     string            `json:"gateway_order_id,omitempty"`
	GatewayPaymentID   string            `json:"gateway_payment_id,omitempty"`
	GatewaySignature   string            `json:"-"`
	PayoutRef          string            `json:"payout_ref,omitempty"`
	BuyerName          string            `json:"buyer_name,omitempty"`
	BuyerPhone         string            `json:"buyer_phone,omitempty"`
	DeliveryAddress    string            `json:"delivery_address,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	PaidAt             *time.Time        `json:"paid_at,omitempty"`
	DeliveredAt        *time.Time        `json:"delivered_at,omitempty"`
}

// PayoutEligible сообщает, готов ли заказ к выплате продавцу:
// оплата подтверждена, заказ доставлен, выплата ещё не начата.
func (o *Order) PayoutEligible() bool {
	return o.PaymentStatus == PaymentPaid &&
		o.FulfillmentStatus == FulfillmentDelivered &&
		o.PayoutStatus == PayoutPending
}

// SellerProfile содержит реквизиты продавца и накопительные балансы выплат.
// Инвариант: PendingPayout == TotalEarnings - TotalPaidOut.
type SellerProfile struct {
	UserID            int64           `json:"user_id"`
	Phone             string          `json:"phone,omitempty"`
	AccountHolderName string          `json:"account_holder_name,omitempty"`
	AccountNumber     string          `json:"account_number,omitempty"`
	IFSCCode          string          `json:"ifsc_code,omitempty"`
	UPIID             string          `json:"upi_id,omitempty"`
	TotalEarnings     decimal.Decimal `json:"total_earnings"`
	TotalPaidOut      decimal.Decimal `json:"total_paid_out"`
	PendingPayout     decimal.Decimal `json:"pending_payout"`
	ProviderContactID string          `json:"-"`
	PayoutEnabled     bool            `json:"payout_enabled"`
	PushToken         string          `json:"-"`
}

// HasPayoutMethod сообщает, есть ли у продавца реквизиты для выплаты:
// UPI либо пара номер счёта + IFSC.
func (p *SellerProfile) HasPayoutMethod() bool {
	if p.UPIID != "" {
		return true
	}
	return p.AccountNumber != "" && p.IFSCCode != ""
}

// PlatformSettings содержит платформенные ставки комиссии и ограничения.
// Значения читаются из конфигурации при создании заказа; глобального
// мутируемого состояния нет.
type PlatformSettings struct {
	CommissionRate    decimal.Decimal
	CODCommissionRate decimal.Decimal
	MinOrderValue     decimal.Decimal
}

// RevenueReport содержит сводку выручки за период по оплаченным заказам.
type RevenueReport struct {
	TotalOrders        int64           `json:"total_orders"`
	TotalSales         decimal.Decimal `json:"total_sales"`
	PlatformCommission decimal.Decimal `json:"platform_commission"`
	SellerEarnings     decimal.Decimal `json:"seller_earnings"`
}

// TopSeller описывает строку рейтинга продавцов по заработку.
type TopSeller struct {
	SellerID      int64           `json:"seller_id"`
	Login         string          `json:"login"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	TotalOrders   int64           `json:"total_orders"`
}

// MethodBreakdown содержит разбивку комиссии по способу оплаты.
type MethodBreakdown struct {
	Orders     int64           `json:"orders"`
	Commission decimal.Decimal `json:"commission"`
}

// PendingPayoutRow описывает продавца с заработками, ожидающими выплаты.
type PendingPayoutRow struct {
	SellerID      int64           `json:"seller_id"`
	Login         string          `json:"login"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	OrderCount    int64           `json:"order_count"`
}

// PayoutBatchResult содержит итоги пакетной обработки выплат.
type PayoutBatchResult struct {
	Total     int `json:"total_processed"`
	Succeeded int `json:"successful"`
	Failed    int `json:"failed"`
}
