// Package ledger содержит расчёт разделения цены заказа между платформой
// и продавцом.
package ledger

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Maithiliii/Flairies/internal/model"
)

// ErrInvalidPrice возвращается для неположительной цены заказа.
var (
	ErrInvalidPrice = errors.New("item price must be positive")
	// ErrInvalidRate возвращается для ставки комиссии вне диапазона [0, 100].
	ErrInvalidRate = errors.New("commission rate must be in [0, 100]")
	// ErrInvalidMethod возвращается для неизвестного способа оплаты.
	ErrInvalidMethod = errors.New("unknown payment method")
)

var hundred = decimal.NewFromInt(100)

// Split содержит результат расчёта: применённую ставку, комиссию платформы
// и заработок продавца. Всегда Commission + Earnings == цена заказа.
type Split struct {
	Rate       decimal.Decimal
	Commission decimal.Decimal
	Earnings   decimal.Decimal
}

// ComputeSplit вычисляет комиссию платформы и заработок продавца для цены
// заказа и способа оплаты. Комиссия округляется до двух знаков
// (половина — вверх), заработок выводится вычитанием из цены, чтобы сумма
// сходилась точно. Расчёт выполняется ровно один раз при создании заказа,
// результат сохраняется и далее не пересчитывается.
func ComputeSplit(itemPrice decimal.Decimal, method model.PaymentMethod, settings model.PlatformSettings) (Split, error) {
	if !itemPrice.IsPositive() {
		return Split{}, ErrInvalidPrice
	}

	var rate decimal.Decimal
	switch method {
	case model.PaymentMethodCOD:
		rate = settings.CODCommissionRate
	case model.PaymentMethodOnline:
		rate = settings.CommissionRate
	default:
		return Split{}, ErrInvalidMethod
	}

	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return Split{}, ErrInvalidRate
	}

	commission := itemPrice.Mul(rate).Div(hundred).Round(2)
	earnings := itemPrice.Sub(commission)

	return Split{
		Rate:       rate,
		Commission: commission,
		Earnings:   earnings,
	}, nil
}
