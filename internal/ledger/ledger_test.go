package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maithiliii/Flairies/internal/model"
)

func settings(online, cod string) model.PlatformSettings {
	return model.PlatformSettings{
		CommissionRate:    decimal.RequireFromString(online),
		CODCommissionRate: decimal.RequireFromString(cod),
	}
}

func TestComputeSplit(t *testing.T) {
	tests := []struct {
		name           string
		price          string
		method         model.PaymentMethod
		online         string
		cod            string
		wantCommission string
		wantEarnings   string
	}{
		{
			name:           "online 15 percent",
			price:          "1000",
			method:         model.PaymentMethodOnline,
			online:         "15",
			cod:            "0",
			wantCommission: "150.00",
			wantEarnings:   "850.00",
		},
		{
			name:           "cod zero rate",
			price:          "1000",
			method:         model.PaymentMethodCOD,
			online:         "15",
			cod:            "0",
			wantCommission: "0.00",
			wantEarnings:   "1000.00",
		},
		{
			name:           "cod nonzero rate",
			price:          "500",
			method:         model.PaymentMethodCOD,
			online:         "15",
			cod:            "5",
			wantCommission: "25.00",
			wantEarnings:   "475.00",
		},
		{
			name:           "rounding half up",
			price:          "999.99",
			method:         model.PaymentMethodOnline,
			online:         "12.5",
			cod:            "0",
			wantCommission: "125.00",
			wantEarnings:   "874.99",
		},
		{
			name:           "full rate leaves zero earnings",
			price:          "10",
			method:         model.PaymentMethodOnline,
			online:         "100",
			cod:            "0",
			wantCommission: "10.00",
			wantEarnings:   "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := decimal.RequireFromString(tt.price)

			split, err := ComputeSplit(price, tt.method, settings(tt.online, tt.cod))
			require.NoError(t, err)

			assert.True(t, split.Commission.Equal(decimal.RequireFromString(tt.wantCommission)),
				"commission = %s", split.Commission)
			assert.True(t, split.Earnings.Equal(decimal.RequireFromString(tt.wantEarnings)),
				"earnings = %s", split.Earnings)
			assert.True(t, split.Commission.Add(split.Earnings).Equal(price),
				"commission + earnings = %s, price = %s", split.Commission.Add(split.Earnings), price)
		})
	}
}

func TestComputeSplit_SumAlwaysEqualsPrice(t *testing.T) {
	prices := []string{"0.01", "1", "19.99", "333.33", "1000", "99999.99"}
	rates := []string{"0", "0.5", "7", "10", "12.5", "15", "33.33", "50", "99.99", "100"}

	for _, p := range prices {
		for _, r := range rates {
			price := decimal.RequireFromString(p)

			split, err := ComputeSplit(price, model.PaymentMethodOnline, settings(r, "0"))
			require.NoError(t, err)

			if !split.Commission.Add(split.Earnings).Equal(price) {
				t.Fatalf("price %s rate %s: commission %s + earnings %s != price",
					p, r, split.Commission, split.Earnings)
			}
		}
	}
}

func TestComputeSplit_Errors(t *testing.T) {
	s := settings("15", "0")

	_, err := ComputeSplit(decimal.Zero, model.PaymentMethodOnline, s)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = ComputeSplit(decimal.NewFromInt(-10), model.PaymentMethodOnline, s)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = ComputeSplit(decimal.NewFromInt(100), model.PaymentMethod("card"), s)
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = ComputeSplit(decimal.NewFromInt(100), model.PaymentMethodOnline, settings("101", "0"))
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = ComputeSplit(decimal.NewFromInt(100), model.PaymentMethodOnline, settings("-1", "0"))
	assert.ErrorIs(t, err, ErrInvalidRate)
}
