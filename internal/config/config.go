// Package config содержит логику чтения конфигурации сервиса Flairies.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/Maithiliii/Flairies/internal/model"
)

// Config содержит параметры конфигурации сервиса Flairies.
type Config struct {
	RunAddress            string        `env:"RUN_ADDRESS"`
	DatabaseURI           string        `env:"DATABASE_URI"`
	PayoutProviderAddress string        `env:"PAYOUT_PROVIDER_ADDRESS"`
	PayoutKeyID           string        `env:"PAYOUT_KEY_ID"`
	PayoutKeySecret       string        `env:"PAYOUT_KEY_SECRET"`
	PushGatewayAddress    string        `env:"PUSH_GATEWAY_ADDRESS"`
	AuthSecret            string        `env:"AUTH_SECRET"`
	AdminToken            string        `env:"ADMIN_TOKEN"`
	CommissionRate        string        `env:"COMMISSION_RATE"`
	CODCommissionRate     string        `env:"COD_COMMISSION_RATE"`
	MinOrderValue         string        `env:"MIN_ORDER_VALUE"`
	PayoutInterval        time.Duration `env:"PAYOUT_INTERVAL"`

	// Settings — разобранные платформенные ставки; заполняется в Parse.
	Settings model.PlatformSettings
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения. Значения окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envProviderAddress := cfg.PayoutProviderAddress
	envPushAddress := cfg.PushGatewayAddress
	envCommissionRate := cfg.CommissionRate
	envCODRate := cfg.CODCommissionRate
	envMinOrderValue := cfg.MinOrderValue
	envPayoutInterval := cfg.PayoutInterval

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.PayoutProviderAddress, "p", "", "payout provider address")
	flag.StringVar(&cfg.PushGatewayAddress, "n", "", "push notification gateway address")
	flag.StringVar(&cfg.CommissionRate, "commission", "15", "commission rate for online payments, percent")
	flag.StringVar(&cfg.CODCommissionRate, "cod-commission", "0", "commission rate for cash on delivery, percent")
	flag.StringVar(&cfg.MinOrderValue, "min-order", "0", "minimum order value")
	flag.DurationVar(&cfg.PayoutInterval, "payout-interval", time.Minute, "interval between payout batches")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envProviderAddress != "" {
		cfg.PayoutProviderAddress = envProviderAddress
	}
	if envPushAddress != "" {
		cfg.PushGatewayAddress = envPushAddress
	}
	if envCommissionRate != "" {
		cfg.CommissionRate = envCommissionRate
	}
	if envCODRate != "" {
		cfg.CODCommissionRate = envCODRate
	}
	if envMinOrderValue != "" {
		cfg.MinOrderValue = envMinOrderValue
	}
	if envPayoutInterval != 0 {
		cfg.PayoutInterval = envPayoutInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	var err error
	if cfg.Settings.CommissionRate, err = decimal.NewFromString(cfg.CommissionRate); err != nil {
		return nil, fmt.Errorf("parse commission rate: %w", err)
	}
	if cfg.Settings.CODCommissionRate, err = decimal.NewFromString(cfg.CODCommissionRate); err != nil {
		return nil, fmt.Errorf("parse cod commission rate: %w", err)
	}
	if cfg.Settings.MinOrderValue, err = decimal.NewFromString(cfg.MinOrderValue); err != nil {
		return nil, fmt.Errorf("parse min order value: %w", err)
	}

	return cfg, nil
}
