package config

import (
	"time"

	"github.com/oficio-marketplace/service-quoting/internal/common/config"
	"github.com/oficio-marketplace/service-quoting/internal/domain/pricing"
)

// RoutingConfig holds settings for the external routing (OSRM) provider.
type RoutingConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint64
	CacheTTL   time.Duration
	EpsilonKm  float64
}

// MarketplaceConfig holds settings for the marketplace core backend.
type MarketplaceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PricingConfig holds the default travel fee policy and VAT rate applied when
// a quote does not carry explicit overrides.
type PricingConfig struct {
	DefaultPolicy  pricing.TravelFeePolicy
	VATRatePercent float64
}

// ServiceConfig holds all configuration for the quoting service.
type ServiceConfig struct {
	Port              string
	AppEnv            string
	DBConfig          config.DatabaseConfig
	JWTConfig         config.JWTConfig
	KafkaConfig       config.KafkaConfig
	RoutingConfig     RoutingConfig
	MarketplaceConfig MarketplaceConfig
	PricingConfig     PricingConfig
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("QUOTING")
	if err != nil {
		return nil, err
	}

	v.SetDefault("ROUTING_BASE_URL", "http://localhost:5000")
	v.SetDefault("ROUTING_TIMEOUT", "5s")
	v.SetDefault("ROUTING_MAX_RETRIES", 3)
	v.SetDefault("ROUTING_CACHE_TTL", "10m")
	v.SetDefault("ROUTING_EPSILON_KM", 0.05)
	v.SetDefault("MARKETPLACE_BASE_URL", "http://localhost:8080")
	v.SetDefault("MARKETPLACE_TIMEOUT", "10s")
	v.SetDefault("FREE_RADIUS_KM", 5.0)
	v.SetDefault("PER_KM_RATE_CLP", 500)
	v.SetDefault("MIN_TRAVEL_FEE_CLP", 1000)
	v.SetDefault("MAX_TRAVEL_FEE_CLP", 50000)
	v.SetDefault("VAT_RATE_PERCENT", 19.0)

	return &ServiceConfig{
		Port:        config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:      config.GetAppEnv(v),
		DBConfig:    config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:   config.LoadJWTConfig(v),
		KafkaConfig: config.LoadKafkaConfig(v),
		RoutingConfig: RoutingConfig{
			BaseURL:    v.GetString("ROUTING_BASE_URL"),
			Timeout:    v.GetDuration("ROUTING_TIMEOUT"),
			MaxRetries: v.GetUint64("ROUTING_MAX_RETRIES"),
			CacheTTL:   v.GetDuration("ROUTING_CACHE_TTL"),
			EpsilonKm:  v.GetFloat64("ROUTING_EPSILON_KM"),
		},
		MarketplaceConfig: MarketplaceConfig{
			BaseURL: v.GetString("MARKETPLACE_BASE_URL"),
			Timeout: v.GetDuration("MARKETPLACE_TIMEOUT"),
		},
		PricingConfig: PricingConfig{
			DefaultPolicy: pricing.TravelFeePolicy{
				FreeRadiusKm: v.GetFloat64("FREE_RADIUS_KM"),
				PerKmRateClp: v.GetInt64("PER_KM_RATE_CLP"),
				MinFeeClp:    v.GetInt64("MIN_TRAVEL_FEE_CLP"),
				MaxFeeClp:    v.GetInt64("MAX_TRAVEL_FEE_CLP"),
			},
			VATRatePercent: v.GetFloat64("VAT_RATE_PERCENT"),
		},
	}, nil
}
