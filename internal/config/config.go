package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string `yaml:"env" env:"APP_ENV" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	HTTP       HTTP       `yaml:"http"`
	Redis      Redis      `yaml:"redis"`
	Kafka      Kafka      `yaml:"kafka"`
	Listing    Listing    `yaml:"listing"`
	Payment    Payment    `yaml:"payment"`
	Auth       Auth       `yaml:"auth"`
	Storefront Storefront `yaml:"storefront"`
}

type HTTP struct {
	Port               string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"30s"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size" env:"HTTP_MAX_BODY_BYTES" env-default:"1048576"`
}

type Redis struct {
	Addr      string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTL       time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"0s"`
	TTLJitter time.Duration `yaml:"ttl_jitter" env:"REDIS_TTL_JITTER" env-default:"0s"`
}

// Kafka is optional: with no brokers notifications only go to the log.
type Kafka struct {
	Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic          string   `yaml:"topic" env:"KAFKA_NOTIFICATIONS_TOPIC" env-default:"storefront-notifications"`
	ConfirmTopic   string   `yaml:"confirm_topic" env:"KAFKA_CONFIRMATIONS_TOPIC" env-default:"payment-confirmations"`
	ConfirmGroupID string   `yaml:"confirm_group_id" env:"KAFKA_CONFIRMATIONS_GROUP" env-default:"commerce-service-confirmations"`
}

type Breaker struct {
	MaxFailures uint32        `yaml:"max_failures" env:"MAX_FAILURES" env-default:"5"`
	OpenTimeout time.Duration `yaml:"open_timeout" env:"OPEN_TIMEOUT" env-default:"30s"`
}

type Listing struct {
	URL           string        `yaml:"url" env:"LISTING_SERVICE_URL" env-default:"http://localhost:8000"`
	Timeout       time.Duration `yaml:"timeout" env:"LISTING_SERVICE_TIMEOUT" env-default:"5s"`
	RetryAttempts uint          `yaml:"retry_attempts" env:"LISTING_RETRY_ATTEMPTS" env-default:"3"`
	RetryDelay    time.Duration `yaml:"retry_delay" env:"LISTING_RETRY_DELAY" env-default:"100ms"`
	RetryMaxDelay time.Duration `yaml:"retry_max_delay" env:"LISTING_RETRY_MAX_DELAY" env-default:"1s"`
	Breaker       Breaker       `yaml:"breaker" env-prefix:"LISTING_BREAKER_"`
}

type Payment struct {
	URL     string        `yaml:"url" env:"PAYMENT_SERVICE_URL" env-default:"http://localhost:8000"`
	Timeout time.Duration `yaml:"timeout" env:"PAYMENT_SERVICE_TIMEOUT" env-default:"10s"`
	Breaker Breaker       `yaml:"breaker" env-prefix:"PAYMENT_BREAKER_"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

type Storefront struct {
	LocaleMatch     string  `yaml:"locale_match" env:"LOCALE_MATCH" env-default:"region"`
	CartClearPolicy string  `yaml:"cart_clear_policy" env:"CART_CLEAR_POLICY" env-default:"optimistic"`
	CommissionRate  float64 `yaml:"commission_rate" env:"COMMISSION_RATE" env-default:"0.15"`
	// ChargeCommission lifts the promotional override. Off means the
	// platform fee is waived.
	ChargeCommission   bool          `yaml:"charge_commission" env:"COMMISSION_CHARGE"`
	EmptyCartPath      string        `yaml:"empty_cart_path" env:"EMPTY_CART_PATH" env-default:"/cart"`
	ProfileIdleTimeout time.Duration `yaml:"profile_idle_timeout" env:"PROFILE_IDLE_TIMEOUT" env-default:"30m"`
	EvictionInterval   time.Duration `yaml:"eviction_interval" env:"PROFILE_EVICTION_INTERVAL" env-default:"1m"`
	ProfileLoadTimeout time.Duration `yaml:"profile_load_timeout" env:"PROFILE_LOAD_TIMEOUT" env-default:"5s"`
	// PendingCheckoutHold keeps a profile with a payment in progress loaded
	// past the idle timeout so its confirmation can still clear the cart.
	PendingCheckoutHold time.Duration `yaml:"pending_checkout_hold" env:"PENDING_CHECKOUT_HOLD" env-default:"24h"`
}

// Load reads the YAML file named by CONFIG_PATH when it is set, and the
// environment otherwise. Environment variables override file values.
func Load() (*Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env config: %w", err)
	}
	return &cfg, nil
}
