package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvTest = "test"

var ErrMissingGatewaySecret = errors.New("RAZORPAY_KEY_SECRET and RAZORPAY_KEY_ID must be set outside the test environment")

type Config struct {
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	HTTPPort           string        `mapstructure:"http_port"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestBodySize int64         `mapstructure:"max_request_body_size"`
	AdminToken         string        `mapstructure:"admin_token"`
	PingMessage        string        `mapstructure:"ping_message"`

	RazorpayKeyID     string        `mapstructure:"razorpay_key_id"`
	RazorpayKeySecret string        `mapstructure:"razorpay_key_secret"`
	RazorpayBaseURL   string        `mapstructure:"razorpay_base_url"`
	GatewayTimeout    time.Duration `mapstructure:"gateway_timeout"`
	Currency          string        `mapstructure:"currency"`
	MerchantName      string        `mapstructure:"merchant_name"`

	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDBName string `mapstructure:"mongo_db_name"`

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	CartTTL       time.Duration `mapstructure:"cart_ttl"`

	DBHost     string `mapstructure:"db_host"`
	DBPort     int    `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	// MigrationsPath overrides the embedded checkout migrations when set.
	MigrationsPath string `mapstructure:"migrations_path"`

	CatalogPath string `mapstructure:"catalog_path"`

	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	OrderTopic   string   `mapstructure:"order_topic"`

	RecoveryAge time.Duration `mapstructure:"recovery_age"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_port", "8080")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("max_request_body_size", 1<<20) // 1MB
	v.SetDefault("admin_token", "")
	v.SetDefault("ping_message", "ping")
	v.SetDefault("razorpay_key_id", "")
	v.SetDefault("razorpay_key_secret", "")
	v.SetDefault("razorpay_base_url", "https://api.razorpay.com/v1")
	v.SetDefault("gateway_timeout", 10*time.Second)
	v.SetDefault("currency", "INR")
	v.SetDefault("merchant_name", "ElectroMart")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "electromart")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("cart_ttl", 24*time.Hour)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "electromart")
	v.SetDefault("migrations_path", "")
	v.SetDefault("catalog_path", "./catalog.db")
	v.SetDefault("kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("order_topic", "order-events")
	v.SetDefault("recovery_age", 30*time.Second)
}

// Load reads defaults, then the optional YAML file named by STOREFRONT_CONFIG, then the environment.
// Environment keys are the upper-cased field keys (HTTP_PORT, RAZORPAY_KEY_SECRET, ...).
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for tools that never talk to the gateway.
func Read() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := v.GetString("storefront_config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Validate refuses gateway credentials that were never configured. The test environment
// gets fixed placeholder credentials instead.
func (c *Config) Validate() error {
	if c.RazorpayKeySecret == "" || c.RazorpayKeyID == "" {
		if c.Env != EnvTest {
			return ErrMissingGatewaySecret
		}
		c.RazorpayKeyID = "rzp_test_placeholder"
		c.RazorpayKeySecret = "test_secret"
	}
	if c.Currency == "" {
		return errors.New("currency must not be empty")
	}
	return nil
}

func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}
