package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port     string `envconfig:"PORT"      default:":5000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	AppEnv   string `envconfig:"APP_ENV"   default:"development"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"mongo"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	MongoURI      string `envconfig:"MONGO_URI"      default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"ecommerce"`

	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	JWTExpire   time.Duration `envconfig:"JWT_EXPIRE" default:"720h"`
	CORSOrigins []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	TaxRate               float64 `envconfig:"TAX_RATE"                default:"0.1"`
	FreeShippingThreshold float64 `envconfig:"FREE_SHIPPING_THRESHOLD" default:"100"`
	FlatShippingPrice     float64 `envconfig:"FLAT_SHIPPING_PRICE"     default:"10"`
	VerifyOrderTotals     bool    `envconfig:"VERIFY_ORDER_TOTALS"     default:"false"`

	PaymentDelay       time.Duration `envconfig:"PAYMENT_DELAY"        default:"3s"`
	PaymentSuccessRate float64       `envconfig:"PAYMENT_SUCCESS_RATE" default:"0.9"`
	PaymentTimeout     time.Duration `envconfig:"PAYMENT_TIMEOUT"      default:"30s"`

	AdminName     string `envconfig:"ADMIN_NAME" default:"Admin"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	OTELExporterOTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELExporterOTLPInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	OTELServiceName          string `envconfig:"OTEL_SERVICE_NAME"           default:"storefront"`
	OTELServiceVersion       string `envconfig:"OTEL_SERVICE_VERSION"        default:"1.0.0"`
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Validate checks combinations envconfig tags cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StorageDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.PaymentSuccessRate < 0 || c.PaymentSuccessRate > 1 {
		return fmt.Errorf("PAYMENT_SUCCESS_RATE must be between 0 and 1, got %v", c.PaymentSuccessRate)
	}
	if c.TaxRate < 0 {
		return errors.New("TAX_RATE cannot be negative")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration from environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return &cfg, nil
}

var (
	config *Config
	once   sync.Once
)

func LoadConfig(logger *logrus.Logger) *Config {
	once.Do(func() {
		cfg, err := Load()
		if err != nil {
			logger.Fatalf("Failed to load configuration: %v", err)
		}
		config = cfg
		logger.Infof("Configuration loaded: Port=%s, LogLevel=%s, StorageDriver=%s, AppEnv=%s",
			cfg.Port, cfg.LogLevel, cfg.StorageDriver, cfg.AppEnv)
		if cfg.OTELExporterOTLPEndpoint == "" {
			logger.Info("Configuration loaded: metrics exporter disabled")
		}
	})
	return config
}
