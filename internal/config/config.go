package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR"        envDefault:":8080"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	MongoURI      string `env:"MONGO_URI"       envDefault:"mongodb://localhost:27017/?replicaSet=rs0"`
	MongoDBName   string `env:"MONGO_DB_NAME"   envDefault:"storefront"`
	CatalogDBPath string `env:"CATALOG_DB_PATH" envDefault:"catalog.db"`

	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`

	// Empty disables the outbox publisher and the order event consumer.
	KafkaBrokers     []string `env:"KAFKA_BROKERS"      envSeparator:","`
	OrderEventsTopic string   `env:"ORDER_EVENTS_TOPIC" envDefault:"order-events"`

	PlacementMode domain.PlacementMode `env:"ORDER_PLACEMENT_MODE" envDefault:"transaction"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"  envDefault:"720h"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DevMode  bool   `env:"DEV_MODE"`
}

// Load reads an optional .env file, then the environment, then the command-line
// flags in args. Later sources win.
func Load(args []string) (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := applyFlags(&cfg, args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

func applyFlags(cfg *Config, args []string) error {
	flags := flag.NewFlagSet("storefront", flag.ContinueOnError)
	flags.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "HTTP listen address in format host:port")
	flags.StringVar(&cfg.MongoURI, "mongo", cfg.MongoURI, "MongoDB connection URI")
	flags.StringVar(&cfg.CatalogDBPath, "catalog", cfg.CatalogDBPath, "Product catalog SQLite path")
	flags.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address")
	brokers := flags.String("kafka", strings.Join(cfg.KafkaBrokers, ","), "Comma separated Kafka brokers")
	mode := flags.String("placement", string(cfg.PlacementMode), "Order placement mode: transaction or two-phase")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flags.BoolVar(&cfg.DevMode, "dev", cfg.DevMode, "Human readable logs")

	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.KafkaBrokers = splitList(*brokers)
	cfg.PlacementMode = domain.PlacementMode(*mode)
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if !c.PlacementMode.Valid() {
		errs = append(errs, fmt.Errorf("unknown ORDER_PLACEMENT_MODE %q", c.PlacementMode))
	}
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is not set"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limit must be positive"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
