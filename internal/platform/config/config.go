package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	id "arisan/pkg/domain"
)

// Params are the protocol parameters. They are configuration, not literals:
// every bound check reads them from here.
type Params struct {
	MinMembers            int
	MaxMembers            int
	MaxUjrahBps           uint32
	MinVouchWeight        uint32
	MaxVouchWeight        uint32
	VerificationThreshold uint64
}

// DefaultParams returns the protocol defaults.
func DefaultParams() Params {
	return Params{
		MinMembers:            4,
		MaxMembers:            50,
		MaxUjrahBps:           500,
		MinVouchWeight:        1,
		MaxVouchWeight:        10,
		VerificationThreshold: 50,
	}
}

// Validate rejects parameter sets the engine cannot run with.
func (p Params) Validate() error {
	switch {
	case p.MinMembers < 2:
		return errors.New("min members must be at least 2")
	case p.MinMembers > p.MaxMembers:
		return errors.New("min members must not exceed max members")
	case p.MaxUjrahBps > 10000:
		return errors.New("max ujrah must not exceed 10000 bps")
	case p.MinVouchWeight < 1:
		return errors.New("min vouch weight must be at least 1")
	case p.MinVouchWeight > p.MaxVouchWeight:
		return errors.New("min vouch weight must not exceed max vouch weight")
	}
	return nil
}

// RedisConfig configures the optional Redis vouch store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox relay. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	RelayInterval time.Duration
	RelayBatch    int
}

// RateLimitConfig sets the sliding window limits. A zero limit disables
// its class.
type RateLimitConfig struct {
	Enabled        bool
	ReadPerMinute  int
	WritePerMinute int
	FaucetPerHour  int
}

// Server captures process level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	Environment   string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	Owner           id.Address
	Treasury        id.Address
	RegistryAddress id.Address
	DeploymentFee   uint64
	FaucetEnabled   bool
	FaucetAmount    uint64

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig

	Params Params
}

// UsePostgres reports whether the service runs on Postgres instead of memory.
func (c Server) UsePostgres() bool { return c.DatabaseURL != "" }

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []error
	env := envReader{errs: &errs}

	cfg := Server{
		Addr:          env.str("ARISAN_ADDR", ":8080"),
		LogLevel:      env.str("ARISAN_LOG_LEVEL", "info"),
		Environment:   env.str("ARISAN_ENV", "development"),
		JWTSigningKey: env.str("JWT_SIGNING_KEY", devSigningKey),
		JWTIssuer:     env.str("JWT_ISSUER", "arisan"),
		JWTAudience:   env.str("JWT_AUDIENCE", "arisan-api"),

		Owner:           env.address("ARISAN_OWNER", "owner"),
		Treasury:        env.address("ARISAN_TREASURY", "treasury"),
		RegistryAddress: env.address("ARISAN_REGISTRY_ADDRESS", "registry"),
		DeploymentFee:   env.uint("ARISAN_DEPLOYMENT_FEE", 0),
		FaucetEnabled:   env.boolean("ARISAN_FAUCET_ENABLED", true),
		FaucetAmount:    env.uint("ARISAN_FAUCET_AMOUNT", 1_000_000_000),

		DatabaseURL: env.str("DATABASE_URL", ""),
		Redis: RedisConfig{
			URL:          env.str("REDIS_URL", ""),
			PoolSize:     env.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       env.list("KAFKA_BROKERS"),
			Topic:         env.str("KAFKA_TOPIC", "arisan.events"),
			RelayInterval: env.duration("OUTBOX_RELAY_INTERVAL", 2*time.Second),
			RelayBatch:    env.int("OUTBOX_RELAY_BATCH", 100),
		},
		RateLimit: RateLimitConfig{
			Enabled:        env.boolean("RATE_LIMIT_ENABLED", true),
			ReadPerMinute:  env.int("RATE_LIMIT_READ_PER_MINUTE", 300),
			WritePerMinute: env.int("RATE_LIMIT_WRITE_PER_MINUTE", 60),
			FaucetPerHour:  env.int("RATE_LIMIT_FAUCET_PER_HOUR", 3),
		},
		Params: Params{
			MinMembers:            env.int("ARISAN_MIN_MEMBERS", 4),
			MaxMembers:            env.int("ARISAN_MAX_MEMBERS", 50),
			MaxUjrahBps:           env.uint32("ARISAN_MAX_UJRAH_BPS", 500),
			MinVouchWeight:        env.uint32("ARISAN_MIN_VOUCH_WEIGHT", 1),
			MaxVouchWeight:        env.uint32("ARISAN_MAX_VOUCH_WEIGHT", 10),
			VerificationThreshold: env.uint("ARISAN_VERIFICATION_THRESHOLD", 50),
		},
	}

	if err := cfg.Params.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("protocol params: %w", err))
	}
	if cfg.Environment == "production" && cfg.JWTSigningKey == devSigningKey {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	if len(errs) > 0 {
		return Server{}, errors.Join(errs...)
	}
	return cfg, nil
}

type envReader struct {
	errs *[]error
}

func (e envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e envReader) uint(key string, def uint64) uint64 {
	return e.unsigned(key, def, 64)
}

func (e envReader) uint32(key string, def uint32) uint32 {
	return uint32(e.unsigned(key, uint64(def), 32))
}

// int reads a non-negative int.
func (e envReader) int(key string, def int) int {
	return int(e.unsigned(key, uint64(def), strconv.IntSize-1))
}

// unsigned parses key as an unsigned integer of the given bit size. Values
// that do not fit are reported, never wrapped.
func (e envReader) unsigned(key string, def uint64, bitSize int) uint64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseUint(raw, 10, bitSize)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (e envReader) boolean(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (e envReader) address(key, def string) id.Address {
	addr, err := id.ParseAddress(e.str(key, def))
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %w", key, err))
	}
	return addr
}

func (e envReader) list(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
