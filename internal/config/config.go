package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort int
	BaseURL    string

	DatabaseURL string

	SessionSecret []byte
	SessionTTL    time.Duration
	CookieSecure  bool

	StripeAPIKey        string
	StripeWebhookSecret string
	CheckoutCurrency    string
	PaymentTimeout      time.Duration

	Upload UploadConfig

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	LoginRateLimit int

	LogLevel string
}

type UploadConfig struct {
	Driver    string
	Dir       string
	URLPrefix string
	MaxMB     int

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

func Load() Config {
	return Config{
		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		BaseURL:    strings.TrimRight(EnvDefault("BASE_URL", "http://localhost:8080"), "/"),

		DatabaseURL: EnvDefault("DATABASE_URL", "sqlite://storefront.db"),

		SessionSecret: []byte(os.Getenv("SESSION_SECRET")),
		SessionTTL:    EnvDurationDefault("SESSION_TTL", 7*24*time.Hour),
		CookieSecure:  EnvBoolDefault("COOKIE_SECURE", false),

		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CheckoutCurrency:    strings.ToLower(EnvDefault("CHECKOUT_CURRENCY", "usd")),
		PaymentTimeout:      EnvDurationDefault("PAYMENT_TIMEOUT", 15*time.Second),

		Upload: UploadConfig{
			Driver:    strings.ToLower(EnvDefault("UPLOAD_DRIVER", "local")),
			Dir:       EnvDefault("UPLOAD_DIR", "static/uploads"),
			URLPrefix: EnvDefault("UPLOAD_URL_PREFIX", "/uploads"),
			MaxMB:     EnvIntDefault("MAX_UPLOAD_MB", 8),

			S3Bucket:    os.Getenv("S3_BUCKET"),
			S3Region:    EnvDefault("S3_REGION", "us-east-1"),
			S3Endpoint:  os.Getenv("S3_ENDPOINT"),
			S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey: os.Getenv("S3_SECRET_KEY"),
			S3PublicURL: os.Getenv("S3_PUBLIC_URL"),
		},

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "storefront_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		LoginRateLimit: EnvIntDefault("LOGIN_RATE_LIMIT", 10),

		LogLevel: EnvDefault("LOG_LEVEL", "info"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
