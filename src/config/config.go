package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// const dsn = "host=localhost user=postgres password=password dbname=apaeventus port=5432 sslmode=disable TimeZone=UTC"

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := getEnv("DATABASE_SSLMODE", "disable")
	DATABASE_TIMEZONE := getEnv("DATABASE_TIMEZONE", "UTC")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

type Config struct {
	Env  string
	Port string

	StripeWebhookSecret string
	Currency            string
	DefaultSuccessURL   string
	DefaultCancelURL    string

	S3Bucket string
	S3Region string

	MailProvider string
	MailFrom     string
	MailFromName string
	MailSubject  string
	MailBody     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	SalesEventsQueue string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	WebhookEventTTL   time.Duration

	Organization string
	TimeZone     string
}

func Load() *Config {
	return &Config{
		Env:  getEnv("API_ENV", "local"),
		Port: getEnv("PORT", "9090"),

		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            getEnv("STRIPE_CURRENCY", "brl"),
		DefaultSuccessURL:   getEnv("STRIPE_DEFAULT_SUCCESS_URL", "http://localhost:3000/payment/success"),
		DefaultCancelURL:    getEnv("STRIPE_DEFAULT_CANCEL_URL", "http://localhost:3000/payment/cancel"),

		S3Bucket: os.Getenv("AWS_S3_BUCKET_NAME"),
		S3Region: getEnv("AWS_REGION", "us-east-1"),

		MailProvider: getEnv("MAIL_PROVIDER", "ses"),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@apaeventus.com"),
		MailFromName: getEnv("MAIL_FROM_NAME", "ApaEventus"),
		MailSubject:  getEnv("MAIL_TICKET_SUBJECT", "ApaEventus: Seu ingresso chegou!"),
		MailBody: getEnv("MAIL_TICKET_BODY", "Obrigado por comprar o seu ingresso! "+
			"Em anexo você encontra o seu ingresso com o QR Code de acesso. "+
			"Apresente-o na entrada do evento."),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		SalesEventsQueue: os.Getenv("SALES_EVENTS_QUEUE"),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 10),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		WebhookEventTTL:   getEnvDuration("WEBHOOK_EVENT_TTL", 24*time.Hour),

		Organization: getEnv("TICKET_ORGANIZATION", "APAE"),
		TimeZone:     getEnv("TICKET_TIMEZONE", "America/Sao_Paulo"),
	}
}

func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
