package config

import (
	"log"
	"os"
	"strconv"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
	Enabled         bool
}

// CollaboratorsConfig holds the base URLs of the external services the core
// calls out to.
type CollaboratorsConfig struct {
	MailerBaseURL  string
	InviteBaseURL  string
	InvoiceBaseURL string
	Timeout        int
}

type AppConfig struct {
	Port     string
	Postgres PostgresConfig
	Redis    RedisConfig
	S3       S3Config

	Collaborators CollaboratorsConfig

	// SweepCron is the robfig/cron spec of the unattended escalation sweep.
	SweepCron string

	ExportDir     string
	ExportBaseURL string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q: %v", s, err)
	}
	return i
}

func mustBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("invalid bool value %q: %v", s, err)
	}
	return b
}

func Load() AppConfig {
	return AppConfig{
		Port: getenv("APP_PORT", "8010"),
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     mustAtoi(getenv("PG_PORT", "5432")),
			User:     getenv("PG_USER", "root"),
			Password: getenv("PG_PASSWORD", "hello-world"),
			DBName:   getenv("PG_DB", "incasso"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getenv("REDIS_PASSWORD", "hello-world"),
			DB:          mustAtoi(getenv("REDIS_DB", "0")),
			MaxRetries:  mustAtoi(getenv("REDIS_MAX_RETRIES", "5")),
			DialTimeout: mustAtoi(getenv("REDIS_DIAL_TIMEOUT", "10")),
			Timeout:     mustAtoi(getenv("REDIS_TIMEOUT", "5")),
			Prefix:      getenv("REDIS_PREFIX", "incasso_core_"),
		},
		S3: S3Config{
			Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getenv("S3_ACCESS_KEY", "minio"),
			SecretAccessKey: getenv("S3_SECRET_KEY", "minio123"),
			Bucket:          getenv("S3_BUCKET", "exports"),
			Region:          getenv("S3_REGION", "us-east-1"),
			UseSSL:          mustBool(getenv("S3_USE_SSL", "false")),
			Prefix:          getenv("S3_PREFIX", ""),
			Enabled:         mustBool(getenv("S3_ENABLED", "true")),
		},
		Collaborators: CollaboratorsConfig{
			MailerBaseURL:  getenv("MAILER_BASE_URL", "http://127.0.0.1:8020"),
			InviteBaseURL:  getenv("INVITE_BASE_URL", "http://127.0.0.1:8030"),
			InvoiceBaseURL: getenv("INVOICE_BASE_URL", "http://127.0.0.1:8040"),
			Timeout:        mustAtoi(getenv("COLLABORATOR_TIMEOUT", "15")),
		},
		SweepCron:     getenv("SWEEP_CRON", "0 7 * * *"),
		ExportDir:     getenv("EXPORT_DIR", "./exports"),
		ExportBaseURL: getenv("EXPORT_BASE_URL", "http://127.0.0.1:8010/files"),
	}
}
