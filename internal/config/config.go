package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AstroSourceCSV      = "csv"
	AstroSourcePostgres = "postgres"
)

type Config struct {
	Environment string
	LogLevel    string
	HTTPPort    string
	Pipeline    PipelineConfig
	Dashboard   DashboardConfig
	AstroSource string
	Postgres    PostgresConfig
	Kafka       KafkaConfig
	S3          S3Config
}

type PipelineConfig struct {
	RawDataFile         string
	CompletedDataFile   string
	AstroDataFile       string
	JSONColumn          string
	FlattenedOutputFile string
	ReportOutputFile    string
	ReportOutputDir     string
	Profile             string
	ProfileFile         string
	TimestampPolicy     string
}

type DashboardConfig struct {
	MaxUploadBytes int64
	ReportHistory  int
	SaveReports    bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	Database        string
	Username        string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string
	AstrologerTable string
}

type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	Topic            string
	ProducerRetries  int
	ProducerTimeout  time.Duration
	RequiredAcks     int
	CompressionType  string
	MaxMessageBytes  int
	IdempotentWrites bool
}

type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	Prefix       string
	UsePathStyle bool
}

// Enabled reports whether reports should also be uploaded to a bucket.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		AstroSource: getEnv("ASTRO_SOURCE", AstroSourceCSV),
	}

	cfg.Pipeline = PipelineConfig{
		RawDataFile:         getEnv("RAW_DATA_FILE", "raw_data.csv"),
		CompletedDataFile:   getEnv("COMPLETED_DATA_FILE", ""),
		AstroDataFile:       getEnv("ASTRO_DATA_FILE", "astro_data.csv"),
		JSONColumn:          getEnv("JSON_COLUMN", "other_data"),
		FlattenedOutputFile: getEnv("FLATTENED_OUTPUT_FILE", "combined_data_hour_wise.csv"),
		ReportOutputFile:    getEnv("REPORT_OUTPUT_FILE", "combined_data_final_hour_wise.csv"),
		ReportOutputDir:     getEnv("REPORT_OUTPUT_DIR", "."),
		Profile:             getEnv("PROFILE", "hourly"),
		ProfileFile:         getEnv("PROFILE_FILE", ""),
		TimestampPolicy:     getEnv("TIMESTAMP_POLICY", "fail"),
	}

	cfg.Dashboard = DashboardConfig{
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 64<<20)),
		ReportHistory:  getEnvAsInt("REPORT_HISTORY", 20),
		SaveReports:    getEnvAsBool("SAVE_REPORTS", false),
	}

	cfg.Postgres = PostgresConfig{
		Host:            getEnv("POSTGRES_HOST", "localhost"),
		Port:            getEnv("POSTGRES_PORT", "5432"),
		Database:        getEnv("POSTGRES_DB", "analytics"),
		Username:        getEnv("POSTGRES_USER", "admin"),
		Password:        getEnv("POSTGRES_PASSWORD", "password"),
		MaxOpenConns:    getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
		AstrologerTable: getEnv("POSTGRES_ASTROLOGER_TABLE", "astrologers"),
	}

	brokers := getEnv("KAFKA_BROKERS", "localhost:9092")
	cfg.Kafka = KafkaConfig{
		Enabled:          getEnvAsBool("KAFKA_ENABLED", false),
		Brokers:          strings.Split(brokers, ","),
		Topic:            getEnv("KAFKA_TOPIC_REPORTS", "hourly-reports"),
		ProducerRetries:  getEnvAsInt("KAFKA_PRODUCER_RETRIES", 3),
		ProducerTimeout:  getEnvAsDuration("KAFKA_PRODUCER_TIMEOUT", 10*time.Second),
		RequiredAcks:     getEnvAsInt("KAFKA_REQUIRED_ACKS", -1),
		CompressionType:  getEnv("KAFKA_COMPRESSION", "snappy"),
		IdempotentWrites: getEnvAsBool("KAFKA_IDEMPOTENT", true),
		MaxMessageBytes:  getEnvAsInt("KAFKA_MAX_MESSAGE_BYTES", 1000000),
	}

	cfg.S3 = S3Config{
		Bucket:       getEnv("S3_BUCKET", ""),
		Region:       getEnv("S3_REGION", "us-east-1"),
		Endpoint:     getEnv("S3_ENDPOINT", ""),
		Prefix:       getEnv("S3_PREFIX", "reports/"),
		UsePathStyle: getEnvAsBool("S3_USE_PATH_STYLE", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AstroSource {
	case AstroSourceCSV, AstroSourcePostgres:
	default:
		return fmt.Errorf("invalid ASTRO_SOURCE %q: want %s or %s", c.AstroSource, AstroSourceCSV, AstroSourcePostgres)
	}
	if c.Dashboard.ReportHistory < 1 {
		return fmt.Errorf("REPORT_HISTORY must be positive, got %d", c.Dashboard.ReportHistory)
	}
	if c.Dashboard.MaxUploadBytes < 1 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Dashboard.MaxUploadBytes)
	}
	return nil
}

func (c *PostgresConfig) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
