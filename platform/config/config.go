// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RESTConfig provides settings for the cached PostgREST query front-end.
type RESTConfig interface {
	GetRESTURL() string
	GetRESTServiceKey() string
	GetRESTTimeout() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetAdminAPIKey() string
}

// AIConfig provides settings for the generative content service.
type AIConfig interface {
	GetAIProvider() string
	GetGeminiAPIKey() string
	GetMoonshotAPIKey() string
	GetMoonshotBaseURL() string
	GetVerificationModels() []string
	GetContentModels() []string
}

// StorageConfig provides settings for durable object storage.
type StorageConfig interface {
	GetStorageDriver() string
	GetStorageBucket() string
	GetStoragePublicBaseURL() string
	GetStorageMaxFileSize() int64
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetS3Endpoint() string
	GetS3Region() string
	GetS3AccessKey() string
	GetS3SecretKey() string
}

// PhotoConfig provides settings for photo discovery.
type PhotoConfig interface {
	GetPhotoFetcher() string
	GetPhotoExcludeTokens() []string
	GetChromeExecPath() string
}

// EnrichmentConfig provides settings for the batch orchestrator.
type EnrichmentConfig interface {
	GetEnrichRequestsPerMinute() float64
	GetEnrichTextCost() int
	GetEnrichPhotoCost() int
	GetEnrichBatchLimit() int
	GetEnrichWithPhotos() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
}

// EmailConfig provides settings for batch report e-mails.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetReportRecipient() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	RESTURL                 string
	RESTServiceKey          string
	RESTTimeout             time.Duration
	CORSAllowAll            bool
	CORSOrigins             []string
	AdminAPIKey             string
	AIProvider              string
	GeminiAPIKey            string
	MoonshotAPIKey          string
	MoonshotBaseURL         string
	VerificationModels      []string
	ContentModels           []string
	StorageDriver           string
	StorageBucket           string
	StoragePublicBaseURL    string
	StorageMaxFileSize      int64
	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	S3Endpoint              string
	S3Region                string
	S3AccessKey             string
	S3SecretKey             string
	PhotoFetcher            string
	PhotoExcludeTokens      []string
	ChromeExecPath          string
	EnrichRequestsPerMinute float64
	EnrichTextCost          int
	EnrichPhotoCost         int
	EnrichBatchLimit        int
	EnrichWithPhotos        bool
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	EmailEnabled            bool
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	EmailFromName           string
	EmailFromAddress        string
	ReportRecipient         string
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string           { return c.DatabaseURL }
func (c *Config) GetRESTURL() string               { return c.RESTURL }
func (c *Config) GetRESTServiceKey() string        { return c.RESTServiceKey }
func (c *Config) GetRESTTimeout() time.Duration    { return c.RESTTimeout }
func (c *Config) GetHTTPAddr() string              { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool            { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string         { return c.CORSOrigins }
func (c *Config) GetAdminAPIKey() string           { return c.AdminAPIKey }
func (c *Config) GetAIProvider() string            { return c.AIProvider }
func (c *Config) GetGeminiAPIKey() string          { return c.GeminiAPIKey }
func (c *Config) GetMoonshotAPIKey() string        { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotBaseURL() string       { return c.MoonshotBaseURL }
func (c *Config) GetVerificationModels() []string  { return c.VerificationModels }
func (c *Config) GetContentModels() []string       { return c.ContentModels }
func (c *Config) GetStorageDriver() string         { return c.StorageDriver }
func (c *Config) GetStorageBucket() string         { return c.StorageBucket }
func (c *Config) GetStoragePublicBaseURL() string  { return c.StoragePublicBaseURL }
func (c *Config) GetStorageMaxFileSize() int64     { return c.StorageMaxFileSize }
func (c *Config) GetMinIOEndpoint() string         { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string        { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string        { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool             { return c.MinIOUseSSL }
func (c *Config) GetS3Endpoint() string            { return c.S3Endpoint }
func (c *Config) GetS3Region() string              { return c.S3Region }
func (c *Config) GetS3AccessKey() string           { return c.S3AccessKey }
func (c *Config) GetS3SecretKey() string           { return c.S3SecretKey }
func (c *Config) GetPhotoFetcher() string          { return c.PhotoFetcher }
func (c *Config) GetPhotoExcludeTokens() []string  { return c.PhotoExcludeTokens }
func (c *Config) GetChromeExecPath() string        { return c.ChromeExecPath }
func (c *Config) GetEnrichRequestsPerMinute() float64 {
	return c.EnrichRequestsPerMinute
}
func (c *Config) GetEnrichTextCost() int     { return c.EnrichTextCost }
func (c *Config) GetEnrichPhotoCost() int    { return c.EnrichPhotoCost }
func (c *Config) GetEnrichBatchLimit() int   { return c.EnrichBatchLimit }
func (c *Config) GetEnrichWithPhotos() bool  { return c.EnrichWithPhotos }
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetEmailEnabled() bool      { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string   { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string {
	return c.EmailFromAddress
}
func (c *Config) GetReportRecipient() string { return c.ReportRecipient }

// IsMinIO reports whether the MinIO storage driver is selected.
func (c *Config) IsMinIO() bool {
	return strings.EqualFold(c.StorageDriver, "minio")
}

// =============================================================================
// Loading
// =============================================================================

// modelChains is the shape of the optional AI_MODELS_FILE.
type modelChains struct {
	Verification []string `yaml:"verification"`
	Content      []string `yaml:"content"`
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first, but does not fail if missing.
func Load() (*Config, error) {
	_ = godotenv.Load()

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		RESTURL:                 strings.TrimRight(getEnv("REST_URL", ""), "/"),
		RESTServiceKey:          getEnv("REST_SERVICE_KEY", ""),
		RESTTimeout:             mustDuration(getEnv("REST_TIMEOUT", "15s")),
		CORSAllowAll:            strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		AdminAPIKey:             getEnv("ADMIN_API_KEY", ""),
		AIProvider:              strings.ToLower(getEnv("AI_PROVIDER", "gemini")),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		MoonshotAPIKey:          getEnv("MOONSHOT_API_KEY", ""),
		MoonshotBaseURL:         getEnv("MOONSHOT_BASE_URL", ""),
		VerificationModels:      splitCSV(getEnv("AI_VERIFICATION_MODELS", "gemini-2.5-flash,gemini-2.0-flash")),
		ContentModels:           splitCSV(getEnv("AI_CONTENT_MODELS", "gemini-2.5-flash,gemini-2.0-flash")),
		StorageDriver:           strings.ToLower(getEnv("STORAGE_DRIVER", "minio")),
		StorageBucket:           getEnv("STORAGE_BUCKET", "venue-media"),
		StoragePublicBaseURL:    strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
		StorageMaxFileSize:      mustInt64(getEnv("STORAGE_MAX_FILE_SIZE", "15728640")),
		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:          getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:          getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:             strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		S3Endpoint:              getEnv("S3_ENDPOINT", ""),
		S3Region:                getEnv("S3_REGION", "auto"),
		S3AccessKey:             getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:             getEnv("S3_SECRET_ACCESS_KEY", ""),
		PhotoFetcher:            strings.ToLower(getEnv("PHOTO_FETCHER", "http")),
		PhotoExcludeTokens:      splitCSV(getEnv("PHOTO_EXCLUDE_TOKENS", "logo")),
		ChromeExecPath:          getEnv("CHROME_BIN", ""),
		EnrichRequestsPerMinute: mustFloat(getEnv("ENRICH_REQUESTS_PER_MINUTE", "10")),
		EnrichTextCost:          mustInt(getEnv("ENRICH_TEXT_COST", "1")),
		EnrichPhotoCost:         mustInt(getEnv("ENRICH_PHOTO_COST", "4")),
		EnrichBatchLimit:        mustInt(getEnv("ENRICH_BATCH_LIMIT", "0")),
		EnrichWithPhotos:        strings.EqualFold(getEnv("ENRICH_WITH_PHOTOS", "false"), "true"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "enrichment"),
		EmailEnabled:            emailEnabled,
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "Venue Enrichment"),
		EmailFromAddress:        getEnv("EMAIL_FROM_ADDRESS", ""),
		ReportRecipient:         getEnv("REPORT_RECIPIENT", ""),
	}

	if path := strings.TrimSpace(getEnv("AI_MODELS_FILE", "")); path != "" {
		if err := cfg.loadModelChains(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RESTURL != "" && c.RESTServiceKey == "" {
		return fmt.Errorf("REST_SERVICE_KEY is required when REST_URL is set")
	}
	if len(c.VerificationModels) == 0 || len(c.ContentModels) == 0 {
		return fmt.Errorf("at least one verification and one content model must be configured")
	}
	switch c.AIProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
		}
	case "moonshot":
		if c.MoonshotAPIKey == "" {
			return fmt.Errorf("MOONSHOT_API_KEY is required when AI_PROVIDER is moonshot")
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AIProvider)
	}
	switch c.StorageDriver {
	case "minio", "s3":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.EnrichRequestsPerMinute <= 0 {
		return fmt.Errorf("ENRICH_REQUESTS_PER_MINUTE must be positive")
	}
	if c.EnrichTextCost < 1 || c.EnrichPhotoCost < 1 {
		return fmt.Errorf("ENRICH_TEXT_COST and ENRICH_PHOTO_COST must be at least 1")
	}
	if c.EmailEnabled && (c.SMTPHost == "" || c.EmailFromAddress == "" || c.ReportRecipient == "") {
		return fmt.Errorf("SMTP_HOST, EMAIL_FROM_ADDRESS and REPORT_RECIPIENT are required when EMAIL_ENABLED is true")
	}
	if c.CORSAllowAll && containsWildcard(c.CORSOrigins) {
		return fmt.Errorf("CORS_ORIGINS must not contain * when CORS_ALLOW_ALL is true")
	}
	return nil
}

func (c *Config) loadModelChains(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read AI_MODELS_FILE: %w", err)
	}
	var chains modelChains
	if err := yaml.Unmarshal(raw, &chains); err != nil {
		return fmt.Errorf("parse AI_MODELS_FILE: %w", err)
	}
	if len(chains.Verification) > 0 {
		c.VerificationModels = chains.Verification
	}
	if len(chains.Content) > 0 {
		c.ContentModels = chains.Content
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
