package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   Server   `yaml:"server"`
	Log      Log      `yaml:"log"`
	Beehiiv  Beehiiv  `yaml:"beehiiv"`
	Analyzer Analyzer `yaml:"analyzer"`
	Session  Session  `yaml:"session"`
	Report   Report   `yaml:"report"`
	Export   Export   `yaml:"export"`
	S3       S3       `yaml:"s3"`
}

// Server holds HTTP server configuration
type Server struct {
	Host           string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port           string        `yaml:"port" env:"PORT" env-default:"5000"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"120s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"110s"`
	// AllowedOrigins lists the browser origins allowed to call the API; "*" allows any
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Log holds logging configuration
type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Beehiiv holds Beehiiv API configuration
type Beehiiv struct {
	BaseURL string        `yaml:"base_url" env:"BEEHIIV_BASE_URL" env-default:"https://api.beehiiv.com/v2"`
	Timeout time.Duration `yaml:"timeout" env:"BEEHIIV_TIMEOUT" env-default:"30s"`
	// APIKey and PublicationID are server defaults; requests may bring their own
	APIKey        string `yaml:"api_key" env:"BEEHIIV_API_KEY"`
	PublicationID string `yaml:"publication_id" env:"BEEHIIV_PUBLICATION_ID"`
}

// Analyzer holds image-analysis service configuration
type Analyzer struct {
	BaseURL       string        `yaml:"base_url" env:"ANALYZER_BASE_URL"`
	APIKey        string        `yaml:"api_key" env:"ANALYZER_API_KEY"`
	Timeout       time.Duration `yaml:"timeout" env:"ANALYZER_TIMEOUT" env-default:"60s"`
	MaxImageWidth int           `yaml:"max_image_width" env:"ANALYZER_MAX_IMAGE_WIDTH" env-default:"1600"`
}

// Session holds session cookie and store configuration
type Session struct {
	Secret       string        `yaml:"secret" env:"SESSION_SECRET" env-default:"change-me-in-production-32-bytes!"`
	CookieSecure bool          `yaml:"cookie_secure" env:"SESSION_COOKIE_SECURE" env-default:"false"`
	TTL          time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"12h"`
	// RedisURL selects the Redis store; empty keeps sessions in process memory
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"REDIS_CACHE_PREFIX" env-default:"beehiiv-metric"`
}

// Report holds report generation configuration
type Report struct {
	AnalysisConcurrency int           `yaml:"analysis_concurrency" env:"REPORT_ANALYSIS_CONCURRENCY" env-default:"8"`
	SweepInterval       time.Duration `yaml:"sweep_interval" env:"REPORT_SWEEP_INTERVAL" env-default:"5m"`
}

// Export holds PDF export configuration
type Export struct {
	ChromeURL      string        `yaml:"chrome_url" env:"EXPORT_CHROME_URL"`
	NoSandbox      bool          `yaml:"no_sandbox" env:"EXPORT_CHROME_NO_SANDBOX" env-default:"false"`
	Timeout        time.Duration `yaml:"timeout" env:"EXPORT_TIMEOUT" env-default:"30s"`
	ArchiveEnabled bool          `yaml:"archive_enabled" env:"EXPORT_ARCHIVE_ENABLED" env-default:"false"`
}

// S3 holds S3/MinIO storage configuration for archived exports
type S3 struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"exports"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL"`
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
