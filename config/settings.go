package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Settings holds every environment-driven option of the API.
type Settings struct {
	Environment        string `envconfig:"ENVIRONMENT" default:"development"`
	GinMode            string `envconfig:"GIN_MODE" default:"debug"`
	ServerPort         string `envconfig:"SERVER_PORT" default:"8080"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	TrustedProxies     string `envconfig:"TRUSTED_PROXIES"` // comma separated IPs/CIDRs; empty trusts none

	DBDriver      string `envconfig:"DB_DRIVER" default:"mysql"`
	DBHost        string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort        string `envconfig:"DB_PORT" default:"3306"`
	DBDatabase    string `envconfig:"DB_DATABASE" default:"paper_portal"`
	DBUsername    string `envconfig:"DB_USERNAME" default:"root"`
	DBPassword    string `envconfig:"DB_PASSWORD"`
	DBAutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
	DebugSQL      bool   `envconfig:"DEBUG_SQL" default:"false"`

	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireHours int    `envconfig:"JWT_EXPIRE_HOURS" default:"24"`

	SMTPHost          string `envconfig:"SMTP_HOST"`
	SMTPPort          int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser          string `envconfig:"SMTP_USER"`
	SMTPPass          string `envconfig:"SMTP_PASS"`
	SMTPFrom          string `envconfig:"SMTP_FROM"` // e.g. "Paper Portal <no-reply@your.org>"
	SMTPSkipTLSVerify bool   `envconfig:"SMTP_SKIP_TLS_VERIFY" default:"false"`

	AdminNotifyEmail string `envconfig:"ADMIN_NOTIFY_EMAIL"`
	AppBaseURL       string `envconfig:"APP_BASE_URL" default:"http://localhost:3000"`

	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"local"`
	UploadPath     string `envconfig:"UPLOAD_PATH" default:"./uploads"`
	PublicBaseURL  string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey    string `envconfig:"S3_SECRET_KEY"`
	S3PublicURL    string `envconfig:"S3_PUBLIC_URL"`
	MaxUploadMB    int64  `envconfig:"MAX_UPLOAD_MB" default:"10"`

	RedisURL        string        `envconfig:"REDIS_URL"`
	LoginRateLimit  int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindow time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`

	StrictTransitions  bool   `envconfig:"WORKFLOW_STRICT_TRANSITIONS" default:"false"`
	MetricsRefreshCron string `envconfig:"METRICS_REFRESH_CRON" default:"*/5 * * * *"`

	LogLevel string `envconfig:"LOG_LEVEL"`
	LogFile  string `envconfig:"LOG_FILE" default:"logs/paper-api.log"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Settings, error) {
	_ = godotenv.Load()
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if strings.TrimSpace(s.JWTSecret) == "" {
		return nil, fmt.Errorf("load settings: JWT_SECRET must not be empty")
	}
	s.DBDriver = strings.ToLower(strings.TrimSpace(s.DBDriver))
	s.StorageBackend = strings.ToLower(strings.TrimSpace(s.StorageBackend))
	if s.MaxUploadMB <= 0 {
		s.MaxUploadMB = 10
	}
	return &s, nil
}

// IsProduction reports whether ENVIRONMENT is "production".
func (s *Settings) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(s.Environment), "production")
}

// MaxUploadBytes converts MAX_UPLOAD_MB to bytes.
func (s *Settings) MaxUploadBytes() int64 {
	return s.MaxUploadMB * 1024 * 1024
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (s *Settings) AllowedOrigins() []string {
	return splitList(s.CORSAllowedOrigins)
}

// TrustedProxyList splits TRUSTED_PROXIES on commas. Nil means the client
// address is always the TCP peer and forwarding headers are ignored.
func (s *Settings) TrustedProxyList() []string {
	return splitList(s.TrustedProxies)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// DSN returns the data source name for the configured driver.
func (s *Settings) DSN() string {
	switch s.DBDriver {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			s.DBHost, s.DBUsername, s.DBPassword, s.DBDatabase, s.DBPort)
	default:
		// clientFoundRows: RowsAffected counts matched rows, not changed ones.
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
			s.DBUsername,
			s.DBPassword,
			s.DBHost,
			s.DBPort,
			s.DBDatabase,
		)
	}
}
