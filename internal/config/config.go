package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"heritage"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`

	// Password reset links point at the frontend and expire after PasswordResetExpiry.
	FrontendURL         string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	PasswordResetExpiry time.Duration `env:"PASSWORD_RESET_EXPIRY" envDefault:"72h"`

	// Accounts registering with one of these emails become superadmins.
	SuperAdminEmails []string `env:"SUPERADMIN_EMAILS" envSeparator:","`

	// Server
	Port          string `env:"PORT" envDefault:"8080"`
	CORSOrigins   string `env:"CORS_ORIGINS" envDefault:"*"`
	BaseURL       string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	BodyLimitMB   int    `env:"BODY_LIMIT_MB" envDefault:"110"`
	RateLimitMax  int    `env:"RATE_LIMIT_MAX" envDefault:"100"`
	TrustedProxy  string `env:"TRUSTED_PROXY"`
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	SentryDSN     string `env:"SENTRY_DSN"`
	MetricsEnable bool   `env:"METRICS_ENABLED" envDefault:"true"`

	// SMTP. Notifications are discarded when SMTPHost is empty.
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	SMTPFrom      string `env:"SMTP_FROM" envDefault:"noreply@naryn-heritage.kg"`
	MailQueueSize int    `env:"MAIL_QUEUE_SIZE" envDefault:"100"`

	// Media storage
	MediaBackend   string `env:"MEDIA_BACKEND" envDefault:"fs"`
	MediaDir       string `env:"MEDIA_DIR" envDefault:"./media"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`

	// Imaging
	ImageMaxWidth  uint `env:"IMAGE_MAX_WIDTH" envDefault:"1920"`
	ImageMaxHeight uint `env:"IMAGE_MAX_HEIGHT" envDefault:"1080"`
	ImageQuality   int  `env:"IMAGE_QUALITY" envDefault:"85"`
	QRSize         int  `env:"QR_SIZE" envDefault:"-10"`

	// Upload caps in bytes
	MaxImageUploadSize int64 `env:"MAX_IMAGE_UPLOAD_SIZE" envDefault:"5242880"`
	MaxVideoUploadSize int64 `env:"MAX_VIDEO_UPLOAD_SIZE" envDefault:"104857600"`

	// Logging
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogRetentionDays int    `env:"LOG_RETENTION_DAYS" envDefault:"30"`
	LogCleanupCron   string `env:"LOG_CLEANUP_CRON" envDefault:"@every 24h"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.MediaBackend {
	case "fs", "s3", "memory":
	default:
		return fmt.Errorf("MEDIA_BACKEND must be fs, s3 or memory, got %q", c.MediaBackend)
	}
	if c.MediaBackend == "s3" && c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required when MEDIA_BACKEND=s3")
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		return fmt.Errorf("IMAGE_QUALITY must be between 1 and 100, got %d", c.ImageQuality)
	}
	if c.MaxImageUploadSize <= 0 || c.MaxVideoUploadSize <= 0 {
		return errors.New("MAX_IMAGE_UPLOAD_SIZE and MAX_VIDEO_UPLOAD_SIZE must be positive")
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// IsSuperAdminEmail matches case-insensitively.
func (c *Config) IsSuperAdminEmail(email string) bool {
	for _, e := range c.SuperAdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}
