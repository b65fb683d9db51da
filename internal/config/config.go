package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// DefaultMaxUploadBytes bounds a single webcam frame at the expected resolution and quality.
const DefaultMaxUploadBytes = 25000

// UploadConfig holds the credential pair accepted from the webcam and the storage root.
// It is read-only after Load.
type UploadConfig struct {
	APIUsername    string
	APIPassword    string
	RootFolder     string
	MaxUploadBytes int
}

// DatabaseConfig holds PostgreSQL settings for the optional capture log.
// The capture log is disabled when Host is empty.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Enabled reports whether a database host was configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// MinIOConfig holds object storage settings for the optional image mirror.
// The mirror is disabled when Endpoint is empty.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an object storage endpoint was configured.
func (c MinIOConfig) Enabled() bool { return c.Endpoint != "" }

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables by direct field assignment.
type AppConfig struct {
	Port               string
	Timezone           string
	ShutdownTimeoutSec int
	Upload             UploadConfig
	Database           DatabaseConfig
	MinIO              MinIOConfig
}

var (
	ErrUsernameRequired   = errors.New("API_USERNAME is required")
	ErrPasswordRequired   = errors.New("API_PASSWORD is required")
	ErrRootFolderRequired = errors.New("ROOT_FOLDER is required")
	ErrInvalidUploadLimit = errors.New("MAX_UPLOAD_BYTES must be positive")
)

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the file.
func Load() *AppConfig {
	return &AppConfig{
		Port:               getEnv("PORT", "8080"),
		Timezone:           getEnv("APP_TIMEZONE", "Local"),
		ShutdownTimeoutSec: getEnvInt("SHUTDOWN_TIMEOUT_SEC", 15),
		Upload: UploadConfig{
			APIUsername:    getEnv("API_USERNAME", ""),
			APIPassword:    getEnv("API_PASSWORD", ""),
			RootFolder:     getEnv("ROOT_FOLDER", ""),
			MaxUploadBytes: getEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

// Validate fails closed: the service must not start without the upload credentials and root folder.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Upload.APIUsername == "" {
		errs = append(errs, ErrUsernameRequired)
	}
	if c.Upload.APIPassword == "" {
		errs = append(errs, ErrPasswordRequired)
	}
	if c.Upload.RootFolder == "" {
		errs = append(errs, ErrRootFolderRequired)
	}
	if c.Upload.MaxUploadBytes <= 0 {
		errs = append(errs, ErrInvalidUploadLimit)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to the local zone when it is unknown.
func (c *AppConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *AppConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
