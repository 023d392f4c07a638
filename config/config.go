package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultUserAgent = "Mozilla/5.0 (Linux; Android 13; itel A666LN Build/TP1A.220624.014; wv) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/143.0.7499.192 Mobile Safari/537.36"

// ErrMissingCredentials is returned by Validate when the portal login is not configured.
var ErrMissingCredentials = errors.New("config: BPS_USERNAME and BPS_PASSWORD must be set")

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Username  string
	Password  string
	OTPSecret string

	UseSessionCache bool
	Headless        bool
	ChromeBin       string
	UserAgent       string

	BaseURL string
	DirURL  string
	PostURL string

	SessionFile     string
	InputDir        string
	BackupDir       string
	ProcessedDir    string
	BoundingBoxFile string
	ReportDir       string
	LogFile         string

	RequestTimeout      time.Duration
	MaxTransportRetries int
	RateLimitDefault    time.Duration
	PaceMin             time.Duration
	PaceMax             time.Duration

	CheckpointEvery int
	SaveRetries     int
	SaveRetryDelay  time.Duration

	PostgresDSN string
	MetricsAddr string
	ShowRules   bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	base := strings.TrimRight(getEnv("BASE_URL", "https://matchapro.web.bps.go.id"), "/")

	return &Config{
		Username:  os.Getenv("BPS_USERNAME"),
		Password:  os.Getenv("BPS_PASSWORD"),
		OTPSecret: os.Getenv("BPS_OTP_SECRET"),

		UseSessionCache: getEnvBool("USE_SESSION_CACHE", true),
		Headless:        getEnvBool("HEADLESS", true),
		ChromeBin:       getEnv("CHROME_BIN", ""),
		UserAgent:       getEnv("USER_AGENT", defaultUserAgent),

		BaseURL: base,
		DirURL:  base + "/dirgc",
		PostURL: base + "/dirgc/konfirmasi-user",

		SessionFile:     getEnv("SESSION_FILE", "session.json"),
		InputDir:        getEnv("INPUT_DIR", "input"),
		BackupDir:       getEnv("BACKUP_DIR", "backup"),
		ProcessedDir:    getEnv("PROCESSED_DIR", "processed"),
		BoundingBoxFile: getEnv("BOUNDING_BOX_FILE", "bounding_boxes.json"),
		ReportDir:       getEnv("REPORT_DIR", "."),
		LogFile:         getEnvRaw("LOG_FILE", "app.log"),

		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxTransportRetries: getEnvInt("MAX_TRANSPORT_RETRIES", 1),
		RateLimitDefault:    time.Duration(getEnvInt("RATE_LIMIT_DEFAULT_SECONDS", 30)) * time.Second,
		PaceMin:             time.Duration(getEnvInt("PACE_MIN_MS", 1000)) * time.Millisecond,
		PaceMax:             time.Duration(getEnvInt("PACE_MAX_MS", 3000)) * time.Millisecond,

		CheckpointEvery: getEnvInt("CHECKPOINT_EVERY", 10),
		SaveRetries:     getEnvInt("SAVE_RETRIES", 3),
		SaveRetryDelay:  time.Duration(getEnvInt("SAVE_RETRY_DELAY_MS", 2000)) * time.Millisecond,

		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
		ShowRules:   getEnvBool("SHOW_RULES", true),
	}
}

// Validate checks the settings the run cannot start without.
func (c *Config) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvRaw distinguishes "unset" from "set to empty".
func getEnvRaw(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.ToLower(strings.TrimSpace(val)) == "true"
	}
	return fallback
}
