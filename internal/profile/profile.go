package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Calorie lookup (Edamam food database)
	EdamamAppID             string
	EdamamAppKey            string
	EdamamBaseURL           string
	EdamamRequestsPerMinute int

	// Translation used when a food name is not found as typed.
	// Provider is "google", "llm" or empty to disable translation.
	TranslateProvider string
	TranslateTarget   string
	GoogleAPIKey      string

	// OpenAI-compatible LLM used by the "llm" translate provider
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
	LLMTimeout int // seconds

	// Alarm delivery channels besides the log
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
	SMTPHost         string
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPTo           string
	SMTPPort         int
	SMTPUseSSL       bool

	// TriggerCapacity bounds the number of pending daily triggers.
	TriggerCapacity int

	// Timezone is an IANA name. Empty means the host's local zone.
	Timezone string

	Mode    string
	Addr    string
	Data    string
	Driver  string
	DSN     string
	Version string
	Port    int

	loc *time.Location
}

// Translate providers.
const (
	TranslateGoogle = "google"
	TranslateLLM    = "llm"
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsNutritionEnabled returns true if Edamam credentials are configured.
func (p *Profile) IsNutritionEnabled() bool {
	return p.EdamamAppID != "" && p.EdamamAppKey != ""
}

// Location returns the location calendar days are bucketed in.
func (p *Profile) Location() *time.Location {
	if p.loc != nil {
		return p.loc
	}
	if p.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		slog.Warn("invalid timezone, using local", "timezone", p.Timezone, "error", err)
		return time.Local
	}
	return loc
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads integration settings from HEALTHLOG_* environment variables.
func (p *Profile) FromEnv() {
	p.EdamamAppID = getEnvOrDefault("HEALTHLOG_EDAMAM_APP_ID", "")
	p.EdamamAppKey = getEnvOrDefault("HEALTHLOG_EDAMAM_APP_KEY", "")
	p.EdamamBaseURL = getEnvOrDefault("HEALTHLOG_EDAMAM_BASE_URL", "")
	p.EdamamRequestsPerMinute = getEnvOrDefaultInt("HEALTHLOG_EDAMAM_REQUESTS_PER_MINUTE", 10)

	p.TranslateProvider = strings.ToLower(getEnvOrDefault("HEALTHLOG_TRANSLATE_PROVIDER", ""))
	p.TranslateTarget = getEnvOrDefault("HEALTHLOG_TRANSLATE_TARGET", "en")
	p.GoogleAPIKey = getEnvOrDefault("HEALTHLOG_GOOGLE_API_KEY", "")

	p.LLMAPIKey = getEnvOrDefault("HEALTHLOG_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("HEALTHLOG_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("HEALTHLOG_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("HEALTHLOG_LLM_TIMEOUT_SECONDS", 30)

	p.TelegramBotToken = getEnvOrDefault("HEALTHLOG_TELEGRAM_BOT_TOKEN", "")
	p.TelegramChatID = getEnvOrDefault("HEALTHLOG_TELEGRAM_CHAT_ID", "")
	p.WebhookURL = getEnvOrDefault("HEALTHLOG_WEBHOOK_URL", "")
	p.SMTPHost = getEnvOrDefault("HEALTHLOG_SMTP_HOST", "")
	p.SMTPPort = getEnvOrDefaultInt("HEALTHLOG_SMTP_PORT", 587)
	p.SMTPUsername = getEnvOrDefault("HEALTHLOG_SMTP_USERNAME", "")
	p.SMTPPassword = getEnvOrDefault("HEALTHLOG_SMTP_PASSWORD", "")
	p.SMTPFrom = getEnvOrDefault("HEALTHLOG_SMTP_FROM", "")
	p.SMTPTo = getEnvOrDefault("HEALTHLOG_SMTP_TO", "")
	p.SMTPUseSSL = getEnvOrDefault("HEALTHLOG_SMTP_SSL", "false") == "true"

	p.TriggerCapacity = getEnvOrDefaultInt("HEALTHLOG_TRIGGER_CAPACITY", 64)

	// Without a key the provider cannot work; fall back to no translation.
	switch p.TranslateProvider {
	case TranslateGoogle:
		if p.GoogleAPIKey == "" {
			slog.Warn("Google translate selected without HEALTHLOG_GOOGLE_API_KEY, translation disabled")
			p.TranslateProvider = ""
		}
	case TranslateLLM:
		if p.LLMAPIKey == "" {
			slog.Warn("LLM translate selected without HEALTHLOG_LLM_API_KEY, translation disabled")
			p.TranslateProvider = ""
		}
	case "":
	default:
		slog.Warn("Unknown translate provider, translation disabled", "provider", p.TranslateProvider)
		p.TranslateProvider = ""
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "healthlog")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/healthlog"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("healthlog_%s.db", p.Mode))
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	p.loc = time.Local
	if p.Timezone != "" {
		loc, err := time.LoadLocation(p.Timezone)
		if err != nil {
			return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
		}
		p.loc = loc
	}
	return nil
}
