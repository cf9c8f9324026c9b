package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string

	GeminiAPIKey string
	GeminiModel  string

	SMTPServer   string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	BackendTeamEmail string
	CodeTeamEmail    string
	RehitTeamEmail   string

	// SendTransport selects how summaries are delivered: "gmail" or "smtp".
	SendTransport string

	DatabasePath string

	LogLevel string
	LogFile  string

	CheckInterval     time.Duration
	MaxEmailsPerBatch int
	RetryAttempts     int
	RetryDelay        time.Duration

	// StatusPort enables the daemon status HTTP server when non-empty.
	StatusPort string
}

// Load reads configuration from environment variables. All credentials and
// team addresses are required; missing values abort startup. Parent
// directories for the audit store and log file are created as a side effect.
func Load() (Config, error) {
	// Best-effort load of a local env file for dev convenience.
	loadEnvFiles(".env")

	cfg := Config{
		GmailClientID:     os.Getenv("GMAIL_CLIENT_ID"),
		GmailClientSecret: os.Getenv("GMAIL_CLIENT_SECRET"),
		GmailRefreshToken: os.Getenv("GMAIL_REFRESH_TOKEN"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-pro"),
		SMTPServer:        getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		BackendTeamEmail:  os.Getenv("BACKEND_TEAM_EMAIL"),
		CodeTeamEmail:     os.Getenv("CODE_TEAM_EMAIL"),
		RehitTeamEmail:    os.Getenv("REHIT_TEAM_EMAIL"),
		SendTransport:     normalizeTransport(getEnv("SEND_TRANSPORT", "gmail")),
		DatabasePath:      getEnv("DATABASE_PATH", "data/processed_emails.csv"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		LogFile:           getEnv("LOG_FILE", "logs/alert_processor.log"),
		CheckInterval:     time.Duration(getEnvInt("CHECK_INTERVAL_MINUTES", 5)) * time.Minute,
		MaxEmailsPerBatch: getEnvInt("MAX_EMAILS_PER_BATCH", 10),
		RetryAttempts:     getEnvInt("RETRY_ATTEMPTS", 3),
		RetryDelay:        time.Duration(getEnvInt("RETRY_DELAY_SECONDS", 5)) * time.Second,
		StatusPort:        os.Getenv("STATUS_PORT"),
	}

	if missing := cfg.missingRequired(); len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	for _, path := range []string{cfg.DatabasePath, cfg.LogFile} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Config{}, fmt.Errorf("create directory %s: %w", dir, err)
			}
		}
	}

	return cfg, nil
}

func (c Config) missingRequired() []string {
	required := []struct {
		name  string
		value string
	}{
		{"GMAIL_CLIENT_ID", c.GmailClientID},
		{"GMAIL_CLIENT_SECRET", c.GmailClientSecret},
		{"GMAIL_REFRESH_TOKEN", c.GmailRefreshToken},
		{"GEMINI_API_KEY", c.GeminiAPIKey},
		{"SMTP_USERNAME", c.SMTPUsername},
		{"SMTP_PASSWORD", c.SMTPPassword},
		{"BACKEND_TEAM_EMAIL", c.BackendTeamEmail},
		{"CODE_TEAM_EMAIL", c.CodeTeamEmail},
		{"REHIT_TEAM_EMAIL", c.RehitTeamEmail},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	return missing
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func normalizeTransport(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "smtp":
		return "smtp"
	default:
		return "gmail"
	}
}
