package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Provider credentials. An empty value means the provider is never
	// registered — absence removes it from the candidate list entirely.
	MistralAPIKey    string
	OpenRouterAPIKey string
	ElevenLabsAPIKey string
	StabilityAPIKey  string
	HeyGenAPIKey     string
	MakeWebhookURL   string // automation, declared-only
	GDocsAPIKey      string // storage, declared-only

	OpenRouterReferer string

	// Routing
	QuotaWindow    time.Duration // per-provider usage window, default 24h
	AttemptTimeout time.Duration // per-attempt bound, default 5m (video renders poll slowly)

	// Outputs
	OutputDir      string // where binary artifacts land, default ./outputs
	RequestLogPath string // append-only attempt log, default ./requests.log

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"
	LogLevel             string // logrus level, default "info"
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		MistralAPIKey:        os.Getenv("MISTRAL_API_KEY"),
		OpenRouterAPIKey:     os.Getenv("OPENROUTER_API_KEY"),
		ElevenLabsAPIKey:     os.Getenv("ELEVENLABS_API_KEY"),
		StabilityAPIKey:      os.Getenv("STABILITY_API_KEY"),
		HeyGenAPIKey:         os.Getenv("HEYGEN_API_KEY"),
		MakeWebhookURL:       os.Getenv("MAKE_WEBHOOK_URL"),
		GDocsAPIKey:          os.Getenv("GDOCS_API_KEY"),
		OpenRouterReferer:    getEnv("OPENROUTER_REFERER", "https://adcanvas.app"),
		OutputDir:            getEnv("OUTPUT_DIR", "./outputs"),
		RequestLogPath:       getEnv("REQUEST_LOG_PATH", "./requests.log"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	windowHours, err := getEnvInt("QUOTA_WINDOW_HOURS", 24)
	if err != nil {
		return nil, err
	}
	cfg.QuotaWindow = time.Duration(windowHours) * time.Hour

	timeoutSecs, err := getEnvInt("ATTEMPT_TIMEOUT_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	cfg.AttemptTimeout = time.Duration(timeoutSecs) * time.Second

	return cfg, nil
}

// Capacity returns the per-window call capacity for a provider, overridable
// via QUOTA_CAPACITY_<NAME> (e.g. QUOTA_CAPACITY_MISTRAL=200).
func Capacity(name string, fallback int) int {
	v, err := getEnvInt("QUOTA_CAPACITY_"+toEnvKey(name), fallback)
	if err != nil {
		return fallback
	}
	return v
}

func toEnvKey(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
