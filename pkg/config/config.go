// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// App identity: descriptor key and outbound JWT issuer. BasePublicURL is
	// substituted into the served descriptor.
	AppKey        string
	BasePublicURL string

	// Issue tracker (basic-auth mode defaults; Connect installs carry their
	// own base URL in the registry).
	JiraBaseURL    string
	JiraEmail      string
	JiraAPIToken   string
	JiraProjectKey string

	// Generation endpoint
	GenerateURL         string
	GenerateModel       string
	GenerateMaxTokens   int
	GenerateTemperature float64
	GenerateTimeout     time.Duration
	GenerateExtractPath string

	DescriptionPolicy string // replace | append
	QSHCompat         bool   // placeholder qsh for the legacy peer
	DescriptorFile    string
	PromptsFile       string

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                 env("QALILAB_ENV", "dev"),
		HTTPAddr:            env("QALILAB_HTTP_ADDR", ":8080"),
		AppKey:              env("APP_KEY", "qalilab-testgen"),
		BasePublicURL:       env("BASE_PUBLIC_URL", "http://localhost:8080"),
		JiraBaseURL:         env("JIRA_BASE_URL", "amaniconsulting.atlassian.net"),
		JiraEmail:           env("JIRA_EMAIL", ""),
		JiraAPIToken:        env("JIRA_API_TOKEN", ""),
		JiraProjectKey:      env("JIRA_PROJECT_KEY", "ACD"),
		GenerateURL:         env("GENERATE_API_URL", "http://localhost:8000/v1/chat/completions"),
		GenerateModel:       env("GENERATE_MODEL", "mistral-7b-instruct-v0.3"),
		GenerateMaxTokens:   envInt("GENERATE_MAX_TOKENS", 256),
		GenerateTemperature: 0.7,
		GenerateTimeout:     envDur("GENERATE_TIMEOUT_SEC", 180) * time.Second,
		GenerateExtractPath: env("GENERATE_EXTRACT_PATH", "choices[0].message.content"),
		DescriptionPolicy:   env("DESC_UPDATE_POLICY", "append"),
		QSHCompat:           envBool("CONNECT_QSH_COMPAT", false),
		DescriptorFile:      env("DESCRIPTOR_FILE", "atlassian-connect.json"),
		PromptsFile:         env("PROMPTS_FILE", ""),
		RedisURL:            env("REDIS_URL", ""),
		DatabaseURL:         env("DATABASE_URL", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set — using in-memory tenant store (installs are lost on restart)")
	}
	if cfg.JiraEmail == "" || cfg.JiraAPIToken == "" {
		log.Println("[WARN] JIRA_EMAIL/JIRA_API_TOKEN not set — basic-auth tracker calls will fail per call")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return time.Duration(i)
		}
	}
	return time.Duration(def)
}
