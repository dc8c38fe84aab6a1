package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CRMCredentials holds the OAuth2 client-credentials settings for one CRM system.
type CRMCredentials struct {
	ClientID          string
	ClientSecret      string
	TokenURL          string
	BaseURL           string
	Scopes            []string
	RequestsPerMinute int
}

type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string
	JWTExpiry   time.Duration

	// AI provider settings for insight extraction
	AIEndpoint string
	AIAPIKey   string
	AIModel    string

	// CRM systems keyed by identifier: salesforce, hubspot, creatio, sapc4c.
	// A system with no client ID configured is treated as disabled.
	CRM map[string]CRMCredentials

	Debug bool
}

func LoadConfig() (*Config, error) {
	expiryStr := getEnv("JWT_EXPIRY", "24h")
	expiry, err := time.ParseDuration(expiryStr)
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTExpiry:   expiry,
		AIEndpoint:  getEnv("AI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		AIAPIKey:    os.Getenv("AI_API_KEY"),
		AIModel:     getEnv("AI_MODEL", "gpt-4o-mini"),
		Debug:       os.Getenv("DEBUG") != "",
		CRM:         map[string]CRMCredentials{},
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	for _, system := range []string{"salesforce", "hubspot", "creatio", "sapc4c"} {
		creds, err := loadCRMCredentials(system)
		if err != nil {
			return nil, err
		}
		if creds.ClientID == "" {
			continue
		}
		cfg.CRM[system] = creds
	}

	return cfg, nil
}

// loadCRMCredentials reads one system's settings from env vars named after the
// upper-cased system identifier, e.g. SALESFORCE_CLIENT_ID.
func loadCRMCredentials(system string) (CRMCredentials, error) {
	prefix := envPrefix(system)

	creds := CRMCredentials{
		ClientID:     os.Getenv(prefix + "_CLIENT_ID"),
		ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
		TokenURL:     os.Getenv(prefix + "_TOKEN_URL"),
		BaseURL:      os.Getenv(prefix + "_BASE_URL"),
	}

	if creds.ClientID == "" {
		return creds, nil
	}

	if creds.ClientSecret == "" {
		return creds, fmt.Errorf("%s_CLIENT_SECRET is required when %s_CLIENT_ID is set", prefix, prefix)
	}
	if creds.TokenURL == "" {
		return creds, fmt.Errorf("%s_TOKEN_URL is required when %s_CLIENT_ID is set", prefix, prefix)
	}
	if creds.BaseURL == "" {
		return creds, fmt.Errorf("%s_BASE_URL is required when %s_CLIENT_ID is set", prefix, prefix)
	}

	if scope := os.Getenv(prefix + "_SCOPES"); scope != "" {
		creds.Scopes = []string{scope}
	}

	rpmStr := getEnv(prefix+"_REQUESTS_PER_MINUTE", "60")
	rpm, err := strconv.Atoi(rpmStr)
	if err != nil || rpm <= 0 {
		return creds, fmt.Errorf("invalid %s_REQUESTS_PER_MINUTE value", prefix)
	}
	creds.RequestsPerMinute = rpm

	return creds, nil
}

func envPrefix(system string) string {
	switch system {
	case "salesforce":
		return "SALESFORCE"
	case "hubspot":
		return "HUBSPOT"
	case "creatio":
		return "CREATIO"
	case "sapc4c":
		return "SAPC4C"
	}
	return system
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
