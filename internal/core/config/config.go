package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type MpesaConfig struct {
	BaseURL             string
	APIKey              string
	PublicKey           string
	ServiceProviderCode string
}

type EmolaConfig struct {
	BaseURL  string
	ClientID string
	Token    string
	WalletID string
}

type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	// BaseURL is the public origin used in hosted checkout links.
	BaseURL string

	// OperatorToken guards the operator withdrawal endpoints.
	OperatorToken string

	WebhookSecret string

	MinWithdrawal  string
	GatewayTimeout time.Duration

	Mpesa MpesaConfig
	Emola EmolaConfig

	// Routes maps payer phone prefixes to provider codes. Policy data,
	// overridable per deployment.
	Routes map[string]string
}

// LoadConfig reads the optional .env file and assembles the runtime
// configuration from environment variables.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on system env variables")
	}

	return &Config{
		Port:          getEnv("PORT", "3000"),
		Env:           getEnv("ENV", "development"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		BaseURL:       getEnv("BASE_URL", "http://localhost:3000"),
		OperatorToken: getEnv("OPERATOR_TOKEN", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		MinWithdrawal: getEnv("MIN_WITHDRAWAL", "100"),

		GatewayTimeout: getDuration("GATEWAY_TIMEOUT", 30*time.Second),

		Mpesa: MpesaConfig{
			BaseURL:             getEnv("MPESA_BASE_URL", "https://api.vm.co.mz:18352"),
			APIKey:              getEnv("MPESA_API_KEY", ""),
			PublicKey:           getEnv("MPESA_PUBLIC_KEY", ""),
			ServiceProviderCode: getEnv("MPESA_SERVICE_PROVIDER_CODE", "900571"),
		},
		Emola: EmolaConfig{
			BaseURL:  getEnv("EMOLA_BASE_URL", "https://e2payments.explicador.co.mz"),
			ClientID: getEnv("EMOLA_CLIENT_ID", ""),
			Token:    getEnv("EMOLA_TOKEN", ""),
			WalletID: getEnv("EMOLA_WALLET_ID", ""),
		},

		Routes: routesFromEnv(),
	}
}

// routesFromEnv builds the prefix routing table. Defaults match the
// Mozambican numbering plan: 84/85 are M-Pesa, 86/87 are e-Mola.
func routesFromEnv() map[string]string {
	routes := make(map[string]string)
	for _, prefix := range splitList(getEnv("MPESA_PREFIXES", "84,85")) {
		routes[prefix] = "mpesa"
	}
	for _, prefix := range splitList(getEnv("EMOLA_PREFIXES", "86,87")) {
		routes[prefix] = "emola"
	}
	return routes
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in env, using fallback", "key", key, "value", value)
		return fallback
	}
	return d
}
