package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome         = "ONBOARD_HOME"
	EnvBackendURL   = "ONBOARD_BACKEND_URL"
	EnvChatURL      = "ONBOARD_CHAT_URL"
	EnvRatesURL     = "ONBOARD_RATES_URL"
	EnvStore        = "ONBOARD_STORE"
	EnvPushToken    = "ONBOARD_PUSH_TOKEN" // #nosec G101 -- false positive, this is a const name not a credential
	EnvWorkFactor   = "ONBOARD_SCRYPT_WORK_FACTOR"
	EnvOutputFormat = "ONBOARD_OUTPUT_FORMAT"
	EnvVerbose      = "ONBOARD_VERBOSE"
	EnvLogLevel     = "ONBOARD_LOG_LEVEL"
	EnvNoColor      = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvBackendURL); v != "" {
		cfg.Backend.URL = SanitizeURL(v)
	}

	if v := os.Getenv(EnvChatURL); v != "" {
		cfg.Chat.URL = SanitizeURL(v)
	}

	if v := os.Getenv(EnvRatesURL); v != "" {
		cfg.Rates.URL = SanitizeURL(v)
	}

	if v := os.Getenv(EnvStore); v != "" {
		switch b := strings.ToLower(strings.TrimSpace(v)); b {
		case StoreBolt, StoreSQLite, StoreMemory, StoreFile:
			cfg.Store.Backend = b
		}
	}

	if v := os.Getenv(EnvPushToken); v != "" {
		cfg.Push.Token = strings.TrimSpace(v)
	}

	// Work factor is bounded to what age accepts for scrypt
	if v := os.Getenv(EnvWorkFactor); v != "" {
		if wf, err := strconv.Atoi(v); err == nil && wf > 0 && wf <= 22 {
			cfg.Encryption.WorkFactor = wf
		}
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
