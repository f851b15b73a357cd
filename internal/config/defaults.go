package config

// DefaultBackendURL is the default identity/registration backend.
const DefaultBackendURL = "https://api.onboard.local/v1"

// DefaultChatURL is the default chat provisioning endpoint.
const DefaultChatURL = "https://chat.onboard.local"

// DefaultRatesURL is the default exchange-rate endpoint (CryptoCompare compatible).
const DefaultRatesURL = "https://min-api.cryptocompare.com/data"

// DefaultWorkFactor is log2 of the scrypt cost, N=16384.
const DefaultWorkFactor = 14

// DefaultFiatCurrencies are the fiat symbols requested from the rate service.
//
//nolint:gochecknoglobals // Configuration default, same pattern as the URL constants
var DefaultFiatCurrencies = []string{"USD", "EUR", "GBP"}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.onboard",
		Store: StoreConfig{
			Backend: StoreBolt,
			Path:    "state.db",
		},
		Backend: ServiceConfig{
			URL:            DefaultBackendURL,
			TimeoutSeconds: 30,
			RatePerSecond:  5,
			Burst:          10,
		},
		Chat: ServiceConfig{
			URL:            DefaultChatURL,
			TimeoutSeconds: 30,
			RatePerSecond:  2,
			Burst:          4,
		},
		Rates: RatesConfig{
			ServiceConfig: ServiceConfig{
				URL:            DefaultRatesURL,
				TimeoutSeconds: 15,
				RatePerSecond:  1,
				Burst:          2,
			},
			Fiat: DefaultFiatCurrencies,
		},
		Encryption: EncryptionConfig{
			WorkFactor: DefaultWorkFactor,
			PINSalt:    "onboard",
		},
		Onboarding: OnboardingConfig{
			UIYieldMillis:       50,
			RetryDelayMillis:    1000,
			UsernameDelayMillis: 200,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.onboard/onboard.log",
		},
	}
}
