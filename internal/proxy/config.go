package proxy

import (
	"errors"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the proxy's environment-driven configuration. The proxy is
// deployed as a twelve-factor service, so unlike the coordinator it
// reads no config file.
type Config struct {
	Addr          string `env:"PLAINREAD_PROXY_ADDR" env-default:":8787"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// AllowedModels is the closed set of models clients may request.
	AllowedModels []string `env:"PLAINREAD_ALLOWED_MODELS" env-default:"gpt-4o-mini,gpt-4o"`
	// AllowedExtensions restricts callers by X-Extension-Id. Empty
	// means any caller is accepted.
	AllowedExtensions []string `env:"PLAINREAD_ALLOWED_EXTENSIONS"`

	RateWindowSeconds int `env:"PLAINREAD_RATE_WINDOW_SECONDS" env-default:"60"`
	RateWindowLimit   int `env:"PLAINREAD_RATE_WINDOW_LIMIT" env-default:"20"`
	RateDailyLimit    int `env:"PLAINREAD_RATE_DAILY_LIMIT" env-default:"200"`

	MinOutputTokens int `env:"PLAINREAD_MIN_OUTPUT_TOKENS" env-default:"64"`
	MaxOutputTokens int `env:"PLAINREAD_MAX_OUTPUT_TOKENS" env-default:"2000"`

	MetricsEnabled bool `env:"PLAINREAD_PROXY_METRICS" env-default:"true"`
}

// LoadConfig reads the proxy configuration from the environment,
// loading a .env file first if one is present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("proxy config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("proxy config: %w", err)
	}
	return cfg, nil
}

// Validate checks the parts that have no usable default.
func (c Config) Validate() error {
	if c.OpenAIKey == "" {
		return errors.New("OPENAI_API_KEY is not set")
	}
	if len(c.AllowedModels) == 0 {
		return errors.New("allowed model list is empty")
	}
	if c.MinOutputTokens <= 0 || c.MaxOutputTokens < c.MinOutputTokens {
		return fmt.Errorf("invalid token clamp [%d, %d]", c.MinOutputTokens, c.MaxOutputTokens)
	}
	return nil
}

// ModelAllowed reports whether model is in the allow-list.
func (c Config) ModelAllowed(model string) bool {
	for _, m := range c.AllowedModels {
		if m == model {
			return true
		}
	}
	return false
}

// ExtensionAllowed reports whether the calling extension may use the
// proxy. An empty allow-list accepts everyone.
func (c Config) ExtensionAllowed(id string) bool {
	if len(c.AllowedExtensions) == 0 {
		return true
	}
	for _, e := range c.AllowedExtensions {
		if e == id {
			return true
		}
	}
	return false
}
