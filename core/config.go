package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		AppName  string
		Build    string

		DatabaseURL string
		SecretKey   string

		Server   ServerConfig
		AI       AIConfig
		Email    EmailConfig
		Rollbar  string
		Frontend string
	}

	ServerConfig struct {
		Address            string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		CORSAllowedOrigins []string
	}

	AIConfig struct {
		Provider        string // openai | anthropic
		OpenAIKey       string
		OpenAIBaseURL   string
		AnthropicKey    string
		Model           string
		MaxOutputTokens int
	}

	EmailConfig struct {
		SendgridAPIKey   string
		DefaultFromEmail string
	}
)

// ErrMissingConfig is returned by NewConfig when a required setting is absent.
var ErrMissingConfig = errors.New("missing required configuration")

func newViper() *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", false)
	v.SetDefault("app_name", "Elimu")
	v.SetDefault("build", "develop")
	v.SetDefault("jwt_expiration_delta", 24*time.Hour)
	v.SetDefault("server_address", ":5000")
	v.SetDefault("server_shutdown_timeout", 10*time.Second)
	v.SetDefault("cors_allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("ai_provider", "openai")
	v.SetDefault("ai_model", "")
	v.SetDefault("ai_max_output_tokens", 1024)
	v.SetDefault("default_from_email", "Elimu <noreply@localhost>")
	v.SetDefault("frontend_base_url", "http://localhost:5173")

	for _, key := range []string{
		"database_url", "jwt_secret_key", "openai_api_key", "openai_base_url", "anthropic_api_key",
		"rollbar_token", "sendgrid_api_key",
	} {
		v.SetDefault(key, "")
	}

	v.AutomaticEnv()
	return v
}

// loadDotEnv loads config/.env.<env> then .env from the working directory.
// Missing files are ignored; variables already set in the environment win.
func loadDotEnv(env string) error {
	wd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "getting working directory")
	}
	paths := []string{
		filepath.Join(wd, "config", ".env."+strings.ToLower(env)),
		filepath.Join(wd, ".env"),
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "stat %s", path)
		}
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "loading %s", path)
		}
	}
	return nil
}

// NewConfig reads the process configuration. It fails fast when the database URL
// or the token signing secret is absent.
func NewConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (default), TEST, PROD
	if env == "" {
		env = "DEV"
	}
	if err := loadDotEnv(env); err != nil {
		return nil, err
	}

	v := newViper()
	conf := &Config{
		Env:         env,
		Debug:       v.GetBool("debug"),
		TestMode:    env == "TEST",
		AppName:     v.GetString("app_name"),
		Build:       v.GetString("build"),
		DatabaseURL: v.GetString("database_url"),
		SecretKey:   v.GetString("jwt_secret_key"),
		Server: ServerConfig{
			Address:            v.GetString("server_address"),
			ShutdownTimeout:    v.GetDuration("server_shutdown_timeout"),
			JWTExpirationDelta: v.GetDuration("jwt_expiration_delta"),
			CORSAllowedOrigins: splitList(v.GetStringSlice("cors_allowed_origins")),
		},
		AI: AIConfig{
			Provider:        strings.ToLower(v.GetString("ai_provider")),
			OpenAIKey:       v.GetString("openai_api_key"),
			OpenAIBaseURL:   v.GetString("openai_base_url"),
			AnthropicKey:    v.GetString("anthropic_api_key"),
			Model:           v.GetString("ai_model"),
			MaxOutputTokens: v.GetInt("ai_max_output_tokens"),
		},
		Email: EmailConfig{
			SendgridAPIKey:   v.GetString("sendgrid_api_key"),
			DefaultFromEmail: v.GetString("default_from_email"),
		},
		Rollbar:  v.GetString("rollbar_token"),
		Frontend: v.GetString("frontend_base_url"),
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (conf *Config) validate() error {
	var missing []string
	if conf.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if conf.SecretKey == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if len(missing) > 0 {
		return errors.Wrap(ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

// AIKey returns the API key of the configured AI provider, empty when unset.
func (conf *Config) AIKey() string {
	switch conf.AI.Provider {
	case "anthropic":
		return conf.AI.AnthropicKey
	default:
		return conf.AI.OpenAIKey
	}
}

// splitList flattens comma separated entries, as read from a single env var.
func splitList(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, val := range vals {
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
