package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/solatis/thomson/internal/types"
)

// EnvPrefix namespaces environment overrides, e.g. THOMSON_SERVE_PORT.
const EnvPrefix = "THOMSON"

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller after LoadConfig returns.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching DefaultConfig
	def := DefaultConfig()
	v.SetDefault("transform.max_depth", def.Transform.MaxDepth)
	v.SetDefault("transform.pretty", def.Transform.Pretty)
	v.SetDefault("store.url", def.Store.URL)
	v.SetDefault("serve.host", def.Serve.Host)
	v.SetDefault("serve.port", def.Serve.Port)
	v.SetDefault("serve.http_port", def.Serve.HTTPPort)
	v.SetDefault("serve.max_connections", def.Serve.MaxConnections)
	v.SetDefault("serve.request_timeout", def.Serve.RequestTimeout.String())
	v.SetDefault("serve.max_document_size", def.Serve.MaxDocumentSize)
	v.SetDefault("serve.api_keys", "")
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	// Bind environment variables with THOMSON_ prefix
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: database credentials stay out of config files
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Transform: TransformConfig{
			MaxDepth: v.GetInt("transform.max_depth"),
			Pretty:   v.GetBool("transform.pretty"),
		},
		Store: StoreConfig{
			URL: v.GetString("store.url"),
		},
		Serve: ServeConfig{
			Host:            v.GetString("serve.host"),
			Port:            v.GetInt("serve.port"),
			HTTPPort:        v.GetInt("serve.http_port"),
			MaxConnections:  v.GetInt("serve.max_connections"),
			RequestTimeout:  v.GetDuration("serve.request_timeout"),
			MaxDocumentSize: v.GetInt("serve.max_document_size"),
			APIKeys:         splitList(v.GetString("serve.api_keys")),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks ranges of every setting. Callers re-run it after applying
// CLI flag overrides.
func Validate(cfg *Config) error {
	if cfg.Transform.MaxDepth <= 0 || cfg.Transform.MaxDepth > types.MaxDocumentDepth {
		return fmt.Errorf("max_depth must be between 1 and %d, got %d", types.MaxDocumentDepth, cfg.Transform.MaxDepth)
	}
	if err := validatePort("port", cfg.Serve.Port); err != nil {
		return err
	}
	if err := validatePort("http_port", cfg.Serve.HTTPPort); err != nil {
		return err
	}
	if cfg.Serve.Port == cfg.Serve.HTTPPort {
		return fmt.Errorf("port and http_port must differ, both are %d", cfg.Serve.Port)
	}
	if cfg.Serve.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.Serve.MaxConnections)
	}
	if cfg.Serve.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Serve.RequestTimeout)
	}
	if cfg.Serve.MaxDocumentSize <= 0 {
		return fmt.Errorf("max_document_size must be positive, got %d", cfg.Serve.MaxDocumentSize)
	}
	if cfg.Store.URL != "" {
		u, err := url.Parse(cfg.Store.URL)
		if err != nil {
			return fmt.Errorf("invalid store url: %w", err)
		}
		if u.Scheme != "sqlite" && u.Scheme != "postgres" {
			return fmt.Errorf("store url scheme must be sqlite or postgres, got %q", u.Scheme)
		}
	}
	return nil
}

func validatePort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only database passwords and
// API keys (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("serve.api_keys") {
		return fmt.Errorf("API keys not allowed in config files (use %s_SERVE_API_KEYS environment variable)", EnvPrefix)
	}
	if !v.InConfig("store.url") {
		return nil
	}
	u, err := url.Parse(v.GetString("store.url"))
	if err != nil {
		// reported by Validate
		return nil
	}
	if _, hasPassword := u.User.Password(); hasPassword && !envSet("store.url") {
		return fmt.Errorf("database passwords not allowed in config files (use %s_STORE_URL environment variable)", EnvPrefix)
	}
	return nil
}

// splitList splits a comma separated value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envSet reports whether key is overridden from the environment.
func envSet(key string) bool {
	name := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	_, ok := os.LookupEnv(name)
	return ok
}
