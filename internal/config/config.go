package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Docs      DocsConfig      `mapstructure:"docs"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	Host string `mapstructure:"host"`
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers
	// are believed. Empty trusts none and keys clients by socket address.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type WarehouseConfig struct {
	ProjectID       string        `mapstructure:"project_id"`
	Location        string        `mapstructure:"location"`
	CredentialsJSON string        `mapstructure:"credentials_json"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

type SecurityConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	DocsToken         string        `mapstructure:"docs_token"`
	EnableRateLimit   bool          `mapstructure:"enable_rate_limit"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DocsConfig struct {
	ProductionURL string `mapstructure:"production_url"`
}

// envBindings maps config keys to the environment names used by existing
// deployments, in addition to the automatic SECTION_KEY form.
var envBindings = map[string][]string{
	"server.port":                  {"PORT"},
	"server.host":                  {"HOST"},
	"server.mode":                  {"GIN_MODE"},
	"server.trusted_proxies":       {"TRUSTED_PROXIES"},
	"warehouse.project_id":         {"GCP_PROJECT_ID"},
	"warehouse.location":           {"GCP_LOCATION"},
	"warehouse.credentials_json":   {"GCP_CREDENTIALS_JSON"},
	"warehouse.credentials_file":   {"GOOGLE_APPLICATION_CREDENTIALS"},
	"warehouse.query_timeout":      {"WAREHOUSE_QUERY_TIMEOUT"},
	"security.api_key":             {"API_KEY"},
	"security.allowed_origins":     {"ALLOWED_ORIGINS"},
	"security.docs_token":          {"SWAGGER_TOKEN"},
	"security.enable_rate_limit":   {"ENABLE_RATE_LIMIT"},
	"security.rate_limit_requests": {"RATE_LIMIT_REQUESTS"},
	"security.rate_limit_window":   {"RATE_LIMIT_WINDOW"},
	"logging.level":                {"LOG_LEVEL"},
	"logging.format":               {"LOG_FORMAT"},
	"metrics.enabled":              {"METRICS_ENABLED"},
	"docs.production_url":          {"PRODUCTION_URL"},
}

// Load reads configuration from an optional YAML file, a .env file and the
// environment. An empty configFile searches ./configs and the working
// directory for config.yaml.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set default values
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		automatic := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, automatic}, envs...)...); err != nil {
			return nil, fmt.Errorf("error binding environment for %s: %w", key, err)
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Security.AllowedOrigins = splitOrigins(config.Security.AllowedOrigins)
	config.Server.TrustedProxies = splitList(config.Server.TrustedProxies)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.trusted_proxies", []string{})

	// Warehouse defaults
	v.SetDefault("warehouse.query_timeout", "5m")

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.enable_rate_limit", true)
	v.SetDefault("security.rate_limit_requests", 100)
	v.SetDefault("security.rate_limit_window", "15m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
}

// splitList accepts both YAML lists and comma separated values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func splitOrigins(origins []string) []string {
	out := splitList(origins)
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// Validate rejects configurations the gateway cannot start with
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port == "" {
		problems = append(problems, "server.port is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("server.mode %q is not one of debug, release, test", c.Server.Mode))
	}
	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				problems = append(problems, fmt.Sprintf("server.trusted_proxies entry %q is not an IP or CIDR", proxy))
			}
		}
	}
	if c.Warehouse.ProjectID == "" {
		problems = append(problems, "warehouse.project_id (GCP_PROJECT_ID) is required")
	}
	if c.Warehouse.QueryTimeout < 0 {
		problems = append(problems, "warehouse.query_timeout must not be negative")
	}
	if c.Security.APIKey == "" {
		problems = append(problems, "security.api_key (API_KEY) is required")
	}
	if c.Security.EnableRateLimit {
		if c.Security.RateLimitRequests <= 0 {
			problems = append(problems, "security.rate_limit_requests must be positive")
		}
		if c.Security.RateLimitWindow <= 0 {
			problems = append(problems, "security.rate_limit_window must be positive")
		}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of json, console", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
