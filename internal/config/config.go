package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config holds all configuration required by the API process and the CLI.
// Values come from env (APP_ENV, DB_HOST, PBX_BASE_URL, ...) or an optional YAML file.
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	DB     DBConfig     `mapstructure:"db"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Auth   AuthConfig   `mapstructure:"auth"`
	PBX    PBXConfig    `mapstructure:"pbx"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Lookup LookupConfig `mapstructure:"lookup"`
	NATS   NATSConfig   `mapstructure:"nats"`
	CDR    CDRConfig    `mapstructure:"cdr"`
}

type AppConfig struct {
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string `mapstructure:"sslmode"`

	MaxConns int32 `mapstructure:"max_conns"`
}

// RedisConfig is optional. An empty host disables the sync lock and the lookup cache.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTIssuer      string        `mapstructure:"jwt_issuer"`
	JWTAudience    string        `mapstructure:"jwt_audience"`
	AccessTokenTTL time.Duration `mapstructure:"access_ttl"`
}

// PBXConfig describes the external telephony switch feed.
type PBXConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Tenant  string `mapstructure:"tenant"`

	// RecordingURLTemplate may contain {id} and {tenant}. Derived from BaseURL when empty.
	RecordingURLTemplate string `mapstructure:"recording_url_template"`

	// SendDateRange controls whether start/end are sent to the feed at all.
	// Dated and undated responses disagree upstream; off until the vendor confirms.
	SendDateRange bool `mapstructure:"send_date_range"`

	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`

	// WebhookSecret, when set, must match the X-Webhook-Secret header.
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type SyncConfig struct {
	MaxRangeDays int           `mapstructure:"max_range_days"`
	ResyncWindow time.Duration `mapstructure:"resync_window"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

type LookupConfig struct {
	CountryCode string        `mapstructure:"country_code"`
	TrunkPrefix string        `mapstructure:"trunk_prefix"`
	SuffixLen   int           `mapstructure:"suffix_len"`
	RecentLimit int           `mapstructure:"recent_limit"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

// NATSConfig is optional; an empty URL publishes nothing.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type CDRConfig struct {
	RulesFile    string        `mapstructure:"rules_file"`
	NoData       string        `mapstructure:"no_data"`
	DirectoryTTL time.Duration `mapstructure:"directory_ttl"`
}

// keys lists every env-bindable key. viper only sees env vars for keys it knows about.
var keys = []string{
	"app.env", "app.port",
	"db.host", "db.port", "db.user", "db.password", "db.name", "db.sslmode", "db.max_conns",
	"redis.host", "redis.port", "redis.password", "redis.db",
	"auth.jwt_secret", "auth.jwt_issuer", "auth.jwt_audience", "auth.access_ttl",
	"pbx.base_url", "pbx.api_key", "pbx.tenant", "pbx.recording_url_template", "pbx.send_date_range",
	"pbx.timeout", "pbx.rate_per_second", "pbx.webhook_secret",
	"sync.max_range_days", "sync.resync_window", "sync.lock_ttl",
	"lookup.country_code", "lookup.trunk_prefix", "lookup.suffix_len", "lookup.recent_limit", "lookup.cache_ttl",
	"nats.url", "nats.subject",
	"cdr.rules_file", "cdr.no_data", "cdr.directory_ttl",
}

// Load reads the optional config file and the environment, then validates.
// configFile may be empty.
func Load(configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return Config{}, eris.Wrapf(err, "config: bind %s", k)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, eris.Wrap(err, "config: read file")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, eris.Wrap(err, "config: unmarshal")
	}
	c.App.Env = strings.TrimSpace(c.App.Env)
	c.DB.Host = strings.TrimSpace(c.DB.Host)
	c.PBX.BaseURL = strings.TrimSpace(c.PBX.BaseURL)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 8080)
	v.SetDefault("db.port", 5432)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("pbx.timeout", 30*time.Second)
	v.SetDefault("pbx.rate_per_second", 2.0)
	v.SetDefault("pbx.send_date_range", false)
	v.SetDefault("sync.max_range_days", 30)
	v.SetDefault("sync.resync_window", time.Hour)
	v.SetDefault("sync.lock_ttl", 10*time.Minute)
	v.SetDefault("lookup.country_code", "972")
	v.SetDefault("lookup.trunk_prefix", "0")
	v.SetDefault("lookup.suffix_len", 8)
	v.SetDefault("lookup.recent_limit", 5)
	v.SetDefault("lookup.cache_ttl", 30*time.Second)
	v.SetDefault("nats.subject", "calls.logged")
	v.SetDefault("cdr.no_data", "N/A")
	v.SetDefault("cdr.directory_ttl", 5*time.Minute)
}

// Validate checks required values and fills env-dependent defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("AUTH_JWT_ISSUER is required in production"))
		}
		if c.PBX.WebhookSecret == "" {
			errs = append(errs, errors.New("PBX_WEBHOOK_SECRET is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.PBX.BaseURL == "" {
		errs = append(errs, errors.New("PBX_BASE_URL is required"))
	}
	if c.PBX.APIKey == "" {
		errs = append(errs, errors.New("PBX_API_KEY is required"))
	}
	if c.PBX.Tenant == "" {
		errs = append(errs, errors.New("PBX_TENANT is required"))
	}
	if c.PBX.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("PBX_RATE_PER_SECOND must be >= 0, got %v", c.PBX.RatePerSecond))
	}

	if c.Sync.MaxRangeDays <= 0 {
		c.Sync.MaxRangeDays = 30
	}
	if c.Sync.ResyncWindow <= 0 {
		c.Sync.ResyncWindow = time.Hour
	}
	if c.Lookup.SuffixLen < 7 {
		errs = append(errs, fmt.Errorf("LOOKUP_SUFFIX_LEN must be >= 7, got %d", c.Lookup.SuffixLen))
	}
	if c.Lookup.RecentLimit <= 0 {
		c.Lookup.RecentLimit = 5
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}

// RecordingTemplate returns the configured recording URL template, or one
// derived from the feed base URL. The API key is never part of the URL.
func (p PBXConfig) RecordingTemplate() string {
	if p.RecordingURLTemplate != "" {
		return p.RecordingURLTemplate
	}
	sep := "?"
	if strings.Contains(p.BaseURL, "?") {
		sep = "&"
	}
	return p.BaseURL + sep + "request-type=INFO&info=recording&id={id}&tenant={tenant}"
}
