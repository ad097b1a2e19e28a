package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// REDLINE_PAYMENT_CLIENT_KEY for payment.client_key.
const EnvPrefix = "REDLINE"

// Session backends.
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

// Gateway kinds.
const (
	GatewayToss    = "toss"
	GatewaySandbox = "sandbox"
)

// Producer modes.
const (
	ProducerGemini = "gemini"
	ProducerRemote = "remote"
	ProducerStatic = "static"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Producer ProducerConfig `mapstructure:"producer"`
	Email    EmailConfig    `mapstructure:"email"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Env  string `mapstructure:"env"`
	// BasePath mounts the app under a sub-path ("" or "/redline").
	BasePath string `mapstructure:"base_path"`
	// AppURL is the public origin used for gateway return URLs. When empty
	// the origin of the initiating request is used.
	AppURL         string   `mapstructure:"app_url"`
	StaticDir      string   `mapstructure:"static_dir"`
	TrustedOrigins []string `mapstructure:"trusted_origins"`
	RateLimit      int      `mapstructure:"rate_limit"`
	RateBurst      int      `mapstructure:"rate_burst"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	Backend    string        `mapstructure:"backend"`
	IdleTTL    time.Duration `mapstructure:"idle_ttl"`
	Secret     string        `mapstructure:"secret"`
	SecretFile string        `mapstructure:"secret_file"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PaymentConfig struct {
	Gateway       string `mapstructure:"gateway"`
	ClientKey     string `mapstructure:"client_key"`
	SecretKey     string `mapstructure:"secret_key"`
	SecretKeyFile string `mapstructure:"secret_key_file"`
	Amount        int64  `mapstructure:"amount"`
	OrderName     string `mapstructure:"order_name"`
	Method        string `mapstructure:"method"`
	SDKURL        string `mapstructure:"sdk_url"`
	APIURL        string `mapstructure:"api_url"`
	// ConfirmEndpoint points at a remote confirmation backend. Empty means
	// the in-process confirmation service is used.
	ConfirmEndpoint string        `mapstructure:"confirm_endpoint"`
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
	SDKTimeout      time.Duration `mapstructure:"sdk_timeout"`
}

type ProducerConfig struct {
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	Remote  RemoteConfig  `mapstructure:"remote"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api_key"`
	APIKeyFile   string `mapstructure:"api_key_file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max_log_length"`
}

type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type EmailConfig struct {
	ResendKey     string `mapstructure:"resend_key"`
	ResendKeyFile string `mapstructure:"resend_key_file"`
	From          string `mapstructure:"from"`
	ReplyTo       string `mapstructure:"reply_to"`
	// LeadNotify receives a message for every captured lead. Empty disables it.
	LeadNotify string `mapstructure:"lead_notify"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// SetDefaults registers every key on v. Keys without a default still need
// registering so AutomaticEnv can see them during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.base_path", "")
	v.SetDefault("server.app_url", "")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.trusted_origins", []string{"localhost:8080", "127.0.0.1:8080"})
	v.SetDefault("server.rate_limit", 10)
	v.SetDefault("server.rate_burst", 20)

	v.SetDefault("database.path", "redline.db")

	v.SetDefault("session.backend", SessionBackendSQLite)
	v.SetDefault("session.idle_ttl", 24*time.Hour)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.secret_file", "")
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)

	v.SetDefault("payment.gateway", GatewayToss)
	v.SetDefault("payment.client_key", "")
	v.SetDefault("payment.secret_key", "")
	v.SetDefault("payment.secret_key_file", "")
	v.SetDefault("payment.confirm_endpoint", "")
	v.SetDefault("payment.amount", 2000)
	v.SetDefault("payment.order_name", "REDLINE Resume Verification")
	v.SetDefault("payment.method", "카드")
	v.SetDefault("payment.sdk_url", "https://js.tosspayments.com/v1/payment")
	v.SetDefault("payment.api_url", "https://api.tosspayments.com")
	v.SetDefault("payment.confirm_timeout", 20*time.Second)
	v.SetDefault("payment.sdk_timeout", 10*time.Second)

	v.SetDefault("producer.mode", ProducerStatic)
	v.SetDefault("producer.timeout", 60*time.Second)
	v.SetDefault("producer.gemini.model", "gemini-2.5-pro")
	v.SetDefault("producer.gemini.max_log_length", 200)
	v.SetDefault("producer.gemini.api_key", "")
	v.SetDefault("producer.gemini.api_key_file", "")
	v.SetDefault("producer.remote.base_url", "")

	v.SetDefault("email.resend_key", "")
	v.SetDefault("email.resend_key_file", "")
	v.SetDefault("email.from", "REDLINE <noreply@redline.local>")
	v.SetDefault("email.reply_to", "")
	v.SetDefault("email.lead_notify", "")

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// BindEnv wires REDLINE_* environment overrides onto v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads an optional config file and env overrides into a Config.
// PRE: file may be empty, in which case redline.yaml in the working
// directory is used if present.
// POST: returns a validated Config
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	BindEnv(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("redline")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.BasePath = NormalizeBasePath(cfg.Server.BasePath)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum fields and value ranges. Missing payment credentials
// are not a config error: the payment feature reports CONFIG_MISSING at
// use time while the rest of the app keeps working.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case SessionBackendSQLite, SessionBackendRedis:
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q", SessionBackendSQLite, SessionBackendRedis, c.Session.Backend)
	}
	switch c.Payment.Gateway {
	case GatewayToss, GatewaySandbox:
	default:
		return fmt.Errorf("payment.gateway must be %q or %q, got %q", GatewayToss, GatewaySandbox, c.Payment.Gateway)
	}
	// The sandbox approves any sandbox_ payment key.
	if c.Payment.Gateway == GatewaySandbox && c.IsProduction() {
		return fmt.Errorf("payment.gateway %q is not allowed when server.env is production", GatewaySandbox)
	}
	switch c.Producer.Mode {
	case ProducerGemini, ProducerRemote, ProducerStatic:
	default:
		return fmt.Errorf("producer.mode must be one of gemini, remote, static, got %q", c.Producer.Mode)
	}
	if c.Producer.Mode == ProducerRemote && c.Producer.Remote.BaseURL == "" {
		return fmt.Errorf("producer.remote.base_url is required when producer.mode is remote")
	}
	if c.Payment.Amount <= 0 {
		return fmt.Errorf("payment.amount must be positive, got %d", c.Payment.Amount)
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idle_ttl must be positive")
	}
	if c.Server.AppURL != "" {
		u, err := url.Parse(c.Server.AppURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.app_url must be an absolute URL, got %q", c.Server.AppURL)
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// NormalizeBasePath turns "redline/", "/redline" and "/" into "/redline",
// "/redline" and "" respectively.
func NormalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
