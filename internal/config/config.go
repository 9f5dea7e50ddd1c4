package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "default-secret-min-32-chars-required!!"

type Config struct {
	Port              string `mapstructure:"PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32  `mapstructure:"DB_MIN_CONNS"`
	JWTSecretRaw      string `mapstructure:"JWT_SECRET"`
	JWTTTLHours       int    `mapstructure:"JWT_TTL_HOURS"`
	CORSOriginsRaw    string `mapstructure:"CORS_ORIGINS"`
	RequestTimeoutSec int    `mapstructure:"REQUEST_TIMEOUT_SEC"`
	LoginRatePerMin   int    `mapstructure:"LOGIN_RATE_PER_MIN"`
	// EHR: chaves AES-256 versionadas "v1:<base64>,v2:<base64>"
	DataEncryptionKeys string `mapstructure:"DATA_ENCRYPTION_KEYS"`
	CurrentDataKeyVer  string `mapstructure:"CURRENT_DATA_KEY_VERSION"`
	// Cache: Redis quando REDIS_URL está definido, senão memória
	RedisURL    string `mapstructure:"REDIS_URL"`
	CacheTTLSec int    `mapstructure:"CACHE_TTL_SEC"`
	// Eventos de agenda (RabbitMQ). Vazio = publisher no-op
	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`
	AppPublicURL string `mapstructure:"APP_PUBLIC_URL"`
	// Nome impresso no cabeçalho do extrato em PDF
	ClinicName string `mapstructure:"CLINIC_NAME"`
	// WhatsApp (Twilio) para lembretes de consulta
	TwilioAccountSid   string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom string `mapstructure:"TWILIO_WHATSAPP_FROM"`
	ReminderCron       string `mapstructure:"REMINDER_CRON"`
	ReminderTZ         string `mapstructure:"REMINDER_TZ"`
	// CLI schedule
	APIURL   string `mapstructure:"API_URL"`
	APIToken string `mapstructure:"API_TOKEN"`

	JWTSecret   []byte   `mapstructure:"-"`
	CORSOrigins []string `mapstructure:"-"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SECRET", "JWT_TTL_HOURS", "CORS_ORIGINS", "REQUEST_TIMEOUT_SEC", "LOGIN_RATE_PER_MIN",
	"DATA_ENCRYPTION_KEYS", "CURRENT_DATA_KEY_VERSION", "REDIS_URL", "CACHE_TTL_SEC",
	"AMQP_URL", "AMQP_EXCHANGE", "APP_PUBLIC_URL", "CLINIC_NAME",
	"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_WHATSAPP_FROM", "REMINDER_CRON", "REMINDER_TZ",
	"API_URL", "API_TOKEN",
}

// Load lê .env (opcional) e variáveis de ambiente; o ambiente sempre vence o arquivo.
func Load() (*Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL_HOURS", 12)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("REQUEST_TIMEOUT_SEC", 30)
	v.SetDefault("LOGIN_RATE_PER_MIN", 10)
	v.SetDefault("DATA_ENCRYPTION_KEYS", "v1:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	v.SetDefault("CURRENT_DATA_KEY_VERSION", "v1")
	v.SetDefault("CACHE_TTL_SEC", 60)
	v.SetDefault("AMQP_EXCHANGE", "clinic.appointments")
	v.SetDefault("APP_PUBLIC_URL", "http://localhost:5173")
	v.SetDefault("CLINIC_NAME", "Gestor de Clínica")
	v.SetDefault("REMINDER_CRON", "0 18 * * *")
	v.SetDefault("REMINDER_TZ", "America/Sao_Paulo")
	v.SetDefault("API_URL", "http://localhost:8080")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	// .env é opcional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.JWTSecretRaw) < 32 {
		cfg.JWTSecretRaw = defaultJWTSecret
	}
	cfg.JWTSecret = []byte(cfg.JWTSecretRaw)
	cfg.CORSOrigins = splitList(cfg.CORSOriginsRaw)
	if cfg.DBMaxConns < 1 {
		cfg.DBMaxConns = 1
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		cfg.DBMinConns = 0
	}
	return cfg, nil
}

func (c *Config) IsDev() bool { return c.Env == "development" }

func (c *Config) IsProduction() bool { return c.Env == "production" }

// UsingDefaultSecret indica JWT_SECRET ausente ou curto demais; em produção o serve recusa subir.
func (c *Config) UsingDefaultSecret() bool { return c.JWTSecretRaw == defaultJWTSecret }

func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.CacheTTLSec <= 0 {
		return time.Minute
	}
	return time.Duration(c.CacheTTLSec) * time.Second
}

func (c *Config) JWTTTL() time.Duration {
	if c.JWTTTLHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.JWTTTLHours) * time.Hour
}

// ReminderLocation cai para UTC se REMINDER_TZ for inválido.
func (c *Config) ReminderLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReminderTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSid != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppFrom != ""
}

func splitList(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if t := strings.TrimSpace(o); t != "" {
			out = append(out, t)
		}
	}
	return out
}
