package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"aster_bot/internal/apperr"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	userAddressENV    = "ASTER_USER_ADDRESS"
	signerAddressENV  = "ASTER_SIGNER_ADDRESS"
	privateKeyENV     = "ASTER_PRIVATE_KEY"
	webhookSecretENV  = "WEBHOOK_SECRET"
	apiKeyENV         = "API_KEY"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

var (
	addressRe    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	privateKeyRe = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)
)

// Config is built once at startup and injected into every module.
type Config struct {
	Aster struct {
		BaseURL       string `yaml:"base_url"`
		StreamURL     string `yaml:"stream_url"`
		UserAddress   string `yaml:"user_address"`
		SignerAddress string `yaml:"signer_address"`
		PrivateKey    string `yaml:"private_key"`
	} `yaml:"aster"`

	Service struct {
		Host       string `yaml:"host"`
		PublicPort int    `yaml:"public_port"`
		AdminPort  int    `yaml:"admin_port"`
	} `yaml:"service"`

	WebhookSecret string `yaml:"webhook_secret"`
	APIKey        string `yaml:"api_key"`

	Trading struct {
		DefaultLeverage   int    `yaml:"default_leverage"`
		DefaultMarginType string `yaml:"default_margin_type"`
	} `yaml:"trading"`

	// Таймауты и ретраи задаются только окружением (REQUEST_TIMEOUT,
	// MAX_ATTEMPTS, RETRY_BASE_DELAY, BALANCE_CACHE_TTL).
	HTTP struct {
		RequestTimeout time.Duration
		MaxAttempts    int
		RetryBaseDelay time.Duration
		RecvWindow     int64
	}

	BalanceCacheTTL time.Duration

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	LogLevel string `yaml:"log_level"`
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	return Load("configs/" + configFileName)
}

// Load reads the YAML file, applies env overrides for secrets, fills
// defaults and validates. Invalid wallet material is a startup-fatal
// configuration error.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	config := Config{}
	config.Aster.BaseURL = "https://fapi.asterdex.com"
	config.Aster.StreamURL = "wss://fstream.asterdex.com"
	config.Service.Host = "0.0.0.0"
	config.Service.PublicPort = 8000
	config.Service.AdminPort = 9090
	config.Trading.DefaultLeverage = intFromEnv("DEFAULT_LEVERAGE", 10)
	config.Trading.DefaultMarginType = getenvDefault("DEFAULT_MARGIN_TYPE", "CROSSED")
	config.HTTP.RequestTimeout = durationFromEnv("REQUEST_TIMEOUT", "30s")
	config.HTTP.MaxAttempts = intFromEnv("MAX_ATTEMPTS", 3)
	config.HTTP.RetryBaseDelay = durationFromEnv("RETRY_BASE_DELAY", "2s")
	config.HTTP.RecvWindow = 5000
	config.BalanceCacheTTL = durationFromEnv("BALANCE_CACHE_TTL", "5s")
	config.LogLevel = getenvDefault("LOG_LEVEL", "info")

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// секреты всегда можно переопределить окружением
	applyEnvOverride(&config.Aster.UserAddress, userAddressENV)
	applyEnvOverride(&config.Aster.SignerAddress, signerAddressENV)
	applyEnvOverride(&config.Aster.PrivateKey, privateKeyENV)
	applyEnvOverride(&config.WebhookSecret, webhookSecretENV)
	applyEnvOverride(&config.APIKey, apiKeyENV)
	applyEnvOverride(&config.Telegram.Token, tokenTelegramENV)
	applyEnvOverride(&config.DB, databaseDSN)

	if err := config.validate(); err != nil {
		return nil, err
	}

	config.Aster.UserAddress = strings.ToLower(config.Aster.UserAddress)
	config.Aster.SignerAddress = strings.ToLower(config.Aster.SignerAddress)

	return &config, nil
}

func (c *Config) validate() error {
	if !addressRe.MatchString(c.Aster.UserAddress) {
		return apperr.New(apperr.KindConfiguration,
			"invalid user address: must be 0x followed by 40 hex characters")
	}
	if !addressRe.MatchString(c.Aster.SignerAddress) {
		return apperr.New(apperr.KindConfiguration,
			"invalid signer address: must be 0x followed by 40 hex characters")
	}
	if !privateKeyRe.MatchString(c.Aster.PrivateKey) {
		return apperr.New(apperr.KindConfiguration,
			"invalid private key: must be 64 hex characters")
	}
	if c.Trading.DefaultLeverage < 1 || c.Trading.DefaultLeverage > 125 {
		return apperr.New(apperr.KindConfiguration,
			"default leverage must be between 1 and 125, got %d", c.Trading.DefaultLeverage)
	}
	mt := strings.ToUpper(c.Trading.DefaultMarginType)
	if mt != "ISOLATED" && mt != "CROSSED" {
		return apperr.New(apperr.KindConfiguration,
			"default margin type must be ISOLATED or CROSSED, got %q", c.Trading.DefaultMarginType)
	}
	c.Trading.DefaultMarginType = mt
	if c.HTTP.MaxAttempts < 1 {
		return apperr.New(apperr.KindConfiguration, "max attempts must be >= 1")
	}
	return nil
}

func (c *Config) WebhookSecretConfigured() bool { return c.WebhookSecret != "" }
func (c *Config) APIKeyConfigured() bool        { return c.APIKey != "" }

func applyEnvOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
