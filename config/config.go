package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	InstrumentConfig InstrumentConfig `json:"instrument"`
	StrategyConfig   StrategyConfig   `json:"strategy"`
	TradingConfig    TradingConfig    `json:"trading"`
	BrokerConfig     BrokerConfig     `json:"broker"`
	ServerConfig     ServerConfig     `json:"server"`
	AuthConfig       AuthConfig       `json:"auth"`
	VaultConfig      VaultConfig      `json:"vault"`
	RedisConfig      RedisConfig      `json:"redis"`
	DatabaseConfig   DatabaseConfig   `json:"database"`
	LoggingConfig    LoggingConfig    `json:"logging"`
}

// InstrumentConfig describes the traded instrument.
type InstrumentConfig struct {
	Symbol          string    `json:"symbol"`
	Interval        string    `json:"interval"`         // e.g. "1h"
	PrecisionDigits int       `json:"precision_digits"` // quoted decimal digits
	Resistance      []float64 `json:"resistance"`       // externally maintained key levels
	Support         []float64 `json:"support"`
}

// StrategyConfig holds the entry-engine thresholds. All values are
// fixed configuration supplied to the engines; nothing is learned.
type StrategyConfig struct {
	SwingWindowLeft        int     `json:"swing_window_left"`
	SwingWindowRight       int     `json:"swing_window_right"`
	SwingLookback          int     `json:"swing_lookback"`
	MinBodyFraction        float64 `json:"min_body_fraction"`
	LongWickRatio          float64 `json:"long_wick_ratio"`
	ProximityTolerancePips float64 `json:"proximity_tolerance_pips"`
	MaxDistancePips        float64 `json:"max_distance_pips"`
	MinZoneScore           int     `json:"min_zone_score"`
	MaxZones               int     `json:"max_zones"`
	TrendEMAPeriod         int     `json:"trend_ema_period"`
	RSIPeriod              int     `json:"rsi_period"`
	RSILowerLevel          float64 `json:"rsi_lower_level"`
	RSIUpperLevel          float64 `json:"rsi_upper_level"`
	ATRPeriod              int     `json:"atr_period"`
	ATRMultiplier          float64 `json:"atr_multiplier"`
	TrendExitEMAPeriod     int     `json:"trend_exit_ema_period"`
	MinHoldMinutes         int     `json:"min_hold_minutes"`
}

type TradingConfig struct {
	DryRun                 bool    `json:"dry_run"`
	Quantity               float64 `json:"quantity"`
	LookbackBars           int     `json:"lookback_bars"`
	DuplicateTolerancePips float64 `json:"duplicate_tolerance_pips"`
	EvaluationCron         string  `json:"evaluation_cron"` // cron spec with seconds
}

type BrokerConfig struct {
	BaseURL      string `json:"base_url"`
	StreamURL    string `json:"stream_url"`
	APIKey       string `json:"api_key"`
	SecretKey    string `json:"secret_key"`
	TimeoutSecs  int    `json:"timeout_secs"`
	UseVaultKeys bool   `json:"use_vault_keys"`
}

type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`
	WriteTimeout    int    `json:"write_timeout"`
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

type AuthConfig struct {
	Enabled       bool   `json:"enabled"`
	JWTSecret     string `json:"jwt_secret"`
	TokenTTLMins  int    `json:"token_ttl_mins"`
	AdminUser     string `json:"admin_user"`
	AdminPassHash string `json:"admin_pass_hash"` // bcrypt
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	TTLSecs  int    `json:"ttl_secs"`
}

type DatabaseConfig struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url"`
	RetentionDays int    `json:"retention_days"` // how long decision rows are kept
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Output string `json:"output"`
}

// Load reads config.json when present and applies environment overrides
// on top. Environment always wins.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.InstrumentConfig.Symbol = getEnvOrDefault("INSTRUMENT_SYMBOL", defaultStr(cfg.InstrumentConfig.Symbol, "EURUSD"))
	cfg.InstrumentConfig.Interval = getEnvOrDefault("INSTRUMENT_INTERVAL", defaultStr(cfg.InstrumentConfig.Interval, "1h"))
	cfg.InstrumentConfig.PrecisionDigits = getEnvIntOrDefault("INSTRUMENT_PRECISION", defaultInt(cfg.InstrumentConfig.PrecisionDigits, 5))
	if levels := os.Getenv("INSTRUMENT_RESISTANCE"); levels != "" {
		cfg.InstrumentConfig.Resistance = parseFloatList(levels)
	}
	if levels := os.Getenv("INSTRUMENT_SUPPORT"); levels != "" {
		cfg.InstrumentConfig.Support = parseFloatList(levels)
	}

	cfg.TradingConfig.DryRun = getEnvOrDefault("TRADING_DRY_RUN", "true") == "true"
	cfg.TradingConfig.Quantity = getEnvFloatOrDefault("TRADING_QUANTITY", defaultFloat(cfg.TradingConfig.Quantity, 1000))
	cfg.TradingConfig.LookbackBars = getEnvIntOrDefault("TRADING_LOOKBACK_BARS", defaultInt(cfg.TradingConfig.LookbackBars, 250))
	cfg.TradingConfig.DuplicateTolerancePips = getEnvFloatOrDefault("TRADING_DUPLICATE_TOLERANCE_PIPS", defaultFloat(cfg.TradingConfig.DuplicateTolerancePips, 10))
	cfg.TradingConfig.EvaluationCron = getEnvOrDefault("TRADING_EVALUATION_CRON", defaultStr(cfg.TradingConfig.EvaluationCron, "0 * * * * *"))

	cfg.BrokerConfig.BaseURL = getEnvOrDefault("BROKER_BASE_URL", defaultStr(cfg.BrokerConfig.BaseURL, "https://api.broker.local"))
	cfg.BrokerConfig.StreamURL = getEnvOrDefault("BROKER_STREAM_URL", cfg.BrokerConfig.StreamURL)
	cfg.BrokerConfig.APIKey = getEnvOrDefault("BROKER_API_KEY", cfg.BrokerConfig.APIKey)
	cfg.BrokerConfig.SecretKey = getEnvOrDefault("BROKER_SECRET_KEY", cfg.BrokerConfig.SecretKey)
	cfg.BrokerConfig.TimeoutSecs = getEnvIntOrDefault("BROKER_TIMEOUT_SECS", defaultInt(cfg.BrokerConfig.TimeoutSecs, 10))
	cfg.BrokerConfig.UseVaultKeys = getEnvOrDefault("BROKER_USE_VAULT_KEYS", "false") == "true"

	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultStr(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultStr(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", defaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", defaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "false") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.TokenTTLMins = getEnvIntOrDefault("AUTH_TOKEN_TTL_MINS", defaultInt(cfg.AuthConfig.TokenTTLMins, 60))
	cfg.AuthConfig.AdminUser = getEnvOrDefault("AUTH_ADMIN_USER", cfg.AuthConfig.AdminUser)
	cfg.AuthConfig.AdminPassHash = getEnvOrDefault("AUTH_ADMIN_PASS_HASH", cfg.AuthConfig.AdminPassHash)

	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", defaultStr(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", defaultStr(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", defaultStr(cfg.VaultConfig.SecretPath, "entry-bot/broker-keys"))

	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultStr(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.TTLSecs = getEnvIntOrDefault("REDIS_TTL_SECS", defaultInt(cfg.RedisConfig.TTLSecs, 60))

	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DATABASE_ENABLED", "false") == "true"
	cfg.DatabaseConfig.URL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseConfig.URL)
	cfg.DatabaseConfig.RetentionDays = getEnvIntOrDefault("DATABASE_RETENTION_DAYS", defaultInt(cfg.DatabaseConfig.RetentionDays, 30))

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultStr(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultStr(cfg.LoggingConfig.Output, "stdout"))
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func parseFloatList(s string) []float64 {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// GenerateSampleConfig writes a starter configuration file.
func GenerateSampleConfig(filename string) error {
	config := Config{
		InstrumentConfig: InstrumentConfig{
			Symbol:          "EURUSD",
			Interval:        "1h",
			PrecisionDigits: 5,
			Resistance:      []float64{1.1050, 1.1100},
			Support:         []float64{1.0950, 1.0900},
		},
		StrategyConfig: StrategyConfig{
			SwingWindowLeft:        5,
			SwingWindowRight:       5,
			SwingLookback:          100,
			MinBodyFraction:        0.10,
			LongWickRatio:          2.0,
			ProximityTolerancePips: 15,
			MaxDistancePips:        50,
			MinZoneScore:           2,
			MaxZones:               3,
			TrendEMAPeriod:         20,
			RSIPeriod:              8,
			RSILowerLevel:          40,
			RSIUpperLevel:          60,
			ATRPeriod:              14,
			ATRMultiplier:          3.0,
			TrendExitEMAPeriod:     100,
			MinHoldMinutes:         60,
		},
		TradingConfig: TradingConfig{
			DryRun:                 true,
			Quantity:               1000,
			LookbackBars:           250,
			DuplicateTolerancePips: 10,
			EvaluationCron:         "0 * * * * *",
		},
		LoggingConfig: LoggingConfig{
			Level:  "INFO",
			Output: "stdout",
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}
