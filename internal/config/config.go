package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig    `yaml:"log"`
	Cycle     CycleConfig      `yaml:"cycle"`
	REST      RESTConfig       `yaml:"rest"`
	Exchanges []ExchangeConfig `yaml:"exchanges"`
	Detector  DetectorConfig   `yaml:"detector"`
	Universe  UniverseConfig   `yaml:"universe"`
	State     StateConfig      `yaml:"state"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Telegram  TelegramConfig   `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type CycleConfig struct {
	Interval       time.Duration `yaml:"interval"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	FlushTimeout   time.Duration `yaml:"flush_timeout"`
}

type RESTConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type ExchangeConfig struct {
	Name              string        `yaml:"name"`
	Enabled           *bool         `yaml:"enabled"`
	RESTURL           string        `yaml:"rest_url"`
	WSURL             string        `yaml:"ws_url"`
	WSTimeout         time.Duration `yaml:"ws_timeout"`
	DefaultFrequency  int           `yaml:"default_frequency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

func (e ExchangeConfig) EnabledValue() bool {
	if e.Enabled == nil {
		return true
	}
	return *e.Enabled
}

type DetectorConfig struct {
	MinPositiveAPR         *float64 `yaml:"min_positive_apr"`
	MinNegativeAPR         *float64 `yaml:"min_negative_apr"`
	FeePercent             *float64 `yaml:"fee_percent"`
	FilterNegativeDailyNet *bool    `yaml:"filter_negative_daily_net"`
	NegativeFeePolicy      string   `yaml:"negative_fee_policy"`
	MaxItems               int      `yaml:"max_items"`
}

const (
	defaultMinPositiveAPR = 30
	defaultMinNegativeAPR = -30
	defaultFeePercent     = 0.06
)

func (d DetectorConfig) MinPositiveAPRValue() float64 {
	if d.MinPositiveAPR == nil {
		return defaultMinPositiveAPR
	}
	return *d.MinPositiveAPR
}

func (d DetectorConfig) MinNegativeAPRValue() float64 {
	if d.MinNegativeAPR == nil {
		return defaultMinNegativeAPR
	}
	return *d.MinNegativeAPR
}

func (d DetectorConfig) FeePercentValue() float64 {
	if d.FeePercent == nil {
		return defaultFeePercent
	}
	return *d.FeePercent
}

func (d DetectorConfig) FilterNegativeDailyNetValue() bool {
	if d.FilterNegativeDailyNet == nil {
		return true
	}
	return *d.FilterNegativeDailyNet
}

type UniverseConfig struct {
	Symbols      []string      `yaml:"symbols"`
	URL          string        `yaml:"url"`
	SymbolField  string        `yaml:"symbol_field"`
	VolumeField  string        `yaml:"volume_field"`
	FilterField  string        `yaml:"filter_field"`
	FilterSuffix string        `yaml:"filter_suffix"`
	TopN         int           `yaml:"top_n"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type StateConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	if m.Enabled == nil {
		return true
	}
	return *m.Enabled
}

type TelegramConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Token      string `yaml:"token"`
	ChatID     string `yaml:"chat_id"`
	MaxRetries int    `yaml:"max_retries"`
}

type exchangeDefaults struct {
	restURL   string
	wsURL     string
	wsTimeout time.Duration
	rps       float64
}

var knownExchanges = map[string]exchangeDefaults{
	"binance": {restURL: "https://fapi.binance.com", wsURL: "wss://fstream.binance.com/ws", wsTimeout: 10 * time.Second},
	"bybit":   {restURL: "https://api.bybit.com", wsURL: "wss://stream.bybit.com/v5/public/linear", wsTimeout: 10 * time.Second},
	"okx":     {restURL: "https://www.okx.com", wsURL: "wss://ws.okx.com:8443/ws/v5/public", wsTimeout: 15 * time.Second, rps: 10},
	"gate":    {restURL: "https://api.gateio.ws", wsURL: "wss://fx-ws.gateio.ws/v4/ws/usdt", wsTimeout: 15 * time.Second},
	"bitget":  {restURL: "https://api.bitget.com", wsURL: "wss://ws.bitget.com/v2/ws/public", wsTimeout: 10 * time.Second},
}

var defaultExchangeOrder = []string{"binance", "bybit", "okx", "gate", "bitget"}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

// Default returns a config with every default applied, for tools that run without a config file.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg
}

// Exchange returns the entry for name regardless of whether it is enabled.
func (c *Config) Exchange(name string) (ExchangeConfig, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, ex := range c.Exchanges {
		if ex.Name == name {
			return ex, true
		}
	}
	return ExchangeConfig{}, false
}

// EnabledExchanges returns the exchange entries that take part in retrieval, in config order.
func (c *Config) EnabledExchanges() []ExchangeConfig {
	out := make([]ExchangeConfig, 0, len(c.Exchanges))
	for _, ex := range c.Exchanges {
		if ex.EnabledValue() {
			out = append(out, ex)
		}
	}
	return out
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Cycle.Interval == 0 {
		cfg.Cycle.Interval = 5 * time.Minute
	}
	if cfg.Cycle.MaxConcurrency == 0 {
		cfg.Cycle.MaxConcurrency = len(defaultExchangeOrder)
	}
	if cfg.Cycle.FlushTimeout == 0 {
		cfg.Cycle.FlushTimeout = 10 * time.Second
	}
	if cfg.REST.Timeout == 0 {
		cfg.REST.Timeout = 5 * time.Second
	}
	if len(cfg.Exchanges) == 0 {
		for _, name := range defaultExchangeOrder {
			cfg.Exchanges = append(cfg.Exchanges, ExchangeConfig{Name: name})
		}
	}
	for i := range cfg.Exchanges {
		ex := &cfg.Exchanges[i]
		ex.Name = strings.ToLower(strings.TrimSpace(ex.Name))
		defaults, ok := knownExchanges[ex.Name]
		if !ok {
			continue
		}
		if ex.RESTURL == "" {
			ex.RESTURL = defaults.restURL
		}
		if ex.WSURL == "" {
			ex.WSURL = defaults.wsURL
		}
		if ex.WSTimeout == 0 {
			ex.WSTimeout = defaults.wsTimeout
		}
		if ex.DefaultFrequency == 0 {
			ex.DefaultFrequency = 3
		}
		if ex.RequestsPerSecond == 0 {
			ex.RequestsPerSecond = defaults.rps
		}
	}
	if cfg.Detector.NegativeFeePolicy == "" {
		cfg.Detector.NegativeFeePolicy = "subtract"
	}
	if cfg.Detector.MaxItems == 0 {
		cfg.Detector.MaxItems = 20
	}
	if cfg.Universe.URL == "" {
		cfg.Universe.URL = "https://fapi.binance.com/fapi/v1/ticker/24hr"
	}
	if cfg.Universe.SymbolField == "" {
		cfg.Universe.SymbolField = "symbol"
	}
	if cfg.Universe.VolumeField == "" {
		cfg.Universe.VolumeField = "quoteVolume"
	}
	if cfg.Universe.FilterField == "" {
		cfg.Universe.FilterField = cfg.Universe.SymbolField
	}
	if cfg.Universe.FilterSuffix == "" {
		cfg.Universe.FilterSuffix = "USDT"
	}
	if cfg.Universe.TopN == 0 {
		cfg.Universe.TopN = 50
	}
	if cfg.Universe.CacheTTL == 0 {
		cfg.Universe.CacheTTL = 6 * time.Hour
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = "sqlite"
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/funding-radar.db"
	}
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9001"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Telegram.MaxRetries == 0 {
		cfg.Telegram.MaxRetries = 5
	}
}

func applyEnvOverrides(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("FR_TELEGRAM_TOKEN")); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := strings.TrimSpace(os.Getenv("FR_TELEGRAM_CHAT_ID")); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
	if dsn := strings.TrimSpace(os.Getenv("FR_POSTGRES_DSN")); dsn != "" {
		cfg.State.PostgresDSN = dsn
	}
}

func validate(cfg *Config) error {
	if cfg.Cycle.Interval < 0 {
		return errors.New("cycle.interval must be >= 0")
	}
	if cfg.Cycle.MaxConcurrency < 0 {
		return errors.New("cycle.max_concurrency must be >= 0")
	}
	if cfg.REST.Timeout < 0 {
		return errors.New("rest.timeout must be >= 0")
	}
	seen := make(map[string]bool, len(cfg.Exchanges))
	for _, ex := range cfg.Exchanges {
		if _, ok := knownExchanges[ex.Name]; !ok {
			return fmt.Errorf("exchanges: unknown exchange %q", ex.Name)
		}
		if seen[ex.Name] {
			return fmt.Errorf("exchanges: duplicate exchange %q", ex.Name)
		}
		seen[ex.Name] = true
		if ex.DefaultFrequency < 1 {
			return fmt.Errorf("exchanges.%s.default_frequency must be >= 1", ex.Name)
		}
		if ex.WSTimeout < 0 {
			return fmt.Errorf("exchanges.%s.ws_timeout must be >= 0", ex.Name)
		}
		if ex.RequestsPerSecond < 0 {
			return fmt.Errorf("exchanges.%s.requests_per_second must be >= 0", ex.Name)
		}
	}
	if len(cfg.EnabledExchanges()) == 0 {
		return errors.New("at least one exchange must be enabled")
	}
	if cfg.Detector.FeePercentValue() < 0 {
		return errors.New("detector.fee_percent must be >= 0")
	}
	switch cfg.Detector.NegativeFeePolicy {
	case "subtract", "add":
	default:
		return fmt.Errorf("detector.negative_fee_policy must be subtract or add, got %q", cfg.Detector.NegativeFeePolicy)
	}
	if cfg.Detector.MaxItems < 0 {
		return errors.New("detector.max_items must be >= 0")
	}
	if cfg.Universe.TopN < 0 {
		return errors.New("universe.top_n must be >= 0")
	}
	if cfg.Universe.CacheTTL < 0 {
		return errors.New("universe.cache_ttl must be >= 0")
	}
	switch cfg.State.Backend {
	case "sqlite":
		if cfg.State.SQLitePath == "" {
			return errors.New("state.sqlite_path is required")
		}
	case "postgres":
		if cfg.State.PostgresDSN == "" {
			return errors.New("state.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("state.backend must be sqlite or postgres, got %q", cfg.State.Backend)
	}
	if cfg.Metrics.EnabledValue() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.Telegram.MaxRetries < 0 {
		return errors.New("telegram.max_retries must be >= 0")
	}
	return nil
}
