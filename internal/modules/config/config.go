package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Duration принимает в yaml строки вида "30s"/"15m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB string `yaml:"db_dsn"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	MetricsAddr string `yaml:"metrics_addr"`
	IntakeAddr  string `yaml:"intake_addr"` // HTTP приём сигналов

	Feed struct {
		BaseURL string   `yaml:"base_url"`
		WSURL   string   `yaml:"ws_url"`
		Timeout Duration `yaml:"timeout"` // per-tick bound, stale price is never substituted
	} `yaml:"feed"`

	Exchange struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		APISecret  string `yaml:"api_secret"`
		Passphrase string `yaml:"passphrase"`
	} `yaml:"exchange"`

	// Скоринг
	RejectBelow        float64 `yaml:"reject_below"`         // порог принятия сигнала
	CognitiveExitBelow float64 `yaml:"cognitive_exit_below"` // отдельный порог, НЕ выводится из reject_below
	ReferenceEquity    float64 `yaml:"reference_equity"`     // для фактора position-sizing

	MajorSymbols []string `yaml:"major_symbols"`
	MidSymbols   []string `yaml:"mid_symbols"`
	HoldAssets   []string `yaml:"hold_assets"`
	ActiveAssets []string `yaml:"active_assets"`

	ScoringStrategy string `yaml:"scoring_strategy"`
	LadderStrategy  string `yaml:"ladder_strategy"`

	// Лесенка
	LadderCurve      float64 `yaml:"ladder_curve"`       // >1 смещает ранги к нижней границе
	HardStopPct      float64 `yaml:"hard_stop_pct"`      // от худшего ранга
	TakeProfitPct    float64 `yaml:"take_profit_pct"`    // от лучшего ранга
	PrefillFirstRung bool    `yaml:"prefill_first_rung"` // нулевой ранг сразу по рынку

	// Жизненный цикл
	MinMemoryMatch   float64  `yaml:"min_memory_match"` // порог «высокого» совпадения памяти
	SnapshotPath     string   `yaml:"snapshot_path"`
	MaxActiveCycles  int      `yaml:"max_active_cycles"`
	WorkingCapital   float64  `yaml:"working_capital"`
	PollInterval     Duration `yaml:"poll_interval"`
	CognitiveEvery   Duration `yaml:"cognitive_every"`
	LadderDecay      Duration `yaml:"ladder_decay"`
	MemoryLookback   Duration `yaml:"memory_lookback"`
	ReentryWindow    Duration `yaml:"reentry_window"`
	CooldownPerAsset Duration `yaml:"cooldown_per_asset"`

	// Трейлинг
	TrailActivatePct float64 `yaml:"trail_activate_pct"` // +3% от avg entry
	TrailPct         float64 `yaml:"trail_pct"`

	// Аварийный выход
	CancelRetryBase   Duration `yaml:"cancel_retry_base"`
	CancelHardTimeout Duration `yaml:"cancel_hard_timeout"`

	// Vault
	SiphonRate       float64 `yaml:"siphon_rate"`
	VaultMinProfit   float64 `yaml:"vault_min_profit"`
	VaultMinTransfer float64 `yaml:"vault_min_transfer"`
	VaultSweepSpec   string  `yaml:"vault_sweep_spec"` // cron spec
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		RejectBelow:        floatFromEnv("REJECT_BELOW", 60),
		CognitiveExitBelow: floatFromEnv("COGNITIVE_EXIT_BELOW", 40),
		ReferenceEquity:    floatFromEnv("REFERENCE_EQUITY", 10000),

		ScoringStrategy: getenvDefault("SCORING_STRATEGY", "weighted5"),
		LadderStrategy:  getenvDefault("LADDER_STRATEGY", "frontloaded"),

		LadderCurve:   1.2,
		HardStopPct:   0.03,
		TakeProfitPct: 0.04,

		MinMemoryMatch:   floatFromEnv("MIN_MEMORY_MATCH", 0.6),
		SnapshotPath:     getenvDefault("SNAPSHOT_PATH", "flip_snapshots.jsonl"),
		MaxActiveCycles:  intFromEnv("MAX_ACTIVE_CYCLES", 5),
		WorkingCapital:   floatFromEnv("WORKING_CAPITAL", 10000),
		PollInterval:     durationFromEnv("POLL_INTERVAL", "30s"),
		CognitiveEvery:   durationFromEnv("COGNITIVE_EVERY", "60s"),
		LadderDecay:      durationFromEnv("LADDER_DECAY", "15m"),
		MemoryLookback:   durationFromEnv("MEMORY_LOOKBACK", "168h"), // 7 дней
		ReentryWindow:    durationFromEnv("REENTRY_WINDOW", "2h"),
		CooldownPerAsset: durationFromEnv("COOLDOWN_PER_ASSET", "10m"),

		TrailActivatePct: 0.03,
		TrailPct:         0.02,

		CancelRetryBase:   durationFromEnv("CANCEL_RETRY_BASE", "2s"),
		CancelHardTimeout: durationFromEnv("CANCEL_HARD_TIMEOUT", "2m"),

		SiphonRate:       floatFromEnv("SIPHON_RATE", 0.30),
		VaultMinProfit:   floatFromEnv("VAULT_MIN_PROFIT", 1.0),
		VaultMinTransfer: floatFromEnv("VAULT_MIN_TRANSFER", 100),
		VaultSweepSpec:   getenvDefault("VAULT_SWEEP_SPEC", "@every 1h"),
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	if config.Feed.Timeout <= 0 {
		config.Feed.Timeout = Duration(10 * time.Second)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	return &config, nil
}

func getenvRequired(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("env %s is required", key))
	}
	return v
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func durationFromEnv(key, def string) Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return Duration(d)
}
