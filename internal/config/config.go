// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/monad-bot/internal/copytrade"
	"github.com/rovshanmuradov/monad-bot/internal/logger"
	"github.com/rovshanmuradov/monad-bot/internal/monitor"
	"github.com/rovshanmuradov/monad-bot/internal/notify"
	"github.com/rovshanmuradov/monad-bot/internal/reputation"
	"github.com/rovshanmuradov/monad-bot/internal/risk"
	"github.com/rovshanmuradov/monad-bot/internal/seller"
	"github.com/rovshanmuradov/monad-bot/internal/storage"
	"github.com/rovshanmuradov/monad-bot/internal/types"
)

// EnvPrefix is prepended to every environment override, e.g. MONAD_BOT_RISK_MAX_HOLD.
const EnvPrefix = "MONAD_BOT"

// Contracts holds the on-chain addresses the bot talks to.
type Contracts struct {
	Router    string `mapstructure:"router"`
	Wrapped   string `mapstructure:"wrapped"`
	CurveLens string `mapstructure:"curve_lens"`
	// CurveEvents emits CurveBuy / CurveSell; empty follows any emitter.
	CurveEvents string `mapstructure:"curve_events"`
}

// Gas controls transaction fees.
type Gas struct {
	Limit      uint64  `mapstructure:"limit"`
	Multiplier float64 `mapstructure:"multiplier"`
}

// Strategy maps the configured multiplier onto a gas tier.
func (g Gas) Strategy() types.GasStrategy {
	return types.FromAggressiveness(g.Multiplier)
}

type Config struct {
	RPCURL         string        `mapstructure:"rpc_url"`
	WSURL          string        `mapstructure:"ws_url"`
	ChainID        int64         `mapstructure:"chain_id"`
	PrivateKey     string        `mapstructure:"private_key"`
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`

	Contracts  Contracts             `mapstructure:"contracts"`
	Gas        Gas                   `mapstructure:"gas"`
	Risk       risk.Config           `mapstructure:"risk"`
	Monitor    monitor.Config        `mapstructure:"monitor"`
	Sell       seller.Config         `mapstructure:"sell"`
	Reputation reputation.Weights    `mapstructure:"reputation"`
	Copy       copytrade.Config      `mapstructure:"copy"`
	Storage    storage.Config        `mapstructure:"storage"`
	Log        logger.Config         `mapstructure:"log"`
	Telegram   notify.TelegramConfig `mapstructure:"telegram"`
}

const (
	DefaultReceiptTimeout = 60 * time.Second
	DefaultGasLimit       = 500_000
	DefaultGasMultiplier  = 1.0
)

// legacyEnv maps keys to the plain variable names used by existing deployments.
var legacyEnv = map[string]string{
	"private_key":      "PRIVATE_KEY",
	"rpc_url":          "RPC_URL",
	"ws_url":           "WS_URL",
	"telegram.token":   "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id": "TELEGRAM_CHAT_ID",
}

// LoadConfig reads path (optional, any format viper supports), applies .env and
// environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Copy.SmartWallets = cleanList(cfg.Copy.SmartWallets)
	cfg.Copy.ScoutWallets = cleanList(cfg.Copy.ScoutWallets)

	return &cfg, validateConfig(&cfg)
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	riskCfg := risk.DefaultConfig()
	monCfg := monitor.DefaultConfig()
	sellCfg := seller.DefaultConfig()
	weights := reputation.DefaultWeights()
	copyCfg := copytrade.DefaultConfig()
	logCfg := logger.DefaultConfig()

	defaults := map[string]interface{}{
		"rpc_url":         "",
		"ws_url":          "",
		"chain_id":        0,
		"private_key":     "",
		"receipt_timeout": DefaultReceiptTimeout,
		"metrics_addr":    ":9090",

		"contracts.router":       "",
		"contracts.wrapped":      "",
		"contracts.curve_lens":   "",
		"contracts.curve_events": "",

		"gas.limit":      DefaultGasLimit,
		"gas.multiplier": DefaultGasMultiplier,

		"risk.trailing_drop_pct":   riskCfg.TrailingDropPct,
		"risk.trailing_min_profit": riskCfg.MinProfitPct,
		"risk.hard_stop_loss_pct":  riskCfg.HardStopLossPct,
		"risk.secure_profit_pct":   riskCfg.SecureProfitPct,
		"risk.secure_sell_portion": riskCfg.SecureSellPortion,
		"risk.max_hold":            riskCfg.MaxHold,

		"monitor.check_interval":    monCfg.Interval,
		"monitor.quote_concurrency": monCfg.Concurrency,
		"monitor.quote_timeout":     monCfg.QuoteTimeout,

		"sell.cooldown":           sellCfg.Cooldown,
		"sell.queue_size":         sellCfg.QueueSize,
		"sell.attempt_timeout":    sellCfg.AttemptTimeout,
		"sell.base_slippage_pct":  sellCfg.BaseSlippagePct,
		"sell.retry_slippage_pct": sellCfg.RetrySlippagePct,
		"sell.dex_slippage_pct":   sellCfg.DexSlippagePct,

		"reputation.min_trades":      weights.MinTrades,
		"reputation.neutral_score":   weights.NeutralScore,
		"reputation.win_rate_points": weights.WinRatePoints,
		"reputation.roi_scale":       weights.ROIScale,
		"reputation.roi_min":         weights.ROIMin,
		"reputation.roi_max":         weights.ROIMax,
		"reputation.pnl_min":         weights.PnLMin,
		"reputation.pnl_max":         weights.PnLMax,
		"reputation.streak_max":      weights.StreakMax,

		"copy.enabled":         copyCfg.Enabled,
		"copy.smart_wallets":   []string{},
		"copy.scout_wallets":   []string{},
		"copy.base_amount":     copyCfg.BaseAmount,
		"copy.max_amount":      copyCfg.MaxAmount,
		"copy.whale_copy_pct":  copyCfg.WhaleCopyPct,
		"copy.whale_min_input": copyCfg.WhaleMinInput,
		"copy.slippage_pct":    copyCfg.SlippagePct,
		"copy.min_score":       copyCfg.MinScore,
		"copy.promote_score":   copyCfg.PromoteScore,

		"storage.backend":         storage.BackendFile,
		"storage.positions_file":  "data/positions.json",
		"storage.reputation_file": "data/wallet_scores.json",
		"storage.trades_file":     "data/trades.jsonl",
		"storage.sql_driver":      "sqlite",
		"storage.database_url":    "data/monad-bot.db",

		"log.file":        logCfg.File,
		"log.max_size":    logCfg.MaxSize,
		"log.max_age":     logCfg.MaxAge,
		"log.max_backups": logCfg.MaxBackups,
		"log.compress":    logCfg.Compress,
		"log.development": logCfg.Development,
		"log.pretty":      logCfg.Pretty,

		"telegram.token":   "",
		"telegram.chat_id": "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is required")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http", "ws"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if cfg.WSURL != "" {
		if err := validateURLWithCache(cfg.WSURL, "ws"); err != nil {
			return fmt.Errorf("invalid ws_url: %w", err)
		}
	}
	if cfg.PrivateKey == "" {
		return errors.New("private_key is required")
	}
	if cfg.ChainID < 0 {
		return errors.New("invalid chain_id")
	}
	if cfg.ReceiptTimeout <= 0 {
		return errors.New("invalid receipt_timeout")
	}
	if err := validateContracts(cfg.Contracts); err != nil {
		return err
	}
	if cfg.Gas.Multiplier <= 0 {
		return errors.New("gas.multiplier must be positive")
	}
	if err := cfg.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if err := validateMonitor(cfg.Monitor); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if err := cfg.Sell.Validate(); err != nil {
		return fmt.Errorf("sell: %w", err)
	}
	if err := cfg.Copy.Validate(); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if cfg.Copy.Enabled && cfg.WSURL == "" && !strings.HasPrefix(cfg.RPCURL, "ws") {
		return errors.New("copy trading needs ws_url for log subscriptions")
	}
	switch cfg.Storage.Backend {
	case storage.BackendFile, storage.BackendSQL:
	default:
		return fmt.Errorf("storage: %w: %q", storage.ErrUnknownBackend, cfg.Storage.Backend)
	}
	return nil
}

func validateContracts(c Contracts) error {
	required := map[string]string{
		"contracts.router":     c.Router,
		"contracts.wrapped":    c.Wrapped,
		"contracts.curve_lens": c.CurveLens,
	}
	for key, addr := range required {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s: invalid address %q", key, addr)
		}
	}
	if c.CurveEvents != "" && !common.IsHexAddress(c.CurveEvents) {
		return fmt.Errorf("contracts.curve_events: invalid address %q", c.CurveEvents)
	}
	return nil
}

func validateMonitor(c monitor.Config) error {
	if c.Interval <= 0 {
		return errors.New("invalid check_interval")
	}
	if c.Concurrency <= 0 {
		return errors.New("invalid quote_concurrency")
	}
	if c.QuoteTimeout <= 0 {
		return errors.New("invalid quote_timeout")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocols ...string) error {
	key := strings.Join(protocols, "|") + " " + rawURL
	if _, ok := urlCache.Load(key); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	for _, p := range protocols {
		if strings.HasPrefix(parsed.Scheme, p) {
			urlCache.Store(key, parsed)
			return nil
		}
	}
	return errors.New("invalid URL protocol")
}

// cleanList splits comma separated entries (as they arrive from env) and trims them.
func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if clean := strings.TrimSpace(part); clean != "" {
				out = append(out, clean)
			}
		}
	}
	return out
}
