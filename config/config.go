// Package config loads daemon settings from .env, an optional config file
// and POS_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	loyaltylogic "github.com/angzarr-io/pos/loyalty/logic"
	pricing "github.com/angzarr-io/pos/pricing/logic"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Run modes.
const (
	ModeTerminal = "terminal"
	ModeHub      = "hub"
)

// Config is the full daemon configuration.
type Config struct {
	Mode     string         `mapstructure:"mode"`
	Store    StoreConfig    `mapstructure:"store"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Tax      TaxConfig      `mapstructure:"tax"`
	Loyalty  LoyaltyConfig  `mapstructure:"loyalty"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

type StoreConfig struct {
	ID         string `mapstructure:"id"`
	TerminalID string `mapstructure:"terminal_id"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type GRPCConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SyncConfig points a terminal at its hub. An empty Remote keeps the till
// offline with every order queued.
type SyncConfig struct {
	Remote     string        `mapstructure:"remote"`
	MaxRetries int           `mapstructure:"max_retries"`
	Interval   time.Duration `mapstructure:"interval"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Staff     []StaffConfig `mapstructure:"staff"`
}

// StaffConfig is a staff member allowed to sign in. PINHash is a bcrypt
// hash; PIN is accepted in plain text for development seeds.
type StaffConfig struct {
	ID      string `mapstructure:"id"`
	Name    string `mapstructure:"name"`
	Role    string `mapstructure:"role"`
	PIN     string `mapstructure:"pin"`
	PINHash string `mapstructure:"pin_hash"`
}

type TaxConfig struct {
	Rate    string `mapstructure:"rate"`
	Enabled bool   `mapstructure:"enabled"`
}

type LoyaltyConfig struct {
	Tiers []TierConfig `mapstructure:"tiers"`
}

// TierConfig is one rung of the loyalty ladder. Rates are decimal strings.
type TierConfig struct {
	ID           string         `mapstructure:"id"`
	Name         string         `mapstructure:"name"`
	Color        string         `mapstructure:"color"`
	MinPunches   int            `mapstructure:"min_punches"`
	CashbackRate string         `mapstructure:"cashback_rate"`
	WelcomeBonus string         `mapstructure:"welcome_bonus"`
	Perks        []pricing.Perk `mapstructure:"perks"`
}

type SnapshotConfig struct {
	Key string `mapstructure:"key"`
}

// DefaultStaff is the roster used when none is configured.
func DefaultStaff() []StaffConfig {
	return []StaffConfig{
		{ID: "staff_mgr", Name: "Sarah Manager", Role: "Manager", PIN: "1234"},
		{ID: "staff_001", Name: "John Cashier", Role: "Cashier", PIN: "1111"},
		{ID: "staff_002", Name: "Mike Line", Role: "Kitchen", PIN: "2222"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeTerminal)
	v.SetDefault("store.id", "store_nyc_01")
	v.SetDefault("store.terminal_id", "term_counter_01")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.port", "50051")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "pos.db")
	v.SetDefault("sync.remote", "")
	v.SetDefault("sync.max_retries", 10)
	v.SetDefault("sync.interval", "30s")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("tax.rate", "0.0825")
	v.SetDefault("tax.enabled", true)
	v.SetDefault("snapshot.key", "pos_state_v3")
}

// Load reads the configuration. A missing .env or default config file is
// not an error; an explicit configFile must exist.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("grpc.port", "POS_GRPC_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind PORT: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("pos")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pos")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if len(cfg.Auth.Staff) == 0 {
		cfg.Auth.Staff = DefaultStaff()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeTerminal, ModeHub:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeTerminal, ModeHub, c.Mode)
	}
	if _, err := decimal.NewFromString(c.Tax.Rate); err != nil {
		return fmt.Errorf("tax.rate: %w", err)
	}
	if _, err := c.Ladder(); err != nil {
		return err
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive, got %s", c.Sync.Interval)
	}
	for _, s := range c.Auth.Staff {
		if s.ID == "" || (s.PIN == "" && s.PINHash == "") {
			return fmt.Errorf("auth.staff entries need an id and a pin or pin_hash")
		}
	}
	return nil
}

// TaxRate is the parsed tax rate.
func (c *Config) TaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.Tax.Rate)
	if err != nil {
		return pricing.TaxRate
	}
	return rate
}

// Ladder builds the loyalty ladder. No configured tiers selects the default
// program.
func (c *Config) Ladder() (loyaltylogic.Ladder, error) {
	if len(c.Loyalty.Tiers) == 0 {
		return loyaltylogic.DefaultLadder(), nil
	}
	tiers := make([]loyaltylogic.Tier, len(c.Loyalty.Tiers))
	for i, t := range c.Loyalty.Tiers {
		cashback, err := parseRate(t.CashbackRate)
		if err != nil {
			return nil, fmt.Errorf("loyalty.tiers[%d].cashback_rate: %w", i, err)
		}
		bonus, err := parseRate(t.WelcomeBonus)
		if err != nil {
			return nil, fmt.Errorf("loyalty.tiers[%d].welcome_bonus: %w", i, err)
		}
		tiers[i] = loyaltylogic.Tier{
			ID:           t.ID,
			Name:         t.Name,
			Color:        t.Color,
			MinPunches:   t.MinPunches,
			CashbackRate: cashback,
			WelcomeBonus: bonus,
			Perks:        t.Perks,
		}
	}
	ladder, err := loyaltylogic.NewLadder(tiers)
	if err != nil {
		return nil, fmt.Errorf("loyalty.tiers: %w", err)
	}
	return ladder, nil
}

func parseRate(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
