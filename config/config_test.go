package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ModeTerminal, cfg.Mode)
	assert.Equal(t, "store_nyc_01", cfg.Store.ID)
	assert.Equal(t, "term_counter_01", cfg.Store.TerminalID)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Sync.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Tax.Enabled)
	assert.True(t, cfg.TaxRate().Equal(decimal.RequireFromString("0.0825")))
	assert.Equal(t, "pos_state_v3", cfg.Snapshot.Key)
	require.Len(t, cfg.Auth.Staff, 3)
	assert.Equal(t, "staff_mgr", cfg.Auth.Staff[0].ID)

	ladder, err := cfg.Ladder()
	require.NoError(t, err)
	assert.Equal(t, "tier_starter", ladder.Entry().ID)
}

func TestLoad_fileAndEnvironment(t *testing.T) {
	path := writeFile(t, "pos.yaml", `
mode: hub
store:
  id: store_sfo_02
database:
  driver: postgres
  dsn: host=db user=pos dbname=pos sslmode=disable
sync:
  max_retries: 3
  interval: 5s
tax:
  rate: 0.09
loyalty:
  tiers:
    - id: tier_a
      name: A
      color: zinc-500
      min_punches: 0
      cashback_rate: 0.01
    - id: tier_b
      name: B
      color: yellow-400
      min_punches: 3
      cashback_rate: "0.04"
      welcome_bonus: 2
      perks:
        - label: Free Fries w/ Burger
          kind: free_modifier
          category: burgers
          target: fries
`)
	t.Setenv("POS_STORE_TERMINAL_ID", "term_drive_02")
	t.Setenv("PORT", "6000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeHub, cfg.Mode)
	assert.Equal(t, "store_sfo_02", cfg.Store.ID)
	assert.Equal(t, "term_drive_02", cfg.Store.TerminalID)
	assert.Equal(t, "6000", cfg.GRPC.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Sync.Interval)
	assert.True(t, cfg.TaxRate().Equal(decimal.RequireFromString("0.09")))

	ladder, err := cfg.Ladder()
	require.NoError(t, err)
	require.Len(t, ladder, 2)
	assert.True(t, ladder[1].CashbackRate.Equal(decimal.RequireFromString("0.04")))
	assert.True(t, ladder[1].WelcomeBonus.Equal(decimal.NewFromInt(2)))
	require.Len(t, ladder[1].Perks, 1)
	assert.Equal(t, "fries", ladder[1].Perks[0].Target)
}

func TestLoad_errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("POS_MODE", "kiosk")
	_, err = Load("")
	assert.ErrorContains(t, err, "mode")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad tax rate", func(c *Config) { c.Tax.Rate = "eight" }},
		{"staff without pin", func(c *Config) { c.Auth.Staff = []StaffConfig{{ID: "staff_x"}} }},
		{"duplicate tier thresholds", func(c *Config) {
			c.Loyalty.Tiers = []TierConfig{{ID: "a", MinPunches: 0}, {ID: "b", MinPunches: 0}}
		}},
		{"zero sync interval", func(c *Config) { c.Sync.Interval = 0 }},
		{"bad cashback", func(c *Config) {
			c.Loyalty.Tiers = []TierConfig{{ID: "a", CashbackRate: "lots"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Mode: ModeTerminal,
				Tax:  TaxConfig{Rate: "0.0825"},
				Sync: SyncConfig{Interval: time.Second},
				Auth: AuthConfig{Staff: DefaultStaff()},
			}
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
