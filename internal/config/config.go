// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Economy  EconomyConfig  `mapstructure:"economy"`
	Games    GamesConfig    `mapstructure:"games"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds storage configuration.
// Driver selects postgres (pgx pool) or sqlite (single file, gorm).
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	Path            string        `mapstructure:"path"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds bot-wide administrator IDs.
// Chat administrators are recognized in addition to these.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// EconomyConfig holds grant amounts and time gates.
type EconomyConfig struct {
	StartingBalance int64         `mapstructure:"starting_balance"`
	DailyReward     int64         `mapstructure:"daily_reward"`
	DailyCooldown   time.Duration `mapstructure:"daily_cooldown"`
	WeeklyReward    int64         `mapstructure:"weekly_reward"`
	WeeklyCooldown  time.Duration `mapstructure:"weekly_cooldown"`
	ReferralReward  int64         `mapstructure:"referral_reward"`
	LeaderboardSize int           `mapstructure:"leaderboard_size"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	SessionTimeout  time.Duration            `mapstructure:"session_timeout"`
	ReaperSchedule  string                   `mapstructure:"reaper_schedule"`
	AllInWinChance  float64                  `mapstructure:"allin_win_chance"`
	SpinCost        int64                    `mapstructure:"spin_cost"`
	SpinJackpot     int64                    `mapstructure:"spin_jackpot"`
	SpinRevealDelay time.Duration            `mapstructure:"spin_reveal_delay"`
	Cooldowns       map[string]time.Duration `mapstructure:"cooldowns"`
}

// HTTPConfig holds the ops endpoint configuration. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, ECONOMY_DAILY_REWARD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide everything
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Registered so AutomaticEnv can resolve them during Unmarshal.
	v.SetDefault("bot.token", "")
	v.SetDefault("database.password", "")
	v.SetDefault("admin.ids", []int64{})

	// Database defaults
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "casino")
	v.SetDefault("database.name", "casino")
	v.SetDefault("database.path", "casino.db")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Economy defaults
	v.SetDefault("economy.starting_balance", 1000)
	v.SetDefault("economy.daily_reward", 500)
	v.SetDefault("economy.daily_cooldown", "24h")
	v.SetDefault("economy.weekly_reward", 10000)
	v.SetDefault("economy.weekly_cooldown", "168h")
	v.SetDefault("economy.referral_reward", 50)
	v.SetDefault("economy.leaderboard_size", 10)

	// Game defaults
	v.SetDefault("games.session_timeout", "30s")
	v.SetDefault("games.reaper_schedule", "@every 10s")
	v.SetDefault("games.allin_win_chance", 0.45)
	v.SetDefault("games.spin_cost", 2500)
	v.SetDefault("games.spin_jackpot", 25000)
	v.SetDefault("games.spin_reveal_delay", "2s")
	v.SetDefault("games.cooldowns", map[string]string{"coinflip": "3s"})

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Games.AllInWinChance < 0 || c.Games.AllInWinChance > 1 {
		return fmt.Errorf("games.allin_win_chance must be within [0,1], got %v", c.Games.AllInWinChance)
	}
	if c.Games.SessionTimeout <= 0 {
		return fmt.Errorf("games.session_timeout must be positive")
	}
	if c.Economy.DailyCooldown <= 0 || c.Economy.WeeklyCooldown <= 0 {
		return fmt.Errorf("claim cooldowns must be positive")
	}
	return nil
}

// IsAdmin checks if a user ID is in the bot-wide admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}
