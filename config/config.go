package config

import (
	"fmt"
	"time"

	"github.com/kasuganosora/stealthguard/game/ai"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Guard    ai.Params      `mapstructure:"guard"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
	// AdminKeyHash is the bcrypt hash of the admin key. Empty disables
	// the admin API.
	AdminKeyHash string `mapstructure:"admin_key_hash"`
}

type GameConfig struct {
	TickMs           int           `mapstructure:"tick_ms"`
	LevelDir         string        `mapstructure:"level_dir"`
	StartLevels      []string      `mapstructure:"start_levels"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	GridDumpInterval time.Duration `mapstructure:"grid_dump_interval"`
	RecentAlerts     int           `mapstructure:"recent_alerts"`
	// StreamInterval is how often /ws observers receive a level snapshot.
	StreamInterval   time.Duration `mapstructure:"stream_interval"`
}

// TickInterval is the fixed simulation timestep.
func (g GameConfig) TickInterval() time.Duration {
	return time.Duration(g.TickMs) * time.Millisecond
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	RedisPrefix     string        `mapstructure:"redis_prefix"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type AuditConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// AdminIPs restricts the admin API to these IPs or CIDRs. Empty allows all.
	AdminIPs []string `mapstructure:"admin_ips"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return decode(v)
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("game.tick_ms", 16)
	v.SetDefault("game.level_dir", "./data/levels")
	v.SetDefault("game.start_levels", []string{})
	v.SetDefault("game.snapshot_interval", "1s")
	v.SetDefault("game.grid_dump_interval", "1m")
	v.SetDefault("game.recent_alerts", 100)
	v.SetDefault("game.stream_interval", "100ms")

	p := ai.DefaultParams()
	v.SetDefault("guard.base_chase_ticks", p.BaseChaseTicks)
	v.SetDefault("guard.camera_multiplier", p.CameraMultiplier)
	v.SetDefault("guard.fov_distance", p.FOVDistance)
	v.SetDefault("guard.fov_angle", p.FOVAngle)
	v.SetDefault("guard.patrol_threshold", p.PatrolThreshold)
	v.SetDefault("guard.investigate_epsilon", p.InvestigateEpsilon)
	v.SetDefault("guard.patrol_speed", p.PatrolSpeed)
	v.SetDefault("guard.investigate_speed", p.InvestigateSpeed)
	v.SetDefault("guard.chase_speed", p.ChaseSpeed)
	v.SetDefault("guard.camera_chase_speed", p.CameraChaseSpeed)

	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/alerts.db")
	v.SetDefault("database.mysql_max_open", 20)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_prefix", "stealth:")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", "2s")
	v.SetDefault("security.jwt_ttl", "12h")
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Guard.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Game.TickMs <= 0 {
		return nil, fmt.Errorf("config: game.tick_ms must be positive, got %d", cfg.Game.TickMs)
	}
	return cfg, nil
}
