package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Sim      SimConfig      `mapstructure:"sim"`
	Combat   CombatConfig   `mapstructure:"combat"`
	Player   PlayerConfig   `mapstructure:"player"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
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
	RedisAddr       string        `mapstructure:"redis_addr"` // empty selects the in-process cache
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// SimConfig drives the arena loops.
type SimConfig struct {
	TickMs    int    `mapstructure:"tick_ms"`
	ArenasDir string `mapstructure:"arenas_dir"`
	// Autostart lists arena definition names opened at boot.
	Autostart []string `mapstructure:"autostart"`
	// MaxArenas caps concurrently running arenas.
	MaxArenas int `mapstructure:"max_arenas"`
	// ReapAfter is how long a finished arena stays queryable.
	ReapAfter      time.Duration `mapstructure:"reap_after"`
	RankingRefresh time.Duration `mapstructure:"ranking_refresh"`
	// ReloadInterval re-reads ArenasDir periodically; zero disables it.
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
}

// CombatConfig is the default agent tuning; arena definitions may override it.
type CombatConfig struct {
	AttackRange       float64       `mapstructure:"attack_range"`
	FieldOfView       float64       `mapstructure:"field_of_view"`
	SearchDuration    time.Duration `mapstructure:"search_duration"`
	LookAroundAngle   float64       `mapstructure:"look_around_angle"`
	LookAroundSpeed   float64       `mapstructure:"look_around_speed"`
	FireInterval      time.Duration `mapstructure:"fire_interval"`
	Damage            float64       `mapstructure:"damage"`
	SearchTurnRate    float64       `mapstructure:"search_turn_rate"`
	AttackTurnRate    float64       `mapstructure:"attack_turn_rate"`
	IgnoreLayers      []string      `mapstructure:"ignore_layers"`
	AlertOnFire       bool          `mapstructure:"alert_on_fire"`
	MoveSpeed         float64       `mapstructure:"move_speed"`
	WaypointTolerance float64       `mapstructure:"waypoint_tolerance"`
	AimRange          float64       `mapstructure:"aim_range"`
	CueDuration       time.Duration `mapstructure:"cue_duration"`
}

type PlayerConfig struct {
	Health     float64 `mapstructure:"health"`
	ShotRange  float64 `mapstructure:"shot_range"`
	ShotDamage float64 `mapstructure:"shot_damage"`
	EyeHeight  float64 `mapstructure:"eye_height"`
	MoveSpeed  float64 `mapstructure:"move_speed"`
}

type AuditConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type SecurityConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTLH   time.Duration `mapstructure:"jwt_ttl_h"`
	// AdminKeyHash is the bcrypt hash of the operator key exchanged for a token.
	AdminKeyHash   string   `mapstructure:"admin_key_hash"`
	AdminIPs       []string `mapstructure:"admin_ips"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/sentry.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("sim.tick_ms", 50)
	v.SetDefault("sim.arenas_dir", "./data/arenas")
	v.SetDefault("sim.max_arenas", 16)
	v.SetDefault("sim.reap_after", "10m")
	v.SetDefault("sim.ranking_refresh", "5m")
	v.SetDefault("combat.attack_range", 10.0)
	v.SetDefault("combat.field_of_view", 60.0)
	v.SetDefault("combat.search_duration", "5s")
	v.SetDefault("combat.look_around_angle", 45.0)
	v.SetDefault("combat.look_around_speed", 60.0)
	v.SetDefault("combat.fire_interval", "200ms")
	v.SetDefault("combat.damage", 10.0)
	v.SetDefault("combat.search_turn_rate", 1.5)
	v.SetDefault("combat.attack_turn_rate", 5.0)
	v.SetDefault("combat.move_speed", 3.5)
	v.SetDefault("combat.waypoint_tolerance", 0.5)
	v.SetDefault("combat.aim_range", 50.0)
	v.SetDefault("combat.cue_duration", "5ms")
	v.SetDefault("player.health", 100.0)
	v.SetDefault("player.shot_range", 1000.0)
	v.SetDefault("player.shot_damage", 100.0)
	v.SetDefault("player.eye_height", 0.5)
	v.SetDefault("player.move_speed", 5.0)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", "1s")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
}

// Default returns the built-in configuration without reading a file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Load reads config from the given YAML file path. SENTRY_* environment
// variables override file values (server.port -> SENTRY_SERVER_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("sentry")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
