package config

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Site     SiteConfig     `mapstructure:"site"`
	Admin    AdminConfig    `mapstructure:"admin"`
	LogDir   string         `mapstructure:"log_dir"`
	LogLevel string         `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
	ConnRetries  int           `mapstructure:"conn_retries"`
	AutoMigrate  bool          `mapstructure:"auto_migrate"`
}

// RedisConfig is optional; an empty Addr disables the ingestion run lock.
type RedisConfig struct {
	Addr    string        `mapstructure:"addr"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type KafkaConfig struct {
	Brokers []string    `mapstructure:"brokers"`
	Enabled bool        `mapstructure:"enabled"`
	Topics  TopicConfig `mapstructure:"topics"`
}

type TopicConfig struct {
	EventUpserted   string `mapstructure:"event_upserted"`
	IngestCompleted string `mapstructure:"ingest_completed"`
}

type IngestConfig struct {
	EventsFile  string `mapstructure:"events_file"`
	ArtistsFile string `mapstructure:"artists_file"`
	// TargetYear qualifies MM-DD dates. Zero means the current year.
	TargetYear int `mapstructure:"target_year"`
	// ForceYear rewrites the year of every date, including YYYY-MM-DD ones.
	ForceYear bool `mapstructure:"force_year"`
}

type SiteConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeZone  string `mapstructure:"timezone"`
	DaysAhead int    `mapstructure:"days_ahead"`
}

// AdminConfig guards /api/admin. OIDCIssuer wins over JWTSecret; with neither
// set the admin routes are open.
type AdminConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret"`
	OIDCIssuer string `mapstructure:"oidc_issuer"`
}

// env names kept flat so the .env files from the Node deployment keep working
var envBindings = map[string]string{
	"server.port":                   "PORT",
	"database.dsn":                  "POSTGRES_DSN",
	"database.max_open_conns":       "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns":       "DB_MAX_IDLE_CONNS",
	"database.conn_retries":         "DB_CONN_RETRIES",
	"database.auto_migrate":         "DB_AUTO_MIGRATE",
	"redis.addr":                    "REDIS_ADDR",
	"redis.lock_ttl":                "REDIS_LOCK_TTL",
	"kafka.brokers":                 "KAFKA_BROKERS",
	"kafka.enabled":                 "KAFKA_ENABLED",
	"kafka.topics.event_upserted":   "KAFKA_TOPIC_EVENT_UPSERTED",
	"kafka.topics.ingest_completed": "KAFKA_TOPIC_INGEST_COMPLETED",
	"ingest.events_file":            "EVENTS_FILE",
	"ingest.artists_file":           "ARTISTS_FILE",
	"ingest.target_year":            "INGEST_TARGET_YEAR",
	"ingest.force_year":             "INGEST_FORCE_YEAR",
	"site.base_url":                 "SITE_BASE_URL",
	"site.timezone":                 "SITE_TIMEZONE",
	"site.days_ahead":               "SITE_DAYS_AHEAD",
	"admin.jwt_secret":              "ADMIN_JWT_SECRET",
	"admin.oidc_issuer":             "OIDC_ISSUER",
	"log_dir":                       "LOG_DIR",
	"log_level":                     "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", 5*time.Minute)
	v.SetDefault("database.conn_retries", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.lock_ttl", 30*time.Minute)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topics.event_upserted", "atrium.events.upserted")
	v.SetDefault("kafka.topics.ingest_completed", "atrium.ingest.completed")

	v.SetDefault("ingest.events_file", "data/event_details.json")
	v.SetDefault("ingest.artists_file", "data/artist_profiles.json")
	v.SetDefault("ingest.target_year", 0)
	v.SetDefault("ingest.force_year", false)

	v.SetDefault("site.base_url", "https://atriumjazz.com")
	v.SetDefault("site.timezone", "America/New_York")
	v.SetDefault("site.days_ahead", 14)

	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")
}

// Load reads .env (if present), then config.yaml (if present), then the
// environment. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}
	if cfg.Ingest.TargetYear == 0 {
		cfg.Ingest.TargetYear = time.Now().Year()
	}

	return &cfg, nil
}

// Location resolves the site time zone, falling back to UTC.
func (s SiteConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
