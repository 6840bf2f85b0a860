package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Predictor backends.
const (
	PredictorModeRules  = "rules"
	PredictorModeRemote = "remote"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Scheduler   SchedulerConfig
	Predictor   PredictorConfig
	Persistence PersistenceConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig verifies bearer tokens issued by the hospital identity provider.
type JWTConfig struct {
	Secret      string
	Issuer      string
	AuthEnabled bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds the operating-room defaults every scheduling pass starts from.
type SchedulerConfig struct {
	Rooms          int
	StartHour      int
	EndHour        int
	SlotMinutes    int
	CleanupMinutes int
	Weekdays       []string
	HorizonDays    int
	Timezone       string
	Timeout        time.Duration
	ResultTTL      time.Duration
}

// PredictorConfig selects and tunes the duration and delay predictor.
type PredictorConfig struct {
	Mode              string
	URL               string
	Timeout           time.Duration
	HighRiskThreshold float64
	DurationRMSE      float64
	CacheEnabled      bool
	CacheTTL          time.Duration
}

// PersistenceConfig controls asynchronous storage of finished runs.
type PersistenceConfig struct {
	Enabled bool
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:      v.GetString("JWT_SECRET"),
		Issuer:      v.GetString("JWT_ISSUER"),
		AuthEnabled: v.GetBool("AUTH_ENABLED"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Rooms:          v.GetInt("OR_ROOMS"),
		StartHour:      v.GetInt("OR_START_HOUR"),
		EndHour:        v.GetInt("OR_END_HOUR"),
		SlotMinutes:    v.GetInt("OR_SLOT_MINUTES"),
		CleanupMinutes: v.GetInt("OR_CLEANUP_MINUTES"),
		Weekdays:       splitAndTrim(v.GetString("OR_WEEKDAYS")),
		HorizonDays:    v.GetInt("OR_HORIZON_DAYS"),
		Timezone:       v.GetString("OR_TIMEZONE"),
		Timeout:        parseDuration(v.GetString("SCHEDULE_TIMEOUT"), 10*time.Second),
		ResultTTL:      parseDuration(v.GetString("SCHEDULE_RESULT_TTL"), 30*time.Minute),
	}

	cfg.Predictor = PredictorConfig{
		Mode:              strings.ToLower(v.GetString("PREDICTOR_MODE")),
		URL:               v.GetString("PREDICTOR_URL"),
		Timeout:           parseDuration(v.GetString("PREDICTOR_TIMEOUT"), 3*time.Second),
		HighRiskThreshold: v.GetFloat64("PREDICTOR_HIGH_RISK_THRESHOLD"),
		DurationRMSE:      v.GetFloat64("PREDICTOR_DURATION_RMSE"),
		CacheEnabled:      v.GetBool("ENABLE_PREDICTION_CACHE"),
		CacheTTL:          parseDuration(v.GetString("PREDICTION_CACHE_TTL"), time.Hour),
	}

	cfg.Persistence = PersistenceConfig{
		Enabled: v.GetBool("ENABLE_PERSISTENCE"),
		Workers: v.GetInt("PERSIST_WORKERS"),
		Retries: v.GetInt("PERSIST_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "or_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("AUTH_ENABLED", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OR_ROOMS", 3)
	v.SetDefault("OR_START_HOUR", 8)
	v.SetDefault("OR_END_HOUR", 17)
	v.SetDefault("OR_SLOT_MINUTES", 30)
	v.SetDefault("OR_CLEANUP_MINUTES", 30)
	v.SetDefault("OR_WEEKDAYS", "MON,TUE,WED,THU,FRI")
	v.SetDefault("OR_HORIZON_DAYS", 5)
	v.SetDefault("OR_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULE_TIMEOUT", "10s")
	v.SetDefault("SCHEDULE_RESULT_TTL", "30m")

	v.SetDefault("PREDICTOR_MODE", PredictorModeRules)
	v.SetDefault("PREDICTOR_URL", "")
	v.SetDefault("PREDICTOR_TIMEOUT", "3s")
	v.SetDefault("PREDICTOR_HIGH_RISK_THRESHOLD", 0.5)
	v.SetDefault("PREDICTOR_DURATION_RMSE", 15.0)
	v.SetDefault("ENABLE_PREDICTION_CACHE", false)
	v.SetDefault("PREDICTION_CACHE_TTL", "1h")

	v.SetDefault("ENABLE_PERSISTENCE", false)
	v.SetDefault("PERSIST_WORKERS", 1)
	v.SetDefault("PERSIST_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
