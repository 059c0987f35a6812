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

// Debounce scopes accepted by NOTES_DEBOUNCE_SCOPE.
const (
	DebounceScopeNote    = "note"
	DebounceScopeService = "service"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Calendar CalendarConfig
	Notes    NotesConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CalendarConfig tunes calendar aggregation, caching and feeds.
type CalendarConfig struct {
	CacheEnabled          bool
	CacheTTL              time.Duration
	MedicationHorizonDays int
	Timezone              string
	PaletteFile           string
	FeedSecret            string
	FeedTTL               time.Duration
	PublicBaseURL         string
	MaxShareFetchers      int
}

// NotesConfig drives the note sync reconciler and the sync agent.
type NotesConfig struct {
	DebounceWindow      time.Duration
	DebounceScope       string
	CompletedResetDelay time.Duration
	SweepCron           string
	LocalStoreDir       string
	AccountID           string
	SessionToken        string
	WorkerRetries       int
	RetryDelay          time.Duration
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	horizon := v.GetInt("CALENDAR_MEDICATION_HORIZON_DAYS")
	if horizon <= 0 {
		horizon = 30
	}
	cfg.Calendar = CalendarConfig{
		CacheEnabled:          v.GetBool("CALENDAR_CACHE_ENABLED"),
		CacheTTL:              parseDuration(v.GetString("CALENDAR_CACHE_TTL"), 5*time.Minute),
		MedicationHorizonDays: horizon,
		Timezone:              v.GetString("CALENDAR_TIMEZONE"),
		PaletteFile:           v.GetString("CALENDAR_PALETTE_FILE"),
		FeedSecret:            v.GetString("CALENDAR_FEED_SECRET"),
		FeedTTL:               parseDuration(v.GetString("CALENDAR_FEED_TTL"), 90*24*time.Hour),
		PublicBaseURL:         strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		MaxShareFetchers:      v.GetInt("CALENDAR_MAX_SHARE_FETCHERS"),
	}

	scope := strings.ToLower(strings.TrimSpace(v.GetString("NOTES_DEBOUNCE_SCOPE")))
	if scope != DebounceScopeService {
		scope = DebounceScopeNote
	}
	cfg.Notes = NotesConfig{
		DebounceWindow:      parseDuration(v.GetString("NOTES_DEBOUNCE_WINDOW"), 1500*time.Millisecond),
		DebounceScope:       scope,
		CompletedResetDelay: parseDuration(v.GetString("NOTES_COMPLETED_RESET_DELAY"), 2*time.Second),
		SweepCron:           v.GetString("NOTES_SWEEP_CRON"),
		LocalStoreDir:       v.GetString("NOTES_LOCAL_STORE_DIR"),
		AccountID:           v.GetString("NOTES_ACCOUNT_ID"),
		SessionToken:        v.GetString("NOTES_SESSION_TOKEN"),
		WorkerRetries:       v.GetInt("NOTES_WORKER_RETRIES"),
		RetryDelay:          parseDuration(v.GetString("NOTES_RETRY_DELAY"), 10*time.Second),
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
	v.SetDefault("DB_NAME", "unforgotten")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "unforgotten")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CALENDAR_CACHE_ENABLED", false)
	v.SetDefault("CALENDAR_CACHE_TTL", "5m")
	v.SetDefault("CALENDAR_MEDICATION_HORIZON_DAYS", 30)
	v.SetDefault("CALENDAR_TIMEZONE", "UTC")
	v.SetDefault("CALENDAR_PALETTE_FILE", "")
	v.SetDefault("CALENDAR_FEED_SECRET", "")
	v.SetDefault("CALENDAR_FEED_TTL", "2160h")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("CALENDAR_MAX_SHARE_FETCHERS", 8)

	v.SetDefault("NOTES_DEBOUNCE_WINDOW", "1500ms")
	v.SetDefault("NOTES_DEBOUNCE_SCOPE", DebounceScopeNote)
	v.SetDefault("NOTES_COMPLETED_RESET_DELAY", "2s")
	v.SetDefault("NOTES_SWEEP_CRON", "*/5 * * * *")
	v.SetDefault("NOTES_LOCAL_STORE_DIR", "./notes-data")
	v.SetDefault("NOTES_ACCOUNT_ID", "")
	v.SetDefault("NOTES_SESSION_TOKEN", "")
	v.SetDefault("NOTES_WORKER_RETRIES", 3)
	v.SetDefault("NOTES_RETRY_DELAY", "10s")
}

// Location resolves the calendar timezone, falling back to UTC.
func (c CalendarConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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
