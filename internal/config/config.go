package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/health-risk-history/internal/environment"
)

var validate = validator.New()

type AppConfig struct {
	Port      string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=debug info warn warning error"`
	LogFormat string `validate:"oneof=json console"`

	// Storage. An empty DatabaseURL selects the in-memory store.
	DatabaseURL string
	DBMaxConns  int `validate:"gte=0"`
	DBMaxIdle   int `validate:"gte=0"`

	// Optional cross-replica run lock.
	RedisAddr     string
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	RunLockTTL    time.Duration `validate:"gt=0"`

	// ScheduleCron is the daily job in UTC; empty disables the in-process scheduler.
	ScheduleCron string

	HTTPTimeout   time.Duration `validate:"gt=0"`
	UserTimeout   time.Duration `validate:"gt=0"`
	BatchWorkers  int           `validate:"gte=1,lte=256"`
	BatchPageSize int           `validate:"gte=1,lte=10000"`

	// Fixed location used for every user.
	DefaultLocation environment.Coordinate
	DefaultCity     string
	DefaultCountry  string
	GeocoderAPIKey  string

	WeatherProvider    string `validate:"oneof=openmeteo openweathermap weatherapi"`
	OpenWeatherAPIKey  string
	WeatherAPIKey      string
	UpstreamMaxRetries int `validate:"gte=0,lte=5"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DBMaxConns = getenvInt("DB_MAX_CONNS", 10)
	cfg.DBMaxIdle = getenvInt("DB_MAX_IDLE", 5)

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)

	var err error
	if cfg.RunLockTTL, err = getenvDuration("RUN_LOCK_TTL", "30m"); err != nil {
		return nil, err
	}

	cfg.ScheduleCron = getenvDefault("SCHEDULE_CRON", "5 0 * * *")
	if v, ok := os.LookupEnv("SCHEDULE_CRON"); ok && v == "" {
		cfg.ScheduleCron = ""
	}

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.UserTimeout, err = getenvDuration("USER_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	cfg.BatchWorkers = getenvInt("BATCH_WORKERS", 4)
	cfg.BatchPageSize = getenvInt("BATCH_PAGE_SIZE", 500)

	if cfg.DefaultLocation, err = loadDefaultLocation(); err != nil {
		return nil, err
	}
	cfg.DefaultCity = os.Getenv("DEFAULT_CITY")
	cfg.DefaultCountry = os.Getenv("DEFAULT_COUNTRY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.WeatherProvider = getenvDefault("WEATHER_PROVIDER", "openmeteo")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.UpstreamMaxRetries = getenvInt("UPSTREAM_MAX_RETRIES", 0)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// GeocodeEnabled reports whether the default location should be looked up by city.
func (c *AppConfig) GeocodeEnabled() bool {
	return c.DefaultCity != "" && c.GeocoderAPIKey != ""
}

func loadDefaultLocation() (environment.Coordinate, error) {
	loc := environment.DefaultCoordinate

	if v := os.Getenv("DEFAULT_LATITUDE"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil || lat < -90 || lat > 90 {
			return loc, fmt.Errorf("invalid DEFAULT_LATITUDE %q", v)
		}
		loc.Lat = lat
	}
	if v := os.Getenv("DEFAULT_LONGITUDE"); v != "" {
		lon, err := strconv.ParseFloat(v, 64)
		if err != nil || lon < -180 || lon > 180 {
			return loc, fmt.Errorf("invalid DEFAULT_LONGITUDE %q", v)
		}
		loc.Lon = lon
	}
	return loc, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
