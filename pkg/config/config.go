package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/smukkama/openweather-panel/internal/units"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	minCurrentInterval  = 10 * time.Minute
	minForecastInterval = time.Hour
	maxForecastDays     = 5
)

type Config struct {
	OWM       OWMConfig
	Geocode   GeocodeConfig
	App       AppConfig
	Units     UnitsConfig
	Forecast  ForecastConfig
	Refresh   RefreshConfig
	Panel     PanelConfig
	Locations LocationsConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Feed      FeedConfig
}

type OWMConfig struct {
	APIKey               string
	UseDefaultKey        bool
	BaseURL              string
	ProviderTranslations bool
	RateLimit            float64
	RateBurst            int
}

type GeocodeConfig struct {
	BaseURL string
}

type AppConfig struct {
	ID       string
	Version  string
	Locale   string
	TimeZone string
}

// Location resolves TimeZone, defaulting to the local zone
func (a AppConfig) Location() (*time.Location, error) {
	if a.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(a.TimeZone)
}

type UnitsConfig struct {
	Temperature   units.TemperatureUnit
	Pressure      units.PressureUnit
	WindSpeed     units.WindSpeedUnit
	DecimalPlaces int
	WindArrows    bool
}

type ForecastConfig struct {
	Disabled bool
	Days     int
}

type RefreshConfig struct {
	Current      time.Duration
	Forecast     time.Duration
	StartupDelay time.Duration
}

type PanelConfig struct {
	ShowText           bool
	ShowComment        bool
	TranslateCondition bool
	LocationTextLength int
	ClockFormat        string
}

type LocationsConfig struct {
	Store  string
	File   string
	Legacy string
	Active int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicPanel    string
	TopicCommands string
	GroupID       string
}

type FeedConfig struct {
	Enabled           bool
	Port              int
	MaxConnections    int
	IdentifyTimeout   time.Duration
	InactivityTimeout time.Duration
}

// Load reads configuration from the environment, after loading .env if it
// exists
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

// Reload re-reads .env, letting it override the current environment, and
// builds a fresh configuration
func Reload() (*Config, error) {
	_ = godotenv.Overload()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	temperature, err := units.ParseTemperatureUnit(getEnv("UNITS_TEMPERATURE", "celsius"))
	if err != nil {
		return nil, err
	}
	pressure, err := units.ParsePressureUnit(getEnv("UNITS_PRESSURE", "hpa"))
	if err != nil {
		return nil, err
	}
	windSpeed, err := units.ParseWindSpeedUnit(getEnv("UNITS_WIND_SPEED", "kph"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		OWM: OWMConfig{
			APIKey:               getEnv("OWM_API_KEY", ""),
			UseDefaultKey:        getEnvAsBool("OWM_USE_DEFAULT_KEY", false),
			BaseURL:              getEnv("OWM_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			ProviderTranslations: getEnvAsBool("OWM_PROVIDER_TRANSLATIONS", false),
			RateLimit:            getEnvAsFloat("OWM_RATE_LIMIT", 1),
			RateBurst:            getEnvAsInt("OWM_RATE_BURST", 2),
		},
		Geocode: GeocodeConfig{
			BaseURL: getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		},
		App: AppConfig{
			ID:       getEnv("APP_ID", "openweather-panel"),
			Version:  getEnv("APP_VERSION", "1"),
			Locale:   getEnv("LOCALE", localeFromLang(os.Getenv("LANG"))),
			TimeZone: getEnv("TZ_NAME", ""),
		},
		Units: UnitsConfig{
			Temperature:   temperature,
			Pressure:      pressure,
			WindSpeed:     windSpeed,
			DecimalPlaces: clamp(getEnvAsInt("DECIMAL_PLACES", 1), 0, 3),
			WindArrows:    getEnvAsBool("WIND_DIRECTION_ARROWS", false),
		},
		Forecast: ForecastConfig{
			Disabled: getEnvAsBool("FORECAST_DISABLED", false),
			Days:     clamp(getEnvAsInt("FORECAST_DAYS", 2), 0, maxForecastDays),
		},
		Refresh: RefreshConfig{
			Current:      atLeast(getEnvAsDuration("REFRESH_INTERVAL_CURRENT", 10*time.Minute), minCurrentInterval),
			Forecast:     atLeast(getEnvAsDuration("REFRESH_INTERVAL_FORECAST", time.Hour), minForecastInterval),
			StartupDelay: atLeast(getEnvAsDuration("STARTUP_DELAY", 0), 0),
		},
		Panel: PanelConfig{
			ShowText:           getEnvAsBool("PANEL_SHOW_TEXT", true),
			ShowComment:        getEnvAsBool("PANEL_SHOW_COMMENT", false),
			TranslateCondition: getEnvAsBool("TRANSLATE_CONDITION", true),
			LocationTextLength: atLeastInt(getEnvAsInt("LOCATION_TEXT_LENGTH", 0), 0),
			ClockFormat:        getEnv("CLOCK_FORMAT", "24h"),
		},
		Locations: LocationsConfig{
			Store:  strings.ToLower(getEnv("LOCATION_STORE", StoreFile)),
			File:   getEnv("LOCATION_FILE", defaultLocationFile()),
			Legacy: getEnv("WEATHER_LOCATIONS", ""),
			Active: getEnvAsInt("WEATHER_ACTIVE_LOCATION", 0),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "weather_user"),
			Password: getEnv("DB_PASSWORD", "weather_pass"),
			DBName:   getEnv("DB_NAME", "weather_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REDIS_SNAPSHOT_TTL", 6*time.Hour),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicPanel:    getEnv("KAFKA_TOPIC_PANEL", "weather.panel"),
			TopicCommands: getEnv("KAFKA_TOPIC_COMMANDS", "weather.panel.commands"),
			GroupID:       getEnv("KAFKA_GROUP_ID", "weatherd"),
		},
		Feed: FeedConfig{
			Enabled:           getEnvAsBool("FEED_ENABLED", true),
			Port:              getEnvAsInt("FEED_PORT", 7878),
			MaxConnections:    getEnvAsInt("FEED_MAX_CONNECTIONS", 64),
			IdentifyTimeout:   getEnvAsDuration("FEED_IDENTIFY_TIMEOUT", 10*time.Second),
			InactivityTimeout: getEnvAsDuration("FEED_INACTIVITY_TIMEOUT", 10*time.Minute),
		},
	}

	switch config.Locations.Store {
	case StoreFile, StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown LOCATION_STORE: %s", config.Locations.Store)
	}
	switch config.Panel.ClockFormat {
	case "24h", "12h":
	default:
		return nil, fmt.Errorf("unknown CLOCK_FORMAT: %s", config.Panel.ClockFormat)
	}

	return config, nil
}

// localeFromLang extracts the language from a POSIX locale such as
// "de_DE.UTF-8". "C", "POSIX" and unset values fall back to English.
func localeFromLang(lang string) string {
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	i := strings.Index(lang, "_")
	if i <= 0 {
		return "en"
	}
	return strings.ToLower(lang[:i])
}

func defaultLocationFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "locations.json"
	}
	return filepath.Join(dir, "openweather-panel", "locations.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func atLeastInt(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func atLeast(v, min time.Duration) time.Duration {
	if v < min {
		return min
	}
	return v
}
