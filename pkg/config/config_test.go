package config

import (
	"testing"
	"time"

	"github.com/smukkama/openweather-panel/internal/units"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LANG", "de_DE.UTF-8")
	t.Setenv("LOCATION_FILE", "/tmp/locations.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Locale != "de" {
		t.Errorf("Expected locale de from LANG, got %s", cfg.App.Locale)
	}
	if cfg.Units.Temperature != units.Celsius || cfg.Units.Pressure != units.HPa || cfg.Units.WindSpeed != units.KPH {
		t.Errorf("Unexpected default units %+v", cfg.Units)
	}
	if cfg.Refresh.Current != 10*time.Minute || cfg.Refresh.Forecast != time.Hour {
		t.Errorf("Unexpected default intervals %+v", cfg.Refresh)
	}
	if cfg.Locations.Store != StoreFile || cfg.Locations.File != "/tmp/locations.json" {
		t.Errorf("Unexpected locations config %+v", cfg.Locations)
	}
	if cfg.Database.ConnectionString() != "host=localhost port=5432 user=weather_user password=weather_pass dbname=weather_db sslmode=disable" {
		t.Errorf("Unexpected connection string %q", cfg.Database.ConnectionString())
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled {
		t.Error("Redis and Kafka should be opt-in")
	}
}

func TestLoad_Clamping(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL_CURRENT", "1m")
	t.Setenv("REFRESH_INTERVAL_FORECAST", "20m")
	t.Setenv("FORECAST_DAYS", "9")
	t.Setenv("DECIMAL_PLACES", "-2")
	t.Setenv("STARTUP_DELAY", "-5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Refresh.Current != 10*time.Minute {
		t.Errorf("Current interval not clamped: %v", cfg.Refresh.Current)
	}
	if cfg.Refresh.Forecast != time.Hour {
		t.Errorf("Forecast interval not clamped: %v", cfg.Refresh.Forecast)
	}
	if cfg.Forecast.Days != 5 {
		t.Errorf("Forecast days not clamped: %d", cfg.Forecast.Days)
	}
	if cfg.Units.DecimalPlaces != 0 || cfg.Refresh.StartupDelay != 0 {
		t.Errorf("Negative values not clamped: %d %v", cfg.Units.DecimalPlaces, cfg.Refresh.StartupDelay)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("UNITS_TEMPERATURE", "fahrenheit")
	t.Setenv("UNITS_PRESSURE", "inhg")
	t.Setenv("UNITS_WIND_SPEED", "beaufort")
	t.Setenv("LOCALE", "fr")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PANEL_SHOW_COMMENT", "1")
	t.Setenv("CLOCK_FORMAT", "12h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Units.Temperature != units.Fahrenheit || cfg.Units.Pressure != units.InHg || cfg.Units.WindSpeed != units.Beaufort {
		t.Errorf("Unit overrides ignored: %+v", cfg.Units)
	}
	if cfg.App.Locale != "fr" {
		t.Errorf("LOCALE override ignored: %s", cfg.App.Locale)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Unexpected kafka config %+v", cfg.Kafka)
	}
	if !cfg.Panel.ShowComment || cfg.Panel.ClockFormat != "12h" {
		t.Errorf("Unexpected panel config %+v", cfg.Panel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"UNITS_TEMPERATURE", "centigrade"},
		{"UNITS_PRESSURE", "furlongs"},
		{"UNITS_WIND_SPEED", "warp"},
		{"LOCATION_STORE", "sqlite"},
		{"CLOCK_FORMAT", "36h"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_MemoryStore(t *testing.T) {
	t.Setenv("LOCATION_STORE", "Memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Locations.Store != StoreMemory {
		t.Errorf("Expected memory store, got %q", cfg.Locations.Store)
	}
}

func TestLocaleFromLang(t *testing.T) {
	tests := map[string]string{
		"de_DE.UTF-8":    "de",
		"pt_BR":          "pt",
		"sr_RS@latin":    "sr",
		"C":              "en",
		"C.UTF-8":        "en",
		"":               "en",
		"POSIX":          "en",
		"en_US.ISO-8859": "en",
	}
	for in, want := range tests {
		if got := localeFromLang(in); got != want {
			t.Errorf("localeFromLang(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAppConfig_Location(t *testing.T) {
	loc, err := AppConfig{}.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Empty zone should be local, got %v %v", loc, err)
	}
	if _, err := (AppConfig{TimeZone: "Not/AZone"}).Location(); err == nil {
		t.Error("Expected error for unknown zone")
	}
}
