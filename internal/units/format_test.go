package units

import "testing"

func TestFormatter_Temperature(t *testing.T) {
	f := NewFormatter("en")
	f.Temperature = Fahrenheit

	if got := f.FormatTemperature(0); got != "32 °F" {
		t.Errorf("0°C in F = %q, want %q", got, "32 °F")
	}
	if got := f.FormatTemperature(100); got != "212 °F" {
		t.Errorf("100°C in F = %q, want %q", got, "212 °F")
	}

	f.Temperature = Celsius
	if got := f.FormatTemperature(-5.4); got != "−5 °C" {
		t.Errorf("Negative temperature = %q, want true minus sign", got)
	}
	if got := f.FormatTemperature(-0.4); got != "0 °C" {
		t.Errorf("Negative zero = %q, want %q", got, "0 °C")
	}

	f.Decimals = 1
	if got := f.FormatTemperature(21.25); got != "21.3 °C" {
		t.Errorf("Rounded temperature = %q, want %q", got, "21.3 °C")
	}
	if got := f.FormatTemperature(20.0); got != "20 °C" {
		t.Errorf("Trailing zero kept: %q", got)
	}

	f.Temperature = Kelvin
	f.Decimals = 2
	if got := f.FormatTemperature(0); got != "273.15 K" {
		t.Errorf("Kelvin = %q", got)
	}
}

func TestFormatter_LocaleNumerals(t *testing.T) {
	de := NewFormatter("de")
	de.Decimals = 1
	if got := de.FormatTemperature(21.3); got != "21,3 °C" {
		t.Errorf("German decimal mark: got %q", got)
	}

	en := NewFormatter("en")
	if got := en.FormatPressure(1013); got != "1,013 hPa" {
		t.Errorf("English grouping: got %q", got)
	}

	fallback := NewFormatter("not a locale!")
	if got := fallback.Number(3, 0); got != "3" {
		t.Errorf("Fallback locale: got %q", got)
	}
}

func TestFormatter_Pressure(t *testing.T) {
	f := NewFormatter("en")
	f.Pressure = KPa
	f.Decimals = 1
	if got := f.FormatPressure(1013); got != "101.3 kPa" {
		t.Errorf("kPa = %q", got)
	}

	f.Pressure = InHg
	f.Decimals = 2
	if got := f.FormatPressure(1013.25); got != "29.92 inHg" {
		t.Errorf("inHg = %q", got)
	}
}

func TestFormatter_Wind(t *testing.T) {
	f := NewFormatter("en")
	f.WindSpeed = MPS

	if got := f.FormatWind(3, "N"); got != "N 3 m/s" {
		t.Errorf("Wind with direction = %q", got)
	}
	if got := f.FormatWind(3, ""); got != "3 m/s" {
		t.Errorf("Wind without direction = %q", got)
	}

	f.WindSpeed = KPH
	if got := f.FormatWind(10, "SW"); got != "SW 36 km/h" {
		t.Errorf("km/h = %q", got)
	}

	f.WindSpeed = Beaufort
	if got := f.FormatWind(5, "↓"); got != "↓ 3 (Gentle breeze)" {
		t.Errorf("Beaufort = %q", got)
	}

	if got := f.FormatOptionalWind(nil); got != NoValue {
		t.Errorf("Missing gust = %q", got)
	}
	gust := 0.1
	if got := f.FormatOptionalWind(&gust); got != "0 (Calm)" {
		t.Errorf("Gust = %q", got)
	}
}

func TestFormatter_Humidity(t *testing.T) {
	f := NewFormatter("en")
	if got := f.FormatHumidity(63); got != "63 %" {
		t.Errorf("Humidity = %q", got)
	}
}

func TestFormatter_BeaufortLabelTranslated(t *testing.T) {
	tests := []struct {
		locale string
		mps    float64
		want   string
	}{
		{"en", 5, "3 (Gentle breeze)"},
		{"de", 5, "3 (Schwache Brise)"},
		{"de-AT", 0.1, "0 (Windstille)"},
		{"fr", 40, "12 (Ouragan)"},
		{"ru", 5, "3 (Gentle breeze)"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			f := NewFormatter(tt.locale)
			f.WindSpeed = Beaufort
			if got := f.FormatWind(tt.mps, ""); got != tt.want {
				t.Errorf("FormatWind(%v) = %q, want %q", tt.mps, got, tt.want)
			}
		})
	}

	if got := NewFormatter("de").BeaufortLabel(13); got != "" {
		t.Errorf("Out of range force = %q", got)
	}
}
