package render

import (
	"testing"
	"time"

	"github.com/smukkama/openweather-panel/internal/owm"
	"github.com/smukkama/openweather-panel/internal/units"
)

func float(v float64) *float64 { return &v }

func sample() *owm.CurrentWeather {
	return &owm.CurrentWeather{
		ID:      524901,
		Weather: []owm.Condition{{ID: 500, Description: "leichter Regen", Icon: "10d"}},
		Main:    owm.Main{Temp: -3.2, FeelsLike: -7.9, Pressure: 1013, Humidity: 86},
		Wind:    &owm.Wind{Speed: 4, Deg: float(270), Gust: float(9)},
		Sys: owm.Sys{
			Sunrise: time.Date(2024, 3, 10, 6, 5, 0, 0, time.UTC).Unix(),
			Sunset:  time.Date(2024, 3, 10, 17, 45, 0, 0, time.UTC).Unix(),
		},
	}
}

func newRenderer(opts Options) *Renderer {
	f := units.NewFormatter("en")
	f.WindSpeed = units.MPS
	opts.TimeZone = time.UTC
	return NewRenderer(f, opts)
}

func TestPanel(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"both", Options{ShowTextInPanel: true, ShowCommentInPanel: true}, "leichter Regen, −3 °C"},
		{"text only", Options{ShowTextInPanel: true}, "−3 °C"},
		{"comment only", Options{ShowCommentInPanel: true}, "leichter Regen"},
		{"neither", Options{}, ""},
		{"translated", Options{ShowCommentInPanel: true, TranslateCondition: true}, "Light Rain"},
		{"provider translations win", Options{ShowCommentInPanel: true, TranslateCondition: true, ProviderTranslations: true}, "leichter Regen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newRenderer(tt.opts).Panel(sample())
			if got.Text != tt.want {
				t.Errorf("Panel text = %q, want %q", got.Text, tt.want)
			}
			if got.Icon != "weather-showers-symbolic" {
				t.Errorf("Panel icon = %q", got.Icon)
			}
		})
	}
}

func TestCurrent(t *testing.T) {
	r := newRenderer(Options{LocationTextLength: 10})
	now := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

	v := r.Current(sample(), "Moscow, Central Federal District", now)

	if v.Location != "Moscow,..." {
		t.Errorf("Location = %q", v.Location)
	}
	if v.Summary != "leichter Regen, −3 °C" {
		t.Errorf("Summary = %q", v.Summary)
	}
	if v.FeelsLike != "−8 °C" {
		t.Errorf("FeelsLike = %q", v.FeelsLike)
	}
	if v.Humidity != "86 %" || v.Pressure != "1,013 hPa" {
		t.Errorf("Humidity/Pressure = %q / %q", v.Humidity, v.Pressure)
	}
	if v.Wind != "W 4 m/s" || v.Gusts != "9 m/s" {
		t.Errorf("Wind/Gusts = %q / %q", v.Wind, v.Gusts)
	}
	if v.Sunrise != "06:05" || v.Sunset != "17:45" || v.LastUpdate != "14:30" {
		t.Errorf("Times = %q %q %q", v.Sunrise, v.Sunset, v.LastUpdate)
	}
}

func TestCurrent_MissingWind(t *testing.T) {
	r := newRenderer(Options{})
	cw := sample()
	cw.Wind.Deg = nil

	v := r.Current(cw, "Moscow", time.Now())
	if v.Wind != Unknown {
		t.Errorf("Wind without direction = %q, want %q", v.Wind, Unknown)
	}

	cw.Wind = nil
	v = r.Current(cw, "Moscow", time.Now())
	if v.Wind != Unknown || v.Gusts != units.NoValue {
		t.Errorf("Missing wind = %q / %q", v.Wind, v.Gusts)
	}
	if v.Location != "Moscow" {
		t.Errorf("Untruncated location = %q", v.Location)
	}
}

func TestCurrent_12hClock(t *testing.T) {
	r := newRenderer(Options{ClockFormat: Clock12h})
	v := r.Current(sample(), "x", time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC))
	if v.LastUpdate != "2:30 PM" || v.Sunrise != "6:05 AM" {
		t.Errorf("12h times = %q %q", v.LastUpdate, v.Sunrise)
	}
}

func TestDays_Labels(t *testing.T) {
	r := newRenderer(Options{})
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC) // Sunday

	entry := func(day, hour int) owm.ForecastEntry {
		return owm.ForecastEntry{
			Dt:      time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC).Unix(),
			Main:    owm.Main{Temp: 5},
			Weather: []owm.Condition{{ID: 800, Description: "clear sky", Icon: "01d"}},
		}
	}

	days := r.Days([][]owm.ForecastEntry{
		{entry(11, 0), entry(11, 3)},
		{entry(12, 0)},
		nil,
	}, now)

	if len(days) != 2 {
		t.Fatalf("Expected 2 days, got %d", len(days))
	}
	if days[0].Label != Tomorrow {
		t.Errorf("First label = %q", days[0].Label)
	}
	if days[1].Label != "Tuesday" {
		t.Errorf("Second label = %q", days[1].Label)
	}
	if len(days[0].Items) != 2 || days[0].Items[1].Time != "03:00" {
		t.Errorf("Unexpected items %+v", days[0].Items)
	}
	if days[0].Items[0].Temperature != "5 °C" || days[0].Items[0].Icon != "weather-clear-symbolic" {
		t.Errorf("Unexpected item %+v", days[0].Items[0])
	}
}

func TestToday(t *testing.T) {
	r := newRenderer(Options{ClockFormat: Clock12h})
	items := r.Today([]owm.ForecastEntry{{
		Dt:      time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC).Unix(),
		Weather: []owm.Condition{{ID: 801, Description: "few clouds", Icon: "02n"}},
	}})
	if len(items) != 1 || items[0].Time != "3 PM" || items[0].Summary != "few clouds" {
		t.Errorf("Unexpected today items %+v", items)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Moscow", 0, "Moscow"},
		{"Moscow", 6, "Moscow"},
		{"Moscow", 5, "Mo..."},
		{"Zürich", 4, "Z..."},
		{"Zürich", 2, "..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
