package pipeline

import (
	"context"
	"time"

	"github.com/smukkama/openweather-panel/internal/location"
	"github.com/smukkama/openweather-panel/internal/owm"
	"github.com/smukkama/openweather-panel/internal/render"
)

// Provider fetches weather for a coordinate
type Provider interface {
	Name() string
	Current(ctx context.Context, coord location.Coordinate, lang string) (*owm.CurrentWeather, error)
	Forecast(ctx context.Context, coord location.Coordinate, lang string) (*owm.ForecastResponse, error)
	CityURL(cityID int) string
}

// Display receives rendered views
type Display interface {
	ShowRefreshing()
	ShowCurrent(panel render.PanelView, current render.CurrentView)
	ShowToday(items []render.ItemView)
	ShowForecast(days []render.DayView)
	HideForecast()
}

// Notifier shows a user-facing message
type Notifier interface {
	Notify(title, message string)
}

// Scheduler runs one-shot callbacks by id; scheduling an id replaces it
type Scheduler interface {
	After(id string, d time.Duration, fn func()) error
	Cancel(id string) bool
}

// Prober checks whether the provider is reachable
type Prober interface {
	Probe(ctx context.Context) error
}

// Snapshot is what the pipeline persists between runs for one location
type Snapshot struct {
	Current    *owm.CurrentWeather   `json:"current,omitempty"`
	CurrentAt  time.Time             `json:"current_at,omitempty"`
	Forecast   *owm.ForecastResponse `json:"forecast,omitempty"`
	ForecastAt time.Time             `json:"forecast_at,omitempty"`
}

// SnapshotCache stores snapshots keyed by coordinate. Load returns nil, nil
// on a miss.
type SnapshotCache interface {
	Load(ctx context.Context, key string) (*Snapshot, error)
	Save(ctx context.Context, key string, s *Snapshot) error
	Delete(ctx context.Context, key string) error
}

// MultiDisplay fans every call out to each display in order
func MultiDisplay(displays ...Display) Display {
	return multiDisplay(displays)
}

type multiDisplay []Display

func (m multiDisplay) ShowRefreshing() {
	for _, d := range m {
		d.ShowRefreshing()
	}
}

func (m multiDisplay) ShowCurrent(panel render.PanelView, current render.CurrentView) {
	for _, d := range m {
		d.ShowCurrent(panel, current)
	}
}

func (m multiDisplay) ShowToday(items []render.ItemView) {
	for _, d := range m {
		d.ShowToday(items)
	}
}

func (m multiDisplay) ShowForecast(days []render.DayView) {
	for _, d := range m {
		d.ShowForecast(days)
	}
}

func (m multiDisplay) HideForecast() {
	for _, d := range m {
		d.HideForecast()
	}
}
