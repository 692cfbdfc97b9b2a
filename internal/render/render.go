package render

import (
	"time"
	"unicode/utf8"

	"github.com/smukkama/openweather-panel/internal/forecast"
	"github.com/smukkama/openweather-panel/internal/owm"
	"github.com/smukkama/openweather-panel/internal/units"
)

const (
	Clock24h = "24h"
	Clock12h = "12h"

	// Unknown is shown for wind when speed or direction is missing
	Unknown = "?"
	// Tomorrow labels the day bucket following today
	Tomorrow = "Tomorrow"
)

// Options controls which parts of a snapshot are shown and how
type Options struct {
	ShowTextInPanel      bool
	ShowCommentInPanel   bool
	TranslateCondition   bool
	ProviderTranslations bool
	ClockFormat          string
	LocationTextLength   int
	TimeZone             *time.Location
}

// PanelView is the compact text next to the panel icon
type PanelView struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
}

// CurrentView is the current conditions block of the dropdown
type CurrentView struct {
	Location    string `json:"location"`
	Summary     string `json:"summary"`
	Comment     string `json:"comment"`
	Temperature string `json:"temperature"`
	FeelsLike   string `json:"feels_like"`
	Humidity    string `json:"humidity"`
	Pressure    string `json:"pressure"`
	Wind        string `json:"wind"`
	Gusts       string `json:"gusts"`
	Sunrise     string `json:"sunrise"`
	Sunset      string `json:"sunset"`
	LastUpdate  string `json:"last_update"`
	Icon        string `json:"icon"`
	CityURL     string `json:"city_url,omitempty"`
}

// ItemView is one 3-hour forecast slot
type ItemView struct {
	Time        string `json:"time"`
	Icon        string `json:"icon"`
	Temperature string `json:"temperature"`
	Summary     string `json:"summary"`
}

// DayView is one forecast day
type DayView struct {
	Label string     `json:"label"`
	Items []ItemView `json:"items"`
}

// Renderer turns provider snapshots into display strings
type Renderer struct {
	format *units.Formatter
	opts   Options
}

// NewRenderer creates a renderer. A nil TimeZone renders in local time.
func NewRenderer(f *units.Formatter, opts Options) *Renderer {
	if opts.TimeZone == nil {
		opts.TimeZone = time.Local
	}
	if opts.ClockFormat == "" {
		opts.ClockFormat = Clock24h
	}
	return &Renderer{format: f, opts: opts}
}

// Options returns the renderer's options
func (r *Renderer) Options() Options {
	return r.opts
}

// Comment returns the condition text for c
func (r *Renderer) Comment(c owm.Condition) string {
	if r.opts.TranslateCondition && !r.opts.ProviderTranslations {
		return units.ConditionText(c.ID)
	}
	return c.Description
}

// Panel renders the panel icon and text
func (r *Renderer) Panel(cw *owm.CurrentWeather) PanelView {
	cond := cw.Condition()

	var comment, temp string
	if r.opts.ShowCommentInPanel {
		comment = r.Comment(cond)
	}
	if r.opts.ShowTextInPanel {
		temp = r.format.FormatTemperature(cw.Main.Temp)
	}

	text := comment
	if comment != "" && temp != "" {
		text += ", "
	}
	text += temp

	return PanelView{Icon: units.IconName(cond.Icon), Text: text}
}

// Current renders the current conditions block
func (r *Renderer) Current(cw *owm.CurrentWeather, locationName string, now time.Time) CurrentView {
	cond := cw.Condition()
	comment := r.Comment(cond)
	temp := r.format.FormatTemperature(cw.Main.Temp)

	v := CurrentView{
		Location:    Truncate(locationName, r.opts.LocationTextLength),
		Summary:     comment + ", " + temp,
		Comment:     comment,
		Temperature: temp,
		FeelsLike:   r.format.FormatTemperature(cw.Main.FeelsLike),
		Humidity:    r.format.FormatHumidity(cw.Main.Humidity),
		Pressure:    r.format.FormatPressure(cw.Main.Pressure),
		Sunrise:     r.clock(cw.Sunrise()),
		Sunset:      r.clock(cw.Sunset()),
		LastUpdate:  r.clock(now),
		Icon:        units.IconName(cond.Icon),
		Wind:        Unknown,
		Gusts:       units.NoValue,
	}

	if cw.Wind != nil && cw.Wind.Deg != nil {
		v.Wind = r.format.FormatWind(cw.Wind.Speed, r.format.Direction(*cw.Wind.Deg))
		v.Gusts = r.format.FormatOptionalWind(cw.Wind.Gust)
	}
	return v
}

// Today renders today's slots
func (r *Renderer) Today(entries []owm.ForecastEntry) []ItemView {
	items := make([]ItemView, 0, len(entries))
	for _, e := range entries {
		items = append(items, r.item(e))
	}
	return items
}

// Days renders the day buckets. The first entry of each bucket decides its
// label.
func (r *Renderer) Days(buckets [][]owm.ForecastEntry, now time.Time) []DayView {
	days := make([]DayView, 0, len(buckets))
	for _, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		day := DayView{Label: r.dayLabel(bucket[0].Time(), now)}
		for _, e := range bucket {
			day.Items = append(day.Items, r.item(e))
		}
		days = append(days, day)
	}
	return days
}

func (r *Renderer) item(e owm.ForecastEntry) ItemView {
	cond := e.Condition()
	return ItemView{
		Time:        r.hour(e.Time()),
		Icon:        units.IconName(cond.Icon),
		Temperature: r.format.FormatTemperature(e.Main.Temp),
		Summary:     r.Comment(cond),
	}
}

func (r *Renderer) dayLabel(t, now time.Time) string {
	if forecast.DaysUntil(t, now, r.opts.TimeZone) == 1 {
		return Tomorrow
	}
	return units.DayName(t.In(r.opts.TimeZone).Weekday())
}

// clock formats a time of day with minutes
func (r *Renderer) clock(t time.Time) string {
	t = t.In(r.opts.TimeZone)
	if r.opts.ClockFormat == Clock12h {
		return t.Format("3:04 PM")
	}
	return t.Format("15:04")
}

// hour formats a forecast slot time
func (r *Renderer) hour(t time.Time) string {
	t = t.In(r.opts.TimeZone)
	if r.opts.ClockFormat == Clock12h {
		return t.Format("3 PM")
	}
	return t.Format("15:04")
}

// Truncate shortens s to max characters, ending in "...", when max is set
// and s is longer.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	keep := max - 3
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + "..."
}
