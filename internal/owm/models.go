package owm

import "time"

// Condition is one entry of the "weather" array
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Main holds the "main" measurements block
type Main struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  float64 `json:"pressure"`
	Humidity  float64 `json:"humidity"`
}

// Wind holds speed in m/s and optional direction and gusts
type Wind struct {
	Speed float64  `json:"speed"`
	Deg   *float64 `json:"deg,omitempty"`
	Gust  *float64 `json:"gust,omitempty"`
}

// Clouds holds the cloudiness percentage
type Clouds struct {
	All int `json:"all"`
}

// Sys holds country and sun times as unix seconds
type Sys struct {
	Country string `json:"country,omitempty"`
	Sunrise int64  `json:"sunrise,omitempty"`
	Sunset  int64  `json:"sunset,omitempty"`
}

// Coord is the coordinate echoed back by the provider
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CurrentWeather is the /weather response
type CurrentWeather struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Dt       int64       `json:"dt"`
	Timezone int         `json:"timezone"`
	Coord    Coord       `json:"coord"`
	Weather  []Condition `json:"weather"`
	Main     Main        `json:"main"`
	Wind     *Wind       `json:"wind,omitempty"`
	Clouds   Clouds      `json:"clouds"`
	Sys      Sys         `json:"sys"`
}

// Condition returns the first weather condition, or a zero value
func (c *CurrentWeather) Condition() Condition {
	if c == nil || len(c.Weather) == 0 {
		return Condition{}
	}
	return c.Weather[0]
}

// Sunrise returns the sunrise time
func (c *CurrentWeather) Sunrise() time.Time {
	return time.Unix(c.Sys.Sunrise, 0)
}

// Sunset returns the sunset time
func (c *CurrentWeather) Sunset() time.Time {
	return time.Unix(c.Sys.Sunset, 0)
}

// City describes the forecast location
type City struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Coord    Coord  `json:"coord"`
	Timezone int    `json:"timezone"`
	Sunrise  int64  `json:"sunrise"`
	Sunset   int64  `json:"sunset"`
}

// ForecastEntry is one 3-hour step of the forecast list
type ForecastEntry struct {
	Dt      int64       `json:"dt"`
	Main    Main        `json:"main"`
	Weather []Condition `json:"weather"`
	Wind    Wind        `json:"wind"`
	Clouds  Clouds      `json:"clouds"`
	Pop     float64     `json:"pop"`
	DtTxt   string      `json:"dt_txt"`
}

// Time returns the entry's timestamp
func (e ForecastEntry) Time() time.Time {
	return time.Unix(e.Dt, 0)
}

// Condition returns the first weather condition, or a zero value
func (e ForecastEntry) Condition() Condition {
	if len(e.Weather) == 0 {
		return Condition{}
	}
	return e.Weather[0]
}

// ForecastResponse is the /forecast response
type ForecastResponse struct {
	Cnt  int             `json:"cnt"`
	City City            `json:"city"`
	List []ForecastEntry `json:"list"`
}
