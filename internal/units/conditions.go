package units

import "time"

// NotAvailable is returned for unknown condition codes
const NotAvailable = "Not available"

// MissingIcon is returned for unknown provider icon codes
const MissingIcon = "weather-severe-alert-symbolic"

// conditions maps OpenWeatherMap condition ids to display text
var conditions = map[int]string{
	// Thunderstorm
	200: "Thunderstorm with Light Rain",
	201: "Thunderstorm with Rain",
	202: "Thunderstorm with Heavy Rain",
	210: "Light Thunderstorm",
	211: "Thunderstorm",
	212: "Heavy Thunderstorm",
	221: "Ragged Thunderstorm",
	230: "Thunderstorm with Light Drizzle",
	231: "Thunderstorm with Drizzle",
	232: "Thunderstorm with Heavy Drizzle",

	// Drizzle
	300: "Light Drizzle",
	301: "Drizzle",
	302: "Heavy Drizzle",
	310: "Light Drizzle Rain",
	311: "Drizzle Rain",
	312: "Heavy Drizzle Rain",
	313: "Shower Rain and Drizzle",
	314: "Heavy Rain and Drizzle",
	321: "Shower Drizzle",

	// Rain
	500: "Light Rain",
	501: "Moderate Rain",
	502: "Heavy Rain",
	503: "Very Heavy Rain",
	504: "Extreme Rain",
	511: "Freezing Rain",
	520: "Light Shower Rain",
	521: "Shower Rain",
	522: "Heavy Shower Rain",
	531: "Ragged Shower Rain",

	// Snow
	600: "Light Snow",
	601: "Snow",
	602: "Heavy Snow",
	611: "Sleet",
	612: "Light Shower Sleet",
	613: "Shower Sleet",
	615: "Light Rain and Snow",
	616: "Rain and Snow",
	620: "Light Shower Snow",
	621: "Shower Snow",
	622: "Heavy Shower Snow",

	// Atmosphere
	701: "Mist",
	711: "Smoke",
	721: "Haze",
	731: "Sand/Dust Whirls",
	741: "Fog",
	751: "Sand",
	761: "Dust",
	762: "Volcanic Ash",
	771: "Squalls",
	781: "Tornado",

	// Clear and clouds
	800: "Clear Sky",
	801: "Few Clouds",
	802: "Scattered Clouds",
	803: "Broken Clouds",
	804: "Overcast Clouds",
}

// ConditionText returns the display text for a condition id
func ConditionText(code int) string {
	if text, ok := conditions[code]; ok {
		return text
	}
	return NotAvailable
}

var icons = map[string]string{
	"01d": "weather-clear-symbolic",
	"02d": "weather-few-clouds-symbolic",
	"03d": "weather-few-clouds-symbolic",
	"04d": "weather-overcast-symbolic",
	"09d": "weather-showers-scattered-symbolic",
	"10d": "weather-showers-symbolic",
	"11d": "weather-storm-symbolic",
	"13d": "weather-snow-symbolic",
	"50d": "weather-fog-symbolic",
	"01n": "weather-clear-night-symbolic",
	"02n": "weather-few-clouds-night-symbolic",
	"03n": "weather-few-clouds-night-symbolic",
	"04n": "weather-overcast-symbolic",
	"09n": "weather-showers-scattered-symbolic",
	"10n": "weather-showers-symbolic",
	"11n": "weather-storm-symbolic",
	"13n": "weather-snow-symbolic",
	"50n": "weather-fog-symbolic",
}

// IconName maps a provider icon code such as "10n" to a symbolic icon name
func IconName(code string) string {
	if name, ok := icons[code]; ok {
		return name
	}
	return MissingIcon
}

// DayName returns the display name of a weekday
func DayName(day time.Weekday) string {
	return day.String()
}
