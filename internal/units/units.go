package units

import (
	"fmt"
	"math"
	"strings"
)

// TemperatureUnit selects the temperature scale
type TemperatureUnit int

const (
	Celsius TemperatureUnit = iota
	Fahrenheit
	Kelvin
	Rankine
	Reaumur
	Roemer
	Delisle
	Newton
)

var temperatureNames = map[string]TemperatureUnit{
	"celsius":    Celsius,
	"fahrenheit": Fahrenheit,
	"kelvin":     Kelvin,
	"rankine":    Rankine,
	"reaumur":    Reaumur,
	"roemer":     Roemer,
	"delisle":    Delisle,
	"newton":     Newton,
}

// ParseTemperatureUnit parses a configuration name such as "fahrenheit"
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	if u, ok := temperatureNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return Celsius, fmt.Errorf("unknown temperature unit: %s", s)
}

// Symbol returns the unit suffix
func (u TemperatureUnit) Symbol() string {
	switch u {
	case Fahrenheit:
		return "°F"
	case Kelvin:
		return "K"
	case Rankine:
		return "°Ra"
	case Reaumur:
		return "°Ré"
	case Roemer:
		return "°Rø"
	case Delisle:
		return "°De"
	case Newton:
		return "°N"
	default:
		return "°C"
	}
}

// ConvertTemperature converts degrees Celsius to unit
func ConvertTemperature(c float64, unit TemperatureUnit) float64 {
	switch unit {
	case Fahrenheit:
		return c*1.8 + 32
	case Kelvin:
		return c + 273.15
	case Rankine:
		return c*1.8 + 491.67
	case Reaumur:
		return c * 0.8
	case Roemer:
		return c*21/40 + 7.5
	case Delisle:
		return (100 - c) * 1.5
	case Newton:
		return c - 0.33
	default:
		return c
	}
}

// PressureUnit selects the pressure unit
type PressureUnit int

const (
	HPa PressureUnit = iota
	InHg
	Bar
	Pa
	KPa
	Atm
	At
	Torr
	Psi
	MmHg
	MBar
)

var pressureNames = map[string]PressureUnit{
	"hpa":  HPa,
	"inhg": InHg,
	"bar":  Bar,
	"pa":   Pa,
	"kpa":  KPa,
	"atm":  Atm,
	"at":   At,
	"torr": Torr,
	"psi":  Psi,
	"mmhg": MmHg,
	"mbar": MBar,
}

// ParsePressureUnit parses a configuration name such as "inhg"
func ParsePressureUnit(s string) (PressureUnit, error) {
	if u, ok := pressureNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return HPa, fmt.Errorf("unknown pressure unit: %s", s)
}

// Symbol returns the unit suffix
func (u PressureUnit) Symbol() string {
	switch u {
	case InHg:
		return "inHg"
	case Bar:
		return "bar"
	case Pa:
		return "Pa"
	case KPa:
		return "kPa"
	case Atm:
		return "atm"
	case At:
		return "at"
	case Torr:
		return "Torr"
	case Psi:
		return "psi"
	case MmHg:
		return "mmHg"
	case MBar:
		return "mbar"
	default:
		return "hPa"
	}
}

// ConvertPressure converts hectopascals to unit
func ConvertPressure(hpa float64, unit PressureUnit) float64 {
	switch unit {
	case InHg:
		return hpa / 33.86530749
	case Bar:
		return hpa / 1000
	case Pa:
		return hpa * 100
	case KPa:
		return hpa / 10
	case Atm:
		return hpa * 0.000986923267
	case At:
		return hpa * 0.00101971621298
	case Torr:
		return hpa * 0.750061683
	case Psi:
		return hpa * 0.0145037738
	case MmHg:
		return hpa * 0.750061683
	default:
		return hpa
	}
}

// WindSpeedUnit selects the wind speed unit
type WindSpeedUnit int

const (
	KPH WindSpeedUnit = iota
	MPH
	MPS
	Knots
	FPS
	Beaufort
)

var windSpeedNames = map[string]WindSpeedUnit{
	"kph":      KPH,
	"km/h":     KPH,
	"mph":      MPH,
	"mps":      MPS,
	"m/s":      MPS,
	"knots":    Knots,
	"kn":       Knots,
	"fps":      FPS,
	"ft/s":     FPS,
	"beaufort": Beaufort,
}

// ParseWindSpeedUnit parses a configuration name such as "knots"
func ParseWindSpeedUnit(s string) (WindSpeedUnit, error) {
	if u, ok := windSpeedNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return KPH, fmt.Errorf("unknown wind speed unit: %s", s)
}

// Symbol returns the unit suffix. Beaufort has none; its label is used instead.
func (u WindSpeedUnit) Symbol() string {
	switch u {
	case MPH:
		return "mph"
	case MPS:
		return "m/s"
	case Knots:
		return "kn"
	case FPS:
		return "ft/s"
	case Beaufort:
		return ""
	default:
		return "km/h"
	}
}

// ConvertWindSpeed converts metres per second to unit. Beaufort returns the
// force number.
func ConvertWindSpeed(mps float64, unit WindSpeedUnit) float64 {
	switch unit {
	case MPH:
		return mps * 2.23693629
	case KPH:
		return mps * 3.6
	case Knots:
		return mps * 1.94384449
	case FPS:
		return mps * 3.2808399
	case Beaufort:
		return float64(BeaufortForce(mps))
	default:
		return mps
	}
}

// beaufortUpper holds the inclusive upper bound in m/s of forces 1..11.
// Anything below 0.3 is force 0, anything above 32.6 is force 12.
var beaufortUpper = [...]float64{1.5, 3.4, 5.4, 7.9, 10.7, 13.8, 17.1, 20.7, 24.4, 28.4, 32.6}

var beaufortLabels = [...]string{
	"Calm",
	"Light air",
	"Light breeze",
	"Gentle breeze",
	"Moderate breeze",
	"Fresh breeze",
	"Strong breeze",
	"Moderate gale",
	"Fresh gale",
	"Strong gale",
	"Storm",
	"Violent storm",
	"Hurricane",
}

// BeaufortForce maps a wind speed in m/s to the Beaufort scale
func BeaufortForce(mps float64) int {
	if mps < 0.3 {
		return 0
	}
	for i, upper := range beaufortUpper {
		if mps <= upper {
			return i + 1
		}
	}
	return 12
}

// BeaufortLabel returns the descriptive name of a force
func BeaufortLabel(force int) string {
	if force < 0 || force >= len(beaufortLabels) {
		return ""
	}
	return beaufortLabels[force]
}

var (
	windArrows  = [...]string{"↓", "↙", "←", "↖", "↑", "↗", "→", "↘"}
	windLetters = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
)

// WindDirection returns the 8-point compass letters, or an arrow pointing
// the way the wind blows, for a bearing in degrees
func WindDirection(deg float64, arrows bool) string {
	idx := int(math.Round(deg/45)) % len(windLetters)
	if idx < 0 {
		idx += len(windLetters)
	}
	if arrows {
		return windArrows[idx]
	}
	return windLetters[idx]
}
