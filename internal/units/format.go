package units

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// MinusSign replaces the ASCII hyphen in formatted negative numbers
	MinusSign = "−"
	// NoValue is shown for measurements the provider did not report
	NoValue = "–"
)

// Formatter renders measurements with the configured units and the
// numeral conventions of a locale
type Formatter struct {
	Temperature TemperatureUnit
	Pressure    PressureUnit
	WindSpeed   WindSpeedUnit
	Decimals    int
	WindArrows  bool

	tag     language.Tag
	printer *message.Printer
}

// NewFormatter creates a formatter for a BCP 47 locale such as "de" or
// "en-GB". Unknown locales fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(labels)),
	}
}

// Locale returns the formatter's language tag
func (f *Formatter) Locale() language.Tag {
	return f.tag
}

// Number rounds v to decimals places and formats it for the locale.
// Trailing zeros are dropped.
func (f *Formatter) Number(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	r := Round(v, decimals)
	if r == 0 {
		r = 0 // drop the sign of negative zero
	}
	s := f.printer.Sprintf("%v", number.Decimal(r, number.MaxFractionDigits(decimals)))
	return strings.ReplaceAll(s, "-", MinusSign)
}

// FormatTemperature formats degrees Celsius in the configured unit
func (f *Formatter) FormatTemperature(celsius float64) string {
	return f.Number(ConvertTemperature(celsius, f.Temperature), f.Decimals) + " " + f.Temperature.Symbol()
}

// FormatPressure formats hectopascals in the configured unit
func (f *Formatter) FormatPressure(hpa float64) string {
	return f.Number(ConvertPressure(hpa, f.Pressure), f.Decimals) + " " + f.Pressure.Symbol()
}

// FormatWind formats a speed in m/s, prefixed by direction when it is set
func (f *Formatter) FormatWind(mps float64, direction string) string {
	var value, unit string
	if f.WindSpeed == Beaufort {
		force := BeaufortForce(mps)
		value = f.Number(float64(force), 0)
		unit = "(" + f.BeaufortLabel(force) + ")"
	} else {
		value = f.Number(ConvertWindSpeed(mps, f.WindSpeed), f.Decimals)
		unit = f.WindSpeed.Symbol()
	}

	if direction == "" {
		return value + " " + unit
	}
	return direction + " " + value + " " + unit
}

// BeaufortLabel returns the name of a force in the formatter's language
func (f *Formatter) BeaufortLabel(force int) string {
	label := BeaufortLabel(force)
	if label == "" {
		return ""
	}
	return f.printer.Sprintf(label)
}

// FormatOptionalWind formats speed when present, otherwise NoValue
func (f *Formatter) FormatOptionalWind(mps *float64) string {
	if mps == nil {
		return NoValue
	}
	return f.FormatWind(*mps, "")
}

// FormatHumidity formats a relative humidity percentage
func (f *Formatter) FormatHumidity(percent float64) string {
	return f.Number(percent, 0) + " %"
}

// Direction returns the compass letters or arrow for deg
func (f *Formatter) Direction(deg float64) string {
	return WindDirection(deg, f.WindArrows)
}

// Round rounds v half away from zero to decimals places
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
