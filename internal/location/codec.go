package location

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ListSeparator joins encoded locations
	ListSeparator = " && "
	// FieldSeparator splits coordinate, name and provider within an entry
	FieldSeparator = ">"

	// InvalidName is returned by ExtractName for entries without a separator
	InvalidName = "Invalid city"

	// DefaultSerialized is used when no location has been configured
	DefaultSerialized = "55.7522, 37.6156>Moscow >0"
)

// Provider ids stored in the third field of an entry
const (
	ProviderUnset          = -1
	ProviderOpenWeatherMap = 0
)

var (
	ErrInvalidLocation = &LocationError{"invalid location"}
)

// LocationError represents a location codec error
type LocationError struct {
	msg string
}

func (e *LocationError) Error() string {
	return e.msg
}

// Coordinate is a latitude/longitude pair in decimal degrees
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// String renders the coordinate the way it is encoded in an entry
func (c Coordinate) String() string {
	return formatFloat(c.Latitude) + "," + formatFloat(c.Longitude)
}

// Location is a named geocoordinate
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
	Provider  int     `json:"provider"`

	// Invalid marks an entry whose coordinate could not be parsed; Raw keeps
	// its original text so that encoding does not lose it.
	Invalid bool   `json:"-"`
	Raw     string `json:"-"`
}

// Coordinate returns the location's coordinate
func (l Location) Coordinate() Coordinate {
	return Coordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

// Encode renders a single entry as "lat,lon>name>provider"
func (l Location) Encode() string {
	if l.Invalid {
		return l.Raw
	}
	return l.Coordinate().String() + FieldSeparator + l.Name + FieldSeparator + strconv.Itoa(l.Provider)
}

// Decode parses a serialized location list. Malformed entries are kept as
// invalid markers; the returned error joins one ErrInvalidLocation per entry.
func Decode(serialized string) (List, error) {
	var list List
	if serialized == "" {
		return list, nil
	}

	var errs []error
	for _, entry := range strings.Split(serialized, ListSeparator) {
		loc, err := decodeEntry(entry)
		if err != nil {
			errs = append(errs, err)
		}
		list.Locations = append(list.Locations, loc)
	}

	return list, errors.Join(errs...)
}

// Encode is the inverse of Decode
func Encode(list List) string {
	entries := make([]string, 0, len(list.Locations))
	for _, loc := range list.Locations {
		entries = append(entries, loc.Encode())
	}
	return strings.Join(entries, ListSeparator)
}

func decodeEntry(entry string) (Location, error) {
	coord, err := ExtractCoordinate(entry)
	if err != nil {
		return Location{Invalid: true, Raw: entry, Name: ExtractName(entry), Provider: ExtractProvider(entry)}, err
	}

	return Location{
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		Name:      ExtractName(entry),
		Provider:  ExtractProvider(entry),
	}, nil
}

// ExtractName returns the display name of an encoded entry
func ExtractName(entry string) string {
	if entry == "" {
		return ""
	}
	if !strings.Contains(entry, FieldSeparator) {
		return InvalidName
	}
	return strings.Split(entry, FieldSeparator)[1]
}

// ExtractCoordinate parses the "lat,lon" field of an encoded entry
func ExtractCoordinate(entry string) (Coordinate, error) {
	if !strings.Contains(entry, FieldSeparator) {
		return Coordinate{}, fmt.Errorf("%w: %q has no name separator", ErrInvalidLocation, entry)
	}

	field := stripSpaces(strings.Split(entry, FieldSeparator)[0])
	parts := strings.Split(field, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: %q is not a lat,lon pair", ErrInvalidLocation, field)
	}

	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q", ErrInvalidLocation, parts[0])
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q", ErrInvalidLocation, parts[1])
	}

	return Coordinate{Latitude: lat, Longitude: lon}, nil
}

// ExtractProvider returns the provider id of an encoded entry, or
// ProviderUnset when it is missing or not a number
func ExtractProvider(entry string) int {
	fields := strings.Split(entry, FieldSeparator)
	if len(fields) < 3 {
		return ProviderUnset
	}
	id, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return ProviderUnset
	}
	return id
}

// ParseCoordinate parses free-form "lat,lon" text
func ParseCoordinate(s string) (Coordinate, error) {
	return ExtractCoordinate(s + FieldSeparator)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
