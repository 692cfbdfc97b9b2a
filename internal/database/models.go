package database

import (
	"time"

	"github.com/smukkama/openweather-panel/internal/location"
)

// LocationRow is one row of the locations table
type LocationRow struct {
	Position  int
	Latitude  float64
	Longitude float64
	Name      string
	Provider  int
	UpdatedAt time.Time
}

func (r LocationRow) Location() location.Location {
	return location.Location{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Name:      r.Name,
		Provider:  r.Provider,
	}
}

const (
	SettingActiveLocation = "active_location"
)
