package app

import (
	"github.com/smukkama/openweather-panel/internal/pipeline"
	"github.com/smukkama/openweather-panel/internal/render"
	"github.com/smukkama/openweather-panel/internal/units"
	"github.com/smukkama/openweather-panel/pkg/config"
)

// SettingsFromConfig builds pipeline settings from the loaded configuration
func SettingsFromConfig(cfg *config.Config) (pipeline.Settings, error) {
	tz, err := cfg.App.Location()
	if err != nil {
		return pipeline.Settings{}, err
	}

	f := units.NewFormatter(cfg.App.Locale)
	f.Temperature = cfg.Units.Temperature
	f.Pressure = cfg.Units.Pressure
	f.WindSpeed = cfg.Units.WindSpeed
	f.Decimals = cfg.Units.DecimalPlaces
	f.WindArrows = cfg.Units.WindArrows

	return pipeline.Settings{
		ForecastDisabled:     cfg.Forecast.Disabled,
		ForecastDays:         cfg.Forecast.Days,
		CurrentInterval:      cfg.Refresh.Current,
		ForecastInterval:     cfg.Refresh.Forecast,
		StartupDelay:         cfg.Refresh.StartupDelay,
		ProviderTranslations: cfg.OWM.ProviderTranslations,
		Language:             cfg.App.Locale,
		Formatter:            f,
		Render: render.Options{
			ShowTextInPanel:    cfg.Panel.ShowText,
			ShowCommentInPanel: cfg.Panel.ShowComment,
			TranslateCondition: cfg.Panel.TranslateCondition,
			ClockFormat:        cfg.Panel.ClockFormat,
			LocationTextLength: cfg.Panel.LocationTextLength,
			TimeZone:           tz,
		},
	}, nil
}
