package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/smukkama/openweather-panel/internal/location"
	"github.com/smukkama/openweather-panel/internal/pipeline"
	"github.com/smukkama/openweather-panel/internal/protocol"
)

var (
	ErrUnsupportedCommand = &ServiceError{"unsupported command"}
)

// ServiceError represents a service error
type ServiceError struct {
	msg string
}

func (e *ServiceError) Error() string {
	return e.msg
}

// Weather is the part of the pipeline the service drives
type Weather interface {
	SetLocation(ctx context.Context, loc location.Location) error
	ManualRefresh(ctx context.Context) error
	ApplySettings(ctx context.Context, s pipeline.Settings) error
	NetworkChanged()
	Views() pipeline.Views
}

// Service connects the location store to the weather pipeline and executes
// commands arriving from the feed and Kafka
type Service struct {
	store   location.Store
	weather Weather
	mu      sync.Mutex
}

// NewService creates a service
func NewService(store location.Store, weather Weather) *Service {
	return &Service{store: store, weather: weather}
}

// Reload reads the store and applies its active location. An empty store is
// seeded with the default location.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	list, err := s.loadLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	loc, _ := list.ActiveLocation()
	return s.weather.SetLocation(ctx, loc)
}

func (s *Service) loadLocked(ctx context.Context) (location.List, error) {
	list, err := s.store.Load(ctx)
	if err != nil {
		return location.List{}, fmt.Errorf("failed to load locations: %w", err)
	}
	if list.Len() > 0 {
		return list, nil
	}

	list, err = location.Decode(location.DefaultSerialized)
	if err != nil {
		return location.List{}, err
	}
	log.Printf("No locations stored, using %s", list.Locations[0].Name)
	if err := s.store.Save(ctx, list); err != nil {
		return location.List{}, fmt.Errorf("failed to save default location: %w", err)
	}
	return list, nil
}

// Locations returns the stored list
func (s *Service) Locations(ctx context.Context) (location.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// SelectLocation makes the entry at idx active, clamped to the list bounds,
// persists the choice and switches the pipeline to it
func (s *Service) SelectLocation(ctx context.Context, idx int) error {
	s.mu.Lock()
	list, err := s.loadLocked(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	list.SetActive(idx)
	if err := s.store.Save(ctx, list); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to save active location: %w", err)
	}
	s.mu.Unlock()

	loc, _ := list.ActiveLocation()
	return s.weather.SetLocation(ctx, loc)
}

// Refresh requests a manual refresh
func (s *Service) Refresh(ctx context.Context) error {
	return s.weather.ManualRefresh(ctx)
}

// NetworkChanged re-checks connectivity
func (s *Service) NetworkChanged() {
	s.weather.NetworkChanged()
}

// ApplySettings forwards new settings to the pipeline
func (s *Service) ApplySettings(ctx context.Context, settings pipeline.Settings) error {
	return s.weather.ApplySettings(ctx, settings)
}

// Views returns the last rendered views
func (s *Service) Views() pipeline.Views {
	return s.weather.Views()
}

// Handle executes a parsed client command and returns its ack status. A
// throttled refresh reports AckStatusThrottled together with the error.
func (s *Service) Handle(ctx context.Context, msg interface{}) (string, error) {
	switch m := msg.(type) {
	case *protocol.RefreshMessage:
		err := s.Refresh(ctx)
		if errors.Is(err, pipeline.ErrRefreshThrottled) {
			return protocol.AckStatusThrottled, err
		}
		if err != nil {
			return "", err
		}
		return protocol.AckStatusAccepted, nil

	case *protocol.SelectMessage:
		if err := s.SelectLocation(ctx, *m.Index); err != nil {
			return "", err
		}
		return protocol.AckStatusAccepted, nil

	case *protocol.NetworkChangedMessage:
		s.NetworkChanged()
		return protocol.AckStatusAccepted, nil

	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedCommand, msg)
	}
}
