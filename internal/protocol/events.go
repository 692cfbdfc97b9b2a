package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/smukkama/openweather-panel/internal/render"
)

// Event carries rendered views to feed subscribers and the Kafka panel
// topic. Which payload field is set depends on Type.
type Event struct {
	ID       string              `json:"id,omitempty"`
	Type     MessageType         `json:"type"`
	Location string              `json:"location,omitempty"`
	At       time.Time           `json:"at"`
	Panel    *render.PanelView   `json:"panel,omitempty"`
	Current  *render.CurrentView `json:"current,omitempty"`
	Today    []render.ItemView   `json:"today,omitempty"`
	Forecast []render.DayView    `json:"forecast,omitempty"`
	Hidden   bool                `json:"hidden,omitempty"`
	Title    string              `json:"title,omitempty"`
	Message  string              `json:"message,omitempty"`
}

func newEvent(t MessageType) *Event {
	return &Event{
		ID:   uuid.New().String(),
		Type: t,
		At:   time.Now().UTC(),
	}
}

func NewPanelEvent(panel render.PanelView) *Event {
	e := newEvent(MsgTypePanel)
	e.Panel = &panel
	return e
}

func NewCurrentEvent(current render.CurrentView) *Event {
	e := newEvent(MsgTypeCurrent)
	e.Location = current.Location
	e.Current = &current
	return e
}

func NewTodayEvent(items []render.ItemView) *Event {
	e := newEvent(MsgTypeToday)
	e.Today = items
	return e
}

func NewForecastEvent(days []render.DayView) *Event {
	e := newEvent(MsgTypeForecast)
	e.Forecast = days
	return e
}

// NewHiddenForecastEvent tells subscribers to drop the forecast section
func NewHiddenForecastEvent() *Event {
	e := newEvent(MsgTypeForecast)
	e.Hidden = true
	return e
}

func NewRefreshingEvent() *Event {
	return newEvent(MsgTypeRefreshing)
}

func NewNotificationEvent(title, message string) *Event {
	e := newEvent(MsgTypeNotification)
	e.Title = title
	e.Message = message
	return e
}

// EncodeEvent encodes an Event to JSON
func EncodeEvent(e *Event) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent decodes JSON to Event
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
