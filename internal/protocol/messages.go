package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageType represents the type of message
type MessageType string

const (
	// Client to Server
	MsgTypeSubscribe      MessageType = "subscribe"
	MsgTypeRefresh        MessageType = "refresh"
	MsgTypeSelect         MessageType = "select"
	MsgTypeNetworkChanged MessageType = "network_changed"
	MsgTypeKeepalive      MessageType = "keepalive"

	// Server to Client
	MsgTypeAck          MessageType = "ack"
	MsgTypePanel        MessageType = "panel"
	MsgTypeCurrent      MessageType = "current"
	MsgTypeToday        MessageType = "today"
	MsgTypeForecast     MessageType = "forecast"
	MsgTypeRefreshing   MessageType = "refreshing"
	MsgTypeNotification MessageType = "notification"
)

// BaseMessage is the common structure for all messages
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// SubscribeMessage must be the first line a feed client sends
type SubscribeMessage struct {
	Type   MessageType `json:"type"`
	Client string      `json:"client"`
}

// RefreshMessage requests a manual refresh
type RefreshMessage struct {
	Type MessageType `json:"type"`
}

// SelectMessage makes the location at Index active
type SelectMessage struct {
	Type  MessageType `json:"type"`
	Index *int        `json:"index"`
}

// NetworkChangedMessage reports a connectivity change
type NetworkChangedMessage struct {
	Type MessageType `json:"type"`
}

// KeepaliveMessage keeps an idle subscription open
type KeepaliveMessage struct {
	Type MessageType `json:"type"`
}

// AckMessage is sent by the server in response to messages
type AckMessage struct {
	Type   MessageType `json:"type"`
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// AckStatus constants
const (
	AckStatusSubscribed = "subscribed"
	AckStatusAlive      = "alive"
	AckStatusAccepted   = "accepted"
	AckStatusThrottled  = "throttled"
	AckStatusError      = "error"
)

// ParseMessage parses a JSON line into the appropriate client message type
func ParseMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch base.Type {
	case MsgTypeSubscribe:
		var msg SubscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid subscribe message: %w", err)
		}
		if err := validateSubscribe(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypeRefresh:
		return &RefreshMessage{Type: base.Type}, nil

	case MsgTypeSelect:
		var msg SelectMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid select message: %w", err)
		}
		if msg.Index == nil {
			return nil, fmt.Errorf("index is required")
		}
		return &msg, nil

	case MsgTypeNetworkChanged:
		return &NetworkChangedMessage{Type: base.Type}, nil

	case MsgTypeKeepalive:
		return &KeepaliveMessage{Type: base.Type}, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", base.Type)
	}
}

func validateSubscribe(msg *SubscribeMessage) error {
	msg.Client = strings.TrimSpace(msg.Client)
	if msg.Client == "" {
		return fmt.Errorf("client is required")
	}
	return nil
}

// EncodeMessage encodes a message to JSON
func EncodeMessage(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

// NewAckMessage creates a new acknowledgment message
func NewAckMessage(status string) *AckMessage {
	return &AckMessage{
		Type:   MsgTypeAck,
		Status: status,
	}
}

// NewErrorAck creates an error acknowledgment carrying a reason
func NewErrorAck(reason string) *AckMessage {
	return &AckMessage{
		Type:   MsgTypeAck,
		Status: AckStatusError,
		Error:  reason,
	}
}
