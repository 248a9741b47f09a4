package connectors

import "errors"

// Connector is an external provider integration toggle.
type Connector struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// ErrUnknown means the connector key is not in the registry.
var ErrUnknown = errors.New("unknown connector")

// defaults seeds a fresh registry.
func defaults() []Connector {
	return []Connector{
		{Key: "gmail", Name: "Gmail", Connected: true},
		{Key: "slack", Name: "Slack", Connected: false},
		{Key: "drive", Name: "Google Drive", Connected: false},
		{Key: "notion", Name: "Notion", Connected: false},
		{Key: "calendar", Name: "Google Calendar", Connected: false},
		{Key: "discord", Name: "Discord", Connected: false},
	}
}
