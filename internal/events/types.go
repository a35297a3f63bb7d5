// Package events provides the in-process audit event bus for card issuance
// and verification scans.
package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of audit event
type EventType string

const (
	// EventTypeCardIssued is published when a new card number is issued
	EventTypeCardIssued EventType = "card_issued"
	// EventTypeTokenIssued is published when a verification token is encoded
	EventTypeTokenIssued EventType = "token_issued"
	// EventTypeScanVerified is published when a scanned token decodes cleanly
	EventTypeScanVerified EventType = "scan_verified"
	// EventTypeScanRejected is published when a scanned token is rejected
	EventTypeScanRejected EventType = "scan_rejected"
)

// Event is a single audit event flowing through the bus
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	MemberID  string          `json:"member_id,omitempty"`
	ScannerID string          `json:"scanner_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// EventHandler processes a delivered event
type EventHandler func(Event)

// EventBus delivers audit events to all registered subscribers
type EventBus interface {
	Publish(event Event) error
	Subscribe(handler EventHandler) (unsubscribe func())
}

// EventStore retains recent events for inspection endpoints
type EventStore interface {
	Store(event Event) error
	Recent(limit int) ([]Event, error)
}
