package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the pipeline
const (
	TopicPipelineStatus = "pipeline_status"
	TopicBuildSummary   = "build_summary"
	TopicRunSummary     = "run_summary"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "pipeline_status")
	Type    string          `json:"type"`    // Event type (e.g., "loading", "solving", "failed")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Per-topic sequence number
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation closes the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	Close() error
}

// PipelineStatus is the payload of pipeline_status events
type PipelineStatus struct {
	RunID   string `json:"run_id"`
	State   string `json:"state"`           // loading, pruning, ..., done, failed
	Message string `json:"message"`         // Human-readable status message
	Step    int    `json:"step"`            // Current step number (1-based)
	Total   int    `json:"total"`           // Total number of steps
	Error   string `json:"error,omitempty"` // Set when State is failed
}
