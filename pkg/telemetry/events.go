package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the generation lifecycle.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// GenerationID is the associated generation ID, if applicable.
	GenerationID string `json:"generation_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeGenerationStarted   = "generation.started"
	EventTypeGenerationCompleted = "generation.completed"
	EventTypeGenerationFailed    = "generation.failed"
	EventTypeManifestWritten     = "manifest.written"
	EventTypeManifestUnchanged   = "manifest.unchanged"
	EventTypePolicyViolation     = "policy.violation"
	EventTypeActivationStarted   = "activation.started"
	EventTypeActivationCompleted = "activation.completed"
	EventTypeActivationFailed    = "activation.failed"
	EventTypePushCompleted       = "push.completed"
	EventTypePushFailed          = "push.failed"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishGenerationStarted publishes a generation started event.
func (ep *EventPublisher) PublishGenerationStarted(generationID, sourcePath string) error {
	return ep.Publish(Event{
		Type:         EventTypeGenerationStarted,
		Source:       "compiler",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Generation %s started from %s", generationID, sourcePath),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"source_path": sourcePath,
		},
	})
}

// PublishGenerationCompleted publishes a generation completed event.
func (ep *EventPublisher) PublishGenerationCompleted(generationID string, manifestBytes int, duration time.Duration) error {
	return ep.Publish(Event{
		Type:         EventTypeGenerationCompleted,
		Source:       "compiler",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Generation %s completed (%d bytes)", generationID, manifestBytes),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"manifest_bytes": manifestBytes,
			"duration":       duration.Seconds(),
		},
	})
}

// PublishGenerationFailed publishes a generation failed event.
func (ep *EventPublisher) PublishGenerationFailed(generationID, reason string) error {
	return ep.Publish(Event{
		Type:         EventTypeGenerationFailed,
		Source:       "compiler",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Generation %s failed: %s", generationID, reason),
		Level:        EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishManifestWritten publishes a manifest written event.
func (ep *EventPublisher) PublishManifestWritten(generationID, manifestPath string) error {
	return ep.Publish(Event{
		Type:         EventTypeManifestWritten,
		Source:       "compiler",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Manifest written to %s", manifestPath),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"manifest_path": manifestPath,
		},
	})
}

// PublishManifestUnchanged publishes a manifest unchanged event.
func (ep *EventPublisher) PublishManifestUnchanged(generationID, manifestPath string) error {
	return ep.Publish(Event{
		Type:         EventTypeManifestUnchanged,
		Source:       "compiler",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Manifest %s unchanged, write skipped", manifestPath),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"manifest_path": manifestPath,
		},
	})
}

// PublishPolicyViolation publishes a policy violation event.
func (ep *EventPublisher) PublishPolicyViolation(generationID, policyName, reason string) error {
	return ep.Publish(Event{
		Type:         EventTypePolicyViolation,
		Source:       "policy_engine",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Policy violation: %s - %s", policyName, reason),
		Level:        EventLevelError,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// PublishActivationStarted publishes an activation started event.
func (ep *EventPublisher) PublishActivationStarted(generationID, command string) error {
	return ep.Publish(Event{
		Type:         EventTypeActivationStarted,
		Source:       "activator",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Activation started: %s", command),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"command": command,
		},
	})
}

// PublishActivationCompleted publishes an activation completed event.
func (ep *EventPublisher) PublishActivationCompleted(generationID string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:         EventTypeActivationCompleted,
		Source:       "activator",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Activation of generation %s completed", generationID),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"duration": duration.Seconds(),
		},
	})
}

// PublishActivationFailed publishes an activation failed event.
func (ep *EventPublisher) PublishActivationFailed(generationID, reason string) error {
	return ep.Publish(Event{
		Type:         EventTypeActivationFailed,
		Source:       "activator",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Activation of generation %s failed: %s", generationID, reason),
		Level:        EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishPushCompleted publishes a push completed event.
func (ep *EventPublisher) PublishPushCompleted(generationID, host, remotePath string) error {
	return ep.Publish(Event{
		Type:         EventTypePushCompleted,
		Source:       "remote",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Manifest pushed to %s:%s", host, remotePath),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"host": host,
			"path": remotePath,
		},
	})
}

// PublishPushFailed publishes a push failed event.
func (ep *EventPublisher) PublishPushFailed(generationID, host, reason string) error {
	return ep.Publish(Event{
		Type:         EventTypePushFailed,
		Source:       "remote",
		GenerationID: generationID,
		Message:      fmt.Sprintf("Push to %s failed: %s", host, reason),
		Level:        EventLevelError,
		Data: map[string]interface{}{
			"host":   host,
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-time.After(ep.config.FlushInterval):
			if len(batch) > 0 {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByGenerationID creates a filter that only allows events for a specific generation.
func FilterByGenerationID(generationID string) EventFilter {
	return func(event Event) bool {
		return event.GenerationID == generationID
	}
}
