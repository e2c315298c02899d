package service

// Notifier receives share-related events for fan-out to connected clients.
// Implementations must not block; delivery is best-effort and failures never
// affect the operation that raised the event.
type Notifier interface {
	Publish(event string, payload map[string]any)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Publish(string, map[string]any) {}
