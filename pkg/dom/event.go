package dom

import "golang.org/x/net/html"

// Event types dispatched by the page.
const (
	EventClick = "click"
	EventInput = "input"

	// EventStorage reports that a preference was written elsewhere, such
	// as another tab sharing the store. Value holds the key; Target is
	// unused.
	EventStorage = "storage"
)

// Event is a raw input event aimed at a node of a Document.
type Event struct {
	Type   string
	Target *html.Node

	// Value carries the new value of an input element for EventInput.
	Value string
}

// Click builds a click event.
func Click(target *html.Node) Event {
	return Event{Type: EventClick, Target: target}
}

// Input builds an input event carrying the field's new value.
func Input(target *html.Node, value string) Event {
	return Event{Type: EventInput, Target: target, Value: value}
}

// Storage builds a storage event for key.
func Storage(key string) Event {
	return Event{Type: EventStorage, Value: key}
}
