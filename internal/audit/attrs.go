package audit

import (
	"github.com/google/uuid"

	"encantar/pkg/attrs"
)

// FromAttrs builds an event from the key-value pairs services log. The
// "entity_id" and "actor_id" keys fill their fields; the remaining pairs,
// minus request_id, become Details.
func FromAttrs(action Action, entity Entity, attributes []any) Event {
	event := Event{
		Action:   action,
		Entity:   entity,
		EntityID: attrs.ExtractString(attributes, "entity_id"),
		Details:  attrs.ToMap(attributes, "entity_id", "actor_id", "request_id"),
	}
	for i := 0; i < len(attributes)-1; i += 2 {
		if k, _ := attributes[i].(string); k == "actor_id" {
			if id, ok := attributes[i+1].(uuid.UUID); ok {
				event.ActorID = id
			}
		}
	}
	return event
}
