// Package audit records who changed what. Events are persisted to PostgreSQL
// and, when a broker is configured, streamed to Kafka.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names an audited operation.
type Action string

const (
	ActionLogin          Action = "login"
	ActionLoginFailed    Action = "login_failed"
	ActionRegistered     Action = "registered"
	ActionTokenRefreshed Action = "token_refreshed"
	ActionLogout         Action = "logout"
	ActionInviteCreated  Action = "invite_created"
	ActionInvitesPurged  Action = "invites_purged"
	ActionBootstrapped   Action = "bootstrapped"

	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionDeleted       Action = "deleted"
	ActionActivated     Action = "activated"
	ActionDeactivated   Action = "deactivated"
	ActionStatusChanged Action = "status_changed"
)

// Entity names the audited record type.
type Entity string

const (
	EntityAdmin            Entity = "admin"
	EntityInvite           Entity = "invite"
	EntityBeneficiary      Entity = "beneficiary"
	EntityItem             Entity = "item"
	EntityRoute            Entity = "route"
	EntityDelivery         Entity = "delivery"
	EntityDeliveryTemplate Entity = "delivery_template"
	EntityDocTemplate      Entity = "document_template"
)

// Event is emitted from services after a successful mutation. Keep it
// transport-agnostic so the table and the stream carry the same shape.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Action    Action         `json:"action"`
	Entity    Entity         `json:"entity"`
	EntityID  string         `json:"entity_id,omitempty"`
	ActorID   uuid.UUID      `json:"actor_id,omitzero"`
	RequestID string         `json:"request_id,omitempty"`
	ClientIP  string         `json:"client_ip,omitempty"`
	Device    string         `json:"device,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// RetentionPeriod is how long events are kept before the cleanup job drops them.
const RetentionPeriod = 180 * 24 * time.Hour
