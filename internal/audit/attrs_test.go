package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFromAttrs(t *testing.T) {
	actor := uuid.New()
	e := FromAttrs(ActionCreated, EntityItem, []any{
		"entity_id", "item-1",
		"actor_id", actor,
		"name", "Rice",
		"request_id", "req-9",
	})

	assert.Equal(t, ActionCreated, e.Action)
	assert.Equal(t, EntityItem, e.Entity)
	assert.Equal(t, "item-1", e.EntityID)
	assert.Equal(t, actor, e.ActorID)
	assert.Equal(t, map[string]any{"name": "Rice"}, e.Details)
}

func TestFromAttrsWithoutActor(t *testing.T) {
	e := FromAttrs(ActionDeleted, EntityRoute, []any{"entity_id", "r-1"})
	assert.Equal(t, uuid.Nil, e.ActorID)
	assert.Nil(t, e.Details)
}
