package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"encantar/internal/item/lines"
	dErrors "encantar/pkg/domain-errors"
)

func TestNewTemplate(t *testing.T) {
	now := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

	tmpl, err := NewTemplate(uuid.New(), "  Basic basket ", now, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "Basic basket", tmpl.Name)
	assert.True(t, tmpl.Active)
	assert.Nil(t, tmpl.CreatedByID)

	_, err = NewTemplate(uuid.New(), "ab", now, uuid.Nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestCreateRequestValidate(t *testing.T) {
	item := uuid.New()
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr string
	}{
		{"valid", CreateRequest{Name: "Basic", Items: []lines.Line{{ItemID: item, Quantity: 1}}}, ""},
		{"short name", CreateRequest{Name: "ab", Items: []lines.Line{{ItemID: item, Quantity: 1}}}, "name"},
		{"no items", CreateRequest{Name: "Basic"}, "at least one item is required"},
		{"zero quantity", CreateRequest{Name: "Basic", Items: []lines.Line{{ItemID: item}}}, "quantity must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize()
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUpdateRequestApply(t *testing.T) {
	desc := "old"
	tmpl := Template{Name: "Basic", Description: &desc, Active: true}
	empty, off := "", false

	req := UpdateRequest{Description: &empty, Active: &off}
	req.Apply(&tmpl)

	assert.Equal(t, "Basic", tmpl.Name)
	assert.Nil(t, tmpl.Description)
	assert.False(t, tmpl.Active)
}
