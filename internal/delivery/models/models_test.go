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

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" completed ")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, st)

	_, err = ParseStatus("DELIVERED")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestNewDelivery(t *testing.T) {
	d, err := NewDelivery(uuid.New(), uuid.New(), uuid.New(), "", time.Now(), uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, d.Status)

	_, err = NewDelivery(uuid.New(), uuid.Nil, uuid.New(), "", time.Now(), uuid.Nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestCreateRequestValidate(t *testing.T) {
	item := uuid.New()
	req := &CreateRequest{BeneficiaryID: uuid.New(), RouteID: uuid.New(), Status: "lost", Items: []lines.Line{{ItemID: item, Quantity: 1}}}
	req.Normalize()
	assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))

	req.Status = ""
	req.Items = nil
	assert.ErrorIs(t, req.Validate(), dErrors.New(dErrors.CodeValidation, "at least one item is required"))
}

func TestUpdateRequestApply(t *testing.T) {
	notes := "old"
	d := &Delivery{Status: StatusPending, Notes: &notes}
	empty, status := "", "CANCELLED"
	(&UpdateRequest{Notes: &empty, Status: &status}).Apply(d)

	assert.Nil(t, d.Notes)
	assert.Equal(t, StatusCancelled, d.Status)
}
