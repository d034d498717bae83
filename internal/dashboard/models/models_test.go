package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	deliverymodels "encantar/internal/delivery/models"
)

func TestFillStatuses(t *testing.T) {
	got := FillStatuses([]StatusCount{{Status: deliverymodels.StatusCompleted, Total: 4}})

	assert.Equal(t, []StatusCount{
		{Status: deliverymodels.StatusPending, Total: 0},
		{Status: deliverymodels.StatusCompleted, Total: 4},
		{Status: deliverymodels.StatusCancelled, Total: 0},
	}, got)
}
