package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "encantar/pkg/domain-errors"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("15/03/2024")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestDayBoundaries(t *testing.T) {
	start, err := StartOfDay("2024-03-15")
	require.NoError(t, err)
	end, err := EndOfDay("2024-03-15")
	require.NoError(t, err)

	assert.Equal(t, 15, start.In(Location).Day())
	assert.Equal(t, 0, start.In(Location).Hour())
	assert.Equal(t, 23, end.In(Location).Hour())
	assert.True(t, end.After(start))
	// Brazil has been UTC-3 year-round since 2019.
	assert.Equal(t, 3, start.UTC().Hour())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "15/03/2024", FormatDate(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	instant := time.Date(2024, 3, 15, 13, 30, 0, 0, time.UTC)
	assert.Equal(t, "15/03/2024 10:30", FormatDateTime(instant))
}

func TestDateJSONAndSQL(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalJSON([]byte(`"2024-03-15"`)))
	assert.Equal(t, "2024-03-15", d.String())

	require.NoError(t, d.UnmarshalJSON([]byte(`"2024-03-16T00:00:00.000Z"`)))
	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-16"`, string(out))

	assert.Error(t, d.UnmarshalJSON([]byte(`"16/03/2024"`)))

	require.NoError(t, d.Scan(time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)))
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-17", v)
}
