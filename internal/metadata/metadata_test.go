package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISO6709(t *testing.T) {
	lat, lon, err := ParseISO6709("+37.3317-122.0302+012.345/")
	require.NoError(t, err)
	assert.InDelta(t, 37.3317, lat, 1e-9)
	assert.InDelta(t, -122.0302, lon, 1e-9)

	lat, lon, err = ParseISO6709("-33.8688+151.2093/")
	require.NoError(t, err)
	assert.InDelta(t, -33.8688, lat, 1e-9)
	assert.InDelta(t, 151.2093, lon, 1e-9)

	_, _, err = ParseISO6709("somewhere")
	assert.ErrorIs(t, err, ErrNoLocation)
	_, _, err = ParseISO6709("+137.0+10.0/")
	assert.ErrorIs(t, err, ErrNoLocation)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2023-07-15T18:30:12.000000Z")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2023, 7, 15, 18, 30, 12, 0, time.UTC)))

	ts, err = ParseTimestamp("2023-07-15T11:30:12-0700")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2023, 7, 15, 18, 30, 12, 0, time.UTC)))

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestParseProbe(t *testing.T) {
	c, err := parseProbe([]byte(`{"format":{"tags":{
		"creation_time":"2023-07-15T18:30:12.000000Z",
		"com.apple.quicktime.location.ISO6709":"+37.3317-122.0302+012.345/",
		"com.apple.quicktime.creationdate":"2023-07-15T11:30:10-0700"}}}`))
	require.NoError(t, err)
	require.NotNil(t, c.Latitude)
	require.NotNil(t, c.Longitude)
	assert.InDelta(t, 37.3317, *c.Latitude, 1e-9)
	require.NotNil(t, c.CapturedAt)
	assert.True(t, c.CapturedAt.Equal(time.Date(2023, 7, 15, 18, 30, 10, 0, time.UTC)))
}

func TestParseProbeMissingTagsIsNotAnError(t *testing.T) {
	c, err := parseProbe([]byte(`{"format":{"filename":"a.mov"}}`))
	require.NoError(t, err)
	assert.Nil(t, c.Latitude)
	assert.Nil(t, c.Longitude)
	assert.Nil(t, c.CapturedAt)
}
