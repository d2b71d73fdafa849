package livesync

import (
	"encoding/json"
	"testing"

	"live-stats/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func fullSnapshot() *models.MSnapshot {
	return &models.MSnapshot{
		Scope:      "COUNTRY",
		Country:    strPtr("UZ"),
		Date:       "2026-10-18",
		TotalCount: 10,
		Top:        []string{"happy", "calm"},
		Totals: []models.MTotal{
			{MoodType: "happy", Count: 6, Percent: 60},
			{MoodType: "calm", Count: 4, Percent: 40},
		},
	}
}

func decodeUpdate(t *testing.T, raw string) models.MPartialUpdate {
	t.Helper()
	var u models.MPartialUpdate
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	return u
}

// -----------------------------------------------------------------------------

func TestMergeIncompleteOntoNilIsNil(t *testing.T) {
	cases := []string{
		`{}`,
		`{"totalCount": 3}`,
		`{"scope":"GLOBAL","date":"2026-10-18","totalCount":1,"top":[],"totals":[]}`,
		`{"scope":"GLOBAL","country":null,"date":"2026-10-18","totalCount":1,"top":[]}`,
	}
	for _, raw := range cases {
		assert.Nil(t, Merge(nil, decodeUpdate(t, raw)), raw)
	}
}

func TestMergeCompleteOntoNil(t *testing.T) {
	u := decodeUpdate(t, `{"scope":"GLOBAL","country":null,"date":"2026-10-18","totalCount":2,
		"top":["happy"],"totals":[{"moodType":"happy","count":2,"percent":100}]}`)

	got := Merge(nil, u)
	require.NotNil(t, got)
	assert.Equal(t, "GLOBAL", got.Scope)
	assert.Nil(t, got.Country)
	assert.Equal(t, int64(2), got.TotalCount)
	assert.Equal(t, []string{"happy"}, got.Top)
	assert.Len(t, got.Totals, 1)
}

func TestMergeKeepsAbsentFields(t *testing.T) {
	prev := fullSnapshot()
	got := Merge(prev, decodeUpdate(t, `{"totalCount": 11}`))

	require.NotNil(t, got)
	assert.Equal(t, int64(11), got.TotalCount)
	assert.Equal(t, prev.Scope, got.Scope)
	assert.Equal(t, "UZ", *got.Country)
	assert.Equal(t, prev.Date, got.Date)
	assert.Equal(t, prev.Top, got.Top)
	assert.Equal(t, prev.Totals, got.Totals)
}

func TestMergeIgnoresInvalidTotalCount(t *testing.T) {
	cases := []string{
		`{"totalCount": 1e19}`,
		`{"totalCount": -4}`,
		`{"totalCount": 2.9}`,
		`{"totalCount": "7"}`,
	}
	for _, raw := range cases {
		u := decodeUpdate(t, raw)
		assert.Nil(t, u.TotalCount, raw)

		got := Merge(fullSnapshot(), u)
		require.NotNil(t, got, raw)
		assert.Equal(t, int64(10), got.TotalCount, raw)
	}
}

func TestMergeAcceptsIntegralExponent(t *testing.T) {
	got := Merge(fullSnapshot(), decodeUpdate(t, `{"totalCount": 1e3}`))
	require.NotNil(t, got)
	assert.Equal(t, int64(1000), got.TotalCount)
}

func TestMergeExplicitNullCountry(t *testing.T) {
	got := Merge(fullSnapshot(), decodeUpdate(t, `{"country": null}`))
	require.NotNil(t, got)
	assert.Nil(t, got.Country)
}

func TestMergeReplacesListsWholesale(t *testing.T) {
	got := Merge(fullSnapshot(), decodeUpdate(t, `{"top":["angry"],"totals":[{"moodType":"angry","count":1,"percent":100}]}`))

	require.NotNil(t, got)
	assert.Equal(t, []string{"angry"}, got.Top)
	assert.Equal(t, []models.MTotal{{MoodType: "angry", Count: 1, Percent: 100}}, got.Totals)
}

func TestMergeDefaults(t *testing.T) {
	got := Merge(&models.MSnapshot{}, decodeUpdate(t, `{"totalCount": 1}`))

	require.NotNil(t, got)
	assert.Equal(t, models.DefaultScope, got.Scope)
	assert.Nil(t, got.Country)
	assert.Equal(t, "", got.Date)
	assert.NotNil(t, got.Top)
	assert.NotNil(t, got.Totals)
}

func TestMergeDoesNotMutatePrevious(t *testing.T) {
	prev := fullSnapshot()
	before := prev.Clone()

	got := Merge(prev, decodeUpdate(t, `{"country":"KZ","totalCount":99}`))
	got.Totals[0].Count = 1000
	got.Top[0] = "changed"

	assert.Equal(t, before, prev)
}

func TestMergeWrongTypedFieldIsAbsent(t *testing.T) {
	got := Merge(fullSnapshot(), decodeUpdate(t, `{"totalCount":"many","date":"2026-10-19"}`))

	require.NotNil(t, got)
	assert.Equal(t, int64(10), got.TotalCount)
	assert.Equal(t, "2026-10-19", got.Date)
}
