package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestTrend_DisplayRank(t *testing.T) {
	tests := []struct {
		name   string
		trend  Trend
		index  int
		expect int
	}{
		{
			name:   "reported rank",
			trend:  Trend{Rank: intPtr(7)},
			index:  0,
			expect: 7,
		},
		{
			name:   "missing rank",
			trend:  Trend{},
			index:  2,
			expect: 3,
		},
		{
			name:   "zero rank falls back",
			trend:  Trend{Rank: intPtr(0)},
			index:  4,
			expect: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.trend.DisplayRank(tt.index))
		})
	}
}

func TestTrend_TopRelated(t *testing.T) {
	trend := Trend{RelatedQueries: []string{"a", "b", "c", "d", "e"}}

	top, more := trend.TopRelated(3)
	assert.Equal(t, []string{"a", "b", "c"}, top)
	assert.Equal(t, 2, more)

	top, more = trend.TopRelated(10)
	assert.Len(t, top, 5)
	assert.Zero(t, more)

	empty := Trend{}
	top, more = empty.TopRelated(3)
	assert.Empty(t, top)
	assert.Zero(t, more)
}

func TestTrendsResult_ParsedTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		expect  time.Time
		wantErr bool
	}{
		{
			name:   "RFC 3339",
			input:  "2025-03-01T10:30:00Z",
			expect: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:   "zone-less with microseconds",
			input:  "2025-03-01T10:30:00.123456",
			expect: time.Date(2025, 3, 1, 10, 30, 0, 123456000, time.UTC),
		},
		{
			name:    "garbage",
			input:   "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := TrendsResult{Timestamp: tt.input}
			got, err := r.ParsedTimestamp()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expect.Equal(got), "got %v", got)
		})
	}
}

func TestFetchState_HasError(t *testing.T) {
	assert.False(t, (&FetchState{Status: StatusSuccess}).HasError())
	assert.True(t, (&FetchState{Status: StatusError, ErrorMessage: "boom"}).HasError())
}

func TestSnapshotNaming(t *testing.T) {
	day := time.Date(2025, 1, 9, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "trends_HK_2025-01-09", SnapshotName("HK", day))
	assert.Equal(t, "google_trends_HK_2025-01-09.json", SnapshotFilename("HK", day))
	assert.Equal(t, "trends_global_2025-01-09", SnapshotName("", day))
}

func TestQueryVariants(t *testing.T) {
	def := DefaultQuery()
	require.Equal(t, ModeFiltered, def.Mode())
	assert.Equal(t, map[string]string{"geo": "HK", "hl": "en", "hours": "24"}, def.Values())

	u := URLDriven{Geo: "US", URL: "https://trends.google.com/trending?geo=US"}
	assert.Equal(t, ModeURL, u.Mode())
	assert.Equal(t, "US", u.Location())
	assert.Equal(t, "", u.Language())
	assert.Equal(t, map[string]string{"geo": "US", "url": "https://trends.google.com/trending?geo=US"}, u.Values())
}

func TestSort_Valid(t *testing.T) {
	for _, s := range SortOrders {
		assert.True(t, s.Valid(), "sort %q", s)
	}
	assert.False(t, Sort("volume").Valid())
	assert.False(t, Sort("TITLE").Valid())
}

func TestLookupCategory(t *testing.T) {
	c, ok := LookupCategory("17")
	require.True(t, ok)
	assert.Equal(t, "Sports", c.Label)

	_, ok = LookupCategory("12")
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("url")
	assert.True(t, ok)
	assert.Equal(t, ModeURL, m)

	m, ok = ParseMode("filtered")
	assert.True(t, ok)
	assert.Equal(t, ModeFiltered, m)

	_, ok = ParseMode("raw")
	assert.False(t, ok)
	assert.Equal(t, "url", ModeURL.String())
}

func TestErrorsUnwrap(t *testing.T) {
	pe := &ParseError{Field: "hours", Value: "abc", Err: ErrInvalidHours}
	assert.True(t, errors.Is(pe, ErrInvalidHours))
	assert.Contains(t, pe.Error(), `"abc"`)

	ne := &NetworkError{StatusCode: 500, Status: "Internal Server Error"}
	assert.Contains(t, ne.Error(), "500")

	cause := errors.New("connection refused")
	ne = &NetworkError{Err: cause}
	assert.ErrorIs(t, ne, cause)

	se := &SerializationError{Err: cause}
	assert.ErrorIs(t, se, cause)
}
