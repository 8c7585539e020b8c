package query

import (
	"testing"

	"github.com/robertmeta/trends-cli/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		mode    model.Mode
		expect  model.Query
		wantErr error
	}{
		{
			name:   "defaults",
			values: map[string]string{},
			mode:   model.ModeFiltered,
			expect: model.Filtered{Geo: "HK", HL: "en", Hours: 24},
		},
		{
			name:   "filters",
			values: map[string]string{"geo": "gb", "hours": "4", "sort": "title"},
			mode:   model.ModeFiltered,
			expect: model.Filtered{Geo: "GB", HL: "en", Hours: 4, Sort: model.SortTitle},
		},
		{
			name:   "url mode keeps geo and hl",
			values: map[string]string{"geo": "US", "hl": "es", "url": "https://example.com/rss"},
			mode:   model.ModeURL,
			expect: model.URLDriven{Geo: "US", HL: "es", URL: "https://example.com/rss"},
		},
		{
			name:    "filter field in url mode",
			values:  map[string]string{"url": "https://example.com/rss", "category": "3"},
			mode:    model.ModeURL,
			wantErr: model.ErrFieldNotInMode,
		},
		{
			name:    "bad hours",
			values:  map[string]string{"hours": "day"},
			mode:    model.ModeFiltered,
			wantErr: model.ErrInvalidHours,
		},
		{
			name:    "unknown key",
			values:  map[string]string{"page": "2"},
			mode:    model.ModeFiltered,
			wantErr: model.ErrUnknownField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := model.DefaultQuery()
			got, err := Build(base, tt.values, tt.mode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, base, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}
