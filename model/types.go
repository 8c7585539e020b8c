// Package model defines the core data structures for trends-cli.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Trend is a single ranked topic in a trends result.
type Trend struct {
	Title            string   `json:"title"`
	SearchVolume     string   `json:"search_volume,omitempty"`
	Rank             *int     `json:"ranking,omitempty"`
	ChangePercentage string   `json:"change_percentage,omitempty"`
	RelatedQueries   []string `json:"related_queries,omitempty"`
	URL              string   `json:"url,omitempty"`
}

// DisplayRank returns the reported rank, falling back to the 1-based
// position in the result list.
func (t *Trend) DisplayRank(index int) int {
	if t.Rank != nil && *t.Rank > 0 {
		return *t.Rank
	}
	return index + 1
}

// TopRelated returns at most n related queries and how many were left out.
func (t *Trend) TopRelated(n int) ([]string, int) {
	if n < 0 {
		n = 0
	}
	if len(t.RelatedQueries) <= n {
		return t.RelatedQueries, 0
	}
	return t.RelatedQueries[:n], len(t.RelatedQueries) - n
}

// TrendsResult is the response body of the trends endpoint. It is consumed
// read-only and re-encoded verbatim on export.
type TrendsResult struct {
	Topics     []Trend `json:"topics"`
	SourceURL  string  `json:"source_url"`
	Timestamp  string  `json:"timestamp"`
	TotalCount int     `json:"total_trends"`
	Location   string  `json:"location"`
	Language   string  `json:"language"`

	// Raw is the response body as received, when the source has one.
	Raw json.RawMessage `json:"-"`
}

// timestampLayouts covers RFC 3339 and the zone-less ISO form the backend emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParsedTimestamp parses Timestamp. Zone-less values are read as UTC.
func (r *TrendsResult) ParsedTimestamp() (time.Time, error) {
	ts := strings.TrimSpace(r.Timestamp)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %q", r.Timestamp)
}

// Status is the phase of the fetch state machine.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FetchState is the displayed outcome of the most recent accepted fetch.
type FetchState struct {
	Status        Status        `json:"status"`
	Result        *TrendsResult `json:"result,omitempty"`
	ErrorMessage  string        `json:"error,omitempty"`
	LastFetchedAt *time.Time    `json:"last_fetched_at,omitempty"`
}

// HasError returns true if an error message is waiting to be dismissed.
func (s *FetchState) HasError() bool {
	return s.ErrorMessage != ""
}

// Snapshot is an exported trends result bundle.
type Snapshot struct {
	ID        string        `json:"id,omitempty"`
	Name      string        `json:"name"`
	Filename  string        `json:"filename"`
	Geo       string        `json:"geo,omitempty"`
	Language  string        `json:"hl,omitempty"`
	Query     string        `json:"query"`
	FetchedAt time.Time     `json:"fetched_at"`
	Result    *TrendsResult `json:"result,omitempty"`
	Data      []byte        `json:"-"`
}

// SnapshotName returns the deterministic bundle name for geo on day.
func SnapshotName(geo string, day time.Time) string {
	return fmt.Sprintf("trends_%s_%s", snapshotGeo(geo), day.Format(time.DateOnly))
}

// SnapshotFilename returns the artifact filename for geo on day.
func SnapshotFilename(geo string, day time.Time) string {
	return fmt.Sprintf("google_trends_%s_%s.json", snapshotGeo(geo), day.Format(time.DateOnly))
}

func snapshotGeo(geo string) string {
	if geo == "" {
		return "global"
	}
	return geo
}
