package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/robertmeta/trends-cli/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshot(geo string, fetchedAt time.Time, titles ...string) *model.Snapshot {
	topics := make([]model.Trend, 0, len(titles))
	for _, title := range titles {
		topics = append(topics, model.Trend{Title: title})
	}
	return &model.Snapshot{
		Name:      model.SnapshotName(geo, fetchedAt),
		Filename:  model.SnapshotFilename(geo, fetchedAt),
		Geo:       geo,
		Language:  "en",
		Query:     "geo=" + geo + "&hl=en",
		FetchedAt: fetchedAt,
		Result: &model.TrendsResult{
			Topics:     topics,
			SourceURL:  "https://trends.google.com/trending?geo=" + geo,
			Timestamp:  fetchedAt.Format(time.RFC3339),
			TotalCount: len(topics),
			Location:   geo,
			Language:   "en",
		},
	}
}

func TestNewStore(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close()
}

func TestStore_SaveAndGetSnapshot(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	fetchedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := newSnapshot("HK", fetchedAt, "Typhoon", "Rugby Sevens")

	err = s.SaveSnapshot(snap)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID, "Snapshot ID should be set after save")
	assert.NotEmpty(t, snap.Data, "Payload should be encoded on save")

	got, err := s.GetSnapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Name, got.Name)
	assert.Equal(t, "google_trends_HK_2025-03-01.json", got.Filename)
	assert.Equal(t, "HK", got.Geo)
	assert.Equal(t, fetchedAt, got.FetchedAt)
	assert.Equal(t, *snap.Result, *got.Result)
	assert.JSONEq(t, string(snap.Data), string(got.Data))
}

func TestStore_SaveKeepsExportedBytes(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	snap := newSnapshot("US", time.Now(), "Super Bowl")
	data, err := json.MarshalIndent(snap.Result, "", "  ")
	require.NoError(t, err)
	snap.Data = data
	snap.ID = "fixed-id"

	require.NoError(t, s.SaveSnapshot(snap))

	got, err := s.GetSnapshot("fixed-id")
	require.NoError(t, err)
	assert.Equal(t, string(data), string(got.Data))
}

func TestStore_SaveSnapshotWithoutResult(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	err = s.SaveSnapshot(&model.Snapshot{Name: "empty"})
	assert.Error(t, err)
}

func TestStore_GetMissingSnapshot(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetSnapshot("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListSnapshots(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	snaps := []*model.Snapshot{
		newSnapshot("HK", base, "a"),
		newSnapshot("US", base.Add(24*time.Hour), "b", "c"),
		newSnapshot("HK", base.Add(48*time.Hour), "d", "e", "f"),
	}
	for _, snap := range snaps {
		require.NoError(t, s.SaveSnapshot(snap))
	}

	all, err := s.ListSnapshots(ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first
	assert.Equal(t, snaps[2].ID, all[0].ID)
	assert.Equal(t, 3, all[0].TotalTrends)
	assert.Equal(t, snaps[0].ID, all[2].ID)

	hk, err := s.ListSnapshots(ListOptions{Geo: "HK"})
	require.NoError(t, err)
	assert.Len(t, hk, 2)

	since := base.Add(24 * time.Hour).Unix()
	recent, err := s.ListSnapshots(ListOptions{SinceTime: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	page, err := s.ListSnapshots(ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, snaps[1].ID, page[0].ID)

	tail, err := s.ListSnapshots(ListOptions{Offset: 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, snaps[0].ID, tail[0].ID)
}

func TestStore_DeleteSnapshot(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	snap := newSnapshot("GB", time.Now(), "Wimbledon")
	require.NoError(t, s.SaveSnapshot(snap))

	require.NoError(t, s.DeleteSnapshot(snap.ID))

	_, err = s.GetSnapshot(snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteSnapshot(snap.ID), ErrNotFound)
}
