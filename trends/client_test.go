package trends

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/robertmeta/trends-cli/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "topics": [
    {"title": "Artificial Intelligence", "ranking": 1, "search_volume": "1000K searches", "change_percentage": "+20%"},
    {"title": "Climate Change", "related_queries": ["heatwave", "COP30"], "url": "https://example.com/climate"}
  ],
  "source_url": "https://trends.google.com/trending?geo=HK&hl=en&hours=24",
  "timestamp": "2025-03-01T10:30:00.123456",
  "total_trends": 2,
  "location": "HK",
  "language": "en"
}`

func TestClient_Fetch(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	result, err := c.Fetch(context.Background(), model.DefaultQuery())
	require.NoError(t, err)

	assert.Equal(t, "/api/trends", gotPath)
	assert.Equal(t, "geo=HK&hl=en&hours=24", gotQuery)

	require.Len(t, result.Topics, 2)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, "HK", result.Location)
	assert.Equal(t, "Artificial Intelligence", result.Topics[0].Title)
	require.NotNil(t, result.Topics[0].Rank)
	assert.Equal(t, 1, *result.Topics[0].Rank)
	assert.Nil(t, result.Topics[1].Rank)
	assert.Equal(t, []string{"heatwave", "COP30"}, result.Topics[1].RelatedQueries)

	ts, err := result.ParsedTimestamp()
	require.NoError(t, err)
	assert.Equal(t, 2025, ts.Year())
}

func TestClient_FetchRoundTripsExactly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).Fetch(context.Background(), model.DefaultQuery())
	require.NoError(t, err)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, sampleResponse, string(encoded))
}

func TestClient_FetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Error fetching trends: boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Fetch(context.Background(), model.DefaultQuery())
	require.Error(t, err)

	var netErr *model.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, 500, netErr.StatusCode)
	assert.Equal(t, "failed to fetch trends: 500 Internal Server Error", err.Error())
}

func TestClient_FetchKeepsRawBody(t *testing.T) {
	body := `{"topics":[{"title":"A","search_volume":null,"ranking":null,"url":null}],` +
		`"source_url":"","timestamp":"2025-03-01T10:30:00","total_trends":1,` +
		`"location":"HK","language":"en","scraper":"rss"}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).Fetch(context.Background(), model.DefaultQuery())
	require.NoError(t, err)

	assert.Equal(t, body, string(result.Raw))
	require.Len(t, result.Topics, 1)
	assert.Nil(t, result.Topics[0].Rank)
	assert.Empty(t, result.Topics[0].SearchVolume)
}

func TestClient_FetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Fetch(context.Background(), model.DefaultQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestClient_FetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewClient(addr, WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err := c.Fetch(context.Background(), model.DefaultQuery())

	var netErr *model.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Zero(t, netErr.StatusCode)
}

func TestClient_FetchCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL).Fetch(ctx, model.DefaultQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_RequestURL(t *testing.T) {
	c := NewClient("http://localhost:8000")
	assert.Equal(t, "http://localhost:8000/api/trends", c.RequestURL(model.Filtered{}))
	assert.Equal(t, "http://localhost:8000/api/trends?geo=US&url=https%3A%2F%2Fexample.com",
		c.RequestURL(model.URLDriven{Geo: "US", URL: "https://example.com"}))
}
