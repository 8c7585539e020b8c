package trends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/robertmeta/trends-cli/model"
)

// DailyFeedURL is the public daily trending searches RSS feed.
const DailyFeedURL = "https://trends.google.com/trends/trendingsearches/daily/rss"

// maxFeedItems caps how many RSS items become trends.
const maxFeedItems = 20

// FeedSource fetches trends from an RSS feed instead of the trends API.
// Filtered queries read the daily feed for the query's geo and hl;
// URL-driven queries parse the supplied URL.
type FeedSource struct {
	parser  *gofeed.Parser
	feedURL string
	logger  *slog.Logger
	now     func() time.Time
}

// FeedOption configures a FeedSource.
type FeedOption func(*FeedSource)

// WithFeedURL overrides the daily feed URL.
func WithFeedURL(u string) FeedOption {
	return func(f *FeedSource) {
		f.feedURL = u
	}
}

// WithFeedLogger sets the logger.
func WithFeedLogger(logger *slog.Logger) FeedOption {
	return func(f *FeedSource) {
		f.logger = logger
	}
}

// NewFeedSource creates a new FeedSource.
func NewFeedSource(opts ...FeedOption) *FeedSource {
	parser := gofeed.NewParser()
	parser.Client = NewHTTPClient(DefaultTimeout)

	f := &FeedSource{
		parser:  parser,
		feedURL: DailyFeedURL,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FeedURL returns the feed URL read for q.
func (f *FeedSource) FeedURL(q model.Query) string {
	if u, ok := q.(model.URLDriven); ok && u.URL != "" {
		return u.URL
	}

	values := url.Values{}
	if geo := q.Location(); geo != "" {
		values.Set(model.FieldGeo, geo)
	}
	if hl := q.Language(); hl != "" {
		values.Set(model.FieldLanguage, hl)
	}
	if len(values) == 0 {
		return f.feedURL
	}
	return f.feedURL + "?" + values.Encode()
}

// Fetch retrieves and converts the feed for q.
func (f *FeedSource) Fetch(ctx context.Context, q model.Query) (*model.TrendsResult, error) {
	feedURL := f.FeedURL(q)
	f.logger.DebugContext(ctx, "requesting trends feed", "url", feedURL)

	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &model.NetworkError{
				StatusCode: httpErr.StatusCode,
				Status:     strings.TrimSpace(strings.TrimPrefix(httpErr.Status, fmt.Sprint(httpErr.StatusCode))),
			}
		}
		return nil, &model.NetworkError{Err: err}
	}

	return f.convert(parsed, q, feedURL), nil
}

// Parse converts feed content into a trends result for q.
func (f *FeedSource) Parse(content string, q model.Query) (*model.TrendsResult, error) {
	if content == "" {
		return nil, fmt.Errorf("feed content is empty")
	}

	parsed, err := f.parser.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return f.convert(parsed, q, f.FeedURL(q)), nil
}

// convert converts a gofeed.Feed to a trends result.
func (f *FeedSource) convert(gf *gofeed.Feed, q model.Query, sourceURL string) *model.TrendsResult {
	items := gf.Items
	if len(items) > maxFeedItems {
		items = items[:maxFeedItems]
	}

	topics := make([]model.Trend, 0, len(items))
	for i, item := range items {
		topics = append(topics, convertItem(item, i+1))
	}

	return &model.TrendsResult{
		Topics:     topics,
		SourceURL:  sourceURL,
		Timestamp:  f.now().UTC().Format(time.RFC3339),
		TotalCount: len(topics),
		Location:   q.Location(),
		Language:   q.Language(),
	}
}

// convertItem converts a gofeed.Item to a trend ranked by feed position.
func convertItem(item *gofeed.Item, rank int) model.Trend {
	trend := model.Trend{
		Title: strings.TrimSpace(item.Title),
		Rank:  &rank,
		URL:   item.Link,
	}

	ht := item.Extensions["ht"]
	if ht == nil {
		return trend
	}

	if traffic := firstValue(ht["approx_traffic"]); traffic != "" {
		trend.SearchVolume = traffic
	}

	// News items carry the headlines related to the trend.
	for _, news := range ht["news_item"] {
		if title := firstValue(news.Children["news_item_title"]); title != "" {
			trend.RelatedQueries = append(trend.RelatedQueries, title)
		}
	}

	return trend
}

func firstValue(values []ext.Extension) string {
	for _, v := range values {
		if s := strings.TrimSpace(v.Value); s != "" {
			return s
		}
	}
	return ""
}
