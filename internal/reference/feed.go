// Package reference acquires real, attributable reference articles for a
// topic keyword, backed by an external aggregation feed and a TTL cache.
package reference

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsgate/internal/core"
)

// FeedSearcher is the external aggregation feed the acquisitor queries.
// Implementations must honor ctx cancellation.
type FeedSearcher interface {
	// Search returns candidate articles for a query, newest first.
	Search(ctx context.Context, query string) ([]core.ReferenceArticle, error)
	// TopStories returns the generic headline feed used as a fallback.
	TopStories(ctx context.Context) ([]core.ReferenceArticle, error)
}

// rss is the RSS 2.0 feed envelope.
type rss struct {
	XMLName xml.Name `xml:"rss"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Source      string `xml:"source"`
}

// atom is the Atom feed envelope, for providers that serve Atom instead.
type atom struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// RSSFeedSearcher fetches a Google-News-style RSS search feed over HTTP.
type RSSFeedSearcher struct {
	client        *http.Client
	searchURL     string // contains one %s for the escaped query
	topStoriesURL string
	userAgent     string
}

// NewRSSFeedSearcher creates a searcher. searchURL must contain a single %s
// placeholder for the URL-escaped query.
func NewRSSFeedSearcher(searchURL, topStoriesURL, userAgent string, timeout time.Duration) *RSSFeedSearcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RSSFeedSearcher{
		client:        &http.Client{Timeout: timeout},
		searchURL:     searchURL,
		topStoriesURL: topStoriesURL,
		userAgent:     userAgent,
	}
}

// Search fetches and parses the search feed for a query.
func (s *RSSFeedSearcher) Search(ctx context.Context, query string) ([]core.ReferenceArticle, error) {
	feedURL := fmt.Sprintf(s.searchURL, url.QueryEscape(query))
	return s.fetchFeed(ctx, feedURL)
}

// TopStories fetches the generic headline feed.
func (s *RSSFeedSearcher) TopStories(ctx context.Context) ([]core.ReferenceArticle, error) {
	return s.fetchFeed(ctx, s.topStoriesURL)
}

func (s *RSSFeedSearcher) fetchFeed(ctx context.Context, feedURL string) ([]core.ReferenceArticle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	return ParseFeed(body)
}

// ParseFeed decodes an RSS or Atom payload into reference articles. Items
// without both a title and a link are dropped.
func ParseFeed(payload []byte) ([]core.ReferenceArticle, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, fmt.Errorf("empty feed payload")
	}

	var feed rss
	if err := xml.Unmarshal(payload, &feed); err == nil && len(feed.Channel.Items) > 0 {
		return rssArticles(feed), nil
	}

	var af atom
	if err := xml.Unmarshal(payload, &af); err == nil && len(af.Entries) > 0 {
		return atomArticles(af), nil
	}

	return nil, fmt.Errorf("payload is neither RSS nor Atom")
}

func rssArticles(feed rss) []core.ReferenceArticle {
	source := strings.TrimSpace(feed.Channel.Title)
	articles := make([]core.ReferenceArticle, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		itemSource := strings.TrimSpace(item.Source)
		if itemSource == "" {
			itemSource = source
		}
		articles = append(articles, core.ReferenceArticle{
			Title:       title,
			Summary:     StripMarkup(item.Description),
			URL:         link,
			Source:      itemSource,
			PublishedAt: parseFeedTime(item.PubDate),
		})
	}
	return articles
}

func atomArticles(af atom) []core.ReferenceArticle {
	source := strings.TrimSpace(af.Title)
	articles := make([]core.ReferenceArticle, 0, len(af.Entries))
	for _, entry := range af.Entries {
		title := strings.TrimSpace(entry.Title)
		link := entryLink(entry.Links)
		if title == "" || link == "" {
			continue
		}
		published := entry.Published
		if published == "" {
			published = entry.Updated
		}
		articles = append(articles, core.ReferenceArticle{
			Title:       title,
			Summary:     StripMarkup(entry.Summary),
			URL:         link,
			Source:      source,
			PublishedAt: parseFeedTime(published),
		})
	}
	return articles
}

func entryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}

// StripMarkup flattens an HTML fragment (feed descriptions routinely embed
// markup) into plain text.
func StripMarkup(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}

// feedTimeFormats are tried in order when parsing item timestamps.
var feedTimeFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

func parseFeedTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, format := range feedTimeFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
