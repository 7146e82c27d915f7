package reference

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"newsgate/internal/core"
	"newsgate/internal/logger"
	"newsgate/internal/retry"
)

// Set is the result of one acquisition: the articles plus whether the
// acquisitor had to synthesize fallback rows.
type Set struct {
	Articles     []core.ReferenceArticle
	UsedFallback bool
}

// Options configures the acquisitor.
type Options struct {
	CacheTTL      time.Duration
	FetchAttempts int           // per query variant, default 2
	MaxConcurrent int           // batch fan-out bound, default 4
	DefaultLimit  int           // articles per keyword, default 5
	BackoffBase   time.Duration // default 500ms
	BackoffStep   time.Duration // default 250ms
}

// Acquisitor fetches grounding references for topic keywords. Network and
// timeout failures never escape FetchReferences; callers only observe
// UsedFallback.
type Acquisitor struct {
	searcher FeedSearcher
	cache    *ttlCache
	opts     Options
}

// NewAcquisitor creates an Acquisitor over a feed searcher.
func NewAcquisitor(searcher FeedSearcher, opts Options) *Acquisitor {
	if opts.FetchAttempts < 1 {
		opts.FetchAttempts = 2
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 4
	}
	if opts.MaxConcurrent > 10 {
		opts.MaxConcurrent = 10
	}
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 5
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 500 * time.Millisecond
	}
	if opts.BackoffStep <= 0 {
		opts.BackoffStep = 250 * time.Millisecond
	}
	return &Acquisitor{
		searcher: searcher,
		cache:    newTTLCache(opts.CacheTTL),
		opts:     opts,
	}
}

// FetchReferences returns up to limit reference articles for a keyword.
// Variants are tried in order; the first one yielding at least one filtered
// article wins. Successful non-fallback results are cached by normalized
// keyword. When everything fails the result is synthetic, marked fallback.
func (a *Acquisitor) FetchReferences(ctx context.Context, keyword string, limit int) Set {
	if limit <= 0 {
		limit = a.opts.DefaultLimit
	}
	cacheKey := normalizeKeyword(keyword)

	if articles, ok := a.cache.get(cacheKey); ok {
		logger.Debug("reference cache hit", "keyword", cacheKey)
		return Set{Articles: clamp(articles, limit)}
	}

	tokens := keywordTokens(keyword)

	for _, variant := range QueryVariants(keyword) {
		articles, err := a.searchVariant(ctx, variant)
		if err != nil {
			logger.Debug("reference variant failed", "variant", variant, "error", err.Error())
			continue
		}
		kept := filterByTokens(articles, tokens)
		if len(kept) == 0 {
			continue
		}
		kept = dedupe(kept)
		a.cache.put(cacheKey, kept)
		return Set{Articles: clamp(kept, limit)}
	}

	// Every variant failed or came back empty: generic headlines, then cache,
	// then synthetic placeholders.
	if articles, err := a.searcher.TopStories(ctx); err == nil {
		if kept := dedupe(filterByTokens(articles, tokens)); len(kept) > 0 {
			logger.Warn("reference search exhausted, using top stories", "keyword", cacheKey)
			return Set{Articles: clamp(kept, limit), UsedFallback: true}
		}
	}

	if articles, ok := a.cache.get(cacheKey); ok {
		return Set{Articles: clamp(articles, limit)}
	}

	logger.Warn("synthesizing fallback references", "keyword", cacheKey)
	return Set{Articles: syntheticReferences(keyword, limit), UsedFallback: true}
}

// FetchBatch resolves several keywords concurrently with a bounded fan-out.
// All fetches are joined before returning; per-keyword failures degrade to
// fallback sets rather than failing the batch.
func (a *Acquisitor) FetchBatch(ctx context.Context, keywords []string, limit int) map[string]Set {
	results := make(map[string]Set, len(keywords))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.MaxConcurrent)
	for _, kw := range keywords {
		g.Go(func() error {
			set := a.FetchReferences(gctx, kw, limit)
			mu.Lock()
			results[kw] = set
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// searchVariant queries the feed for one variant with bounded retries.
func (a *Acquisitor) searchVariant(ctx context.Context, variant string) ([]core.ReferenceArticle, error) {
	var articles []core.ReferenceArticle
	policy := retry.Policy{
		MaxAttempts: a.opts.FetchAttempts,
		Backoff:     retry.FixedLinearBackoff(a.opts.BackoffBase, a.opts.BackoffStep),
		Retryable:   retry.IsTransient,
	}
	err := policy.Do(ctx, func(int) error {
		found, err := a.searcher.Search(ctx, variant)
		if err != nil {
			return err
		}
		articles = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles for variant %q", variant)
	}
	return articles, nil
}

// stopwords excluded when picking significant keyword tokens.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "about": true,
	"news": true, "this": true, "that": true, "from": true, "into": true,
}

// QueryVariants builds the ordered, deduplicated list of feed queries for a
// keyword: the raw phrase, phrase + "news", the first two significant
// tokens, and the first token alone.
func QueryVariants(keyword string) []string {
	raw := strings.Join(strings.Fields(keyword), " ")
	if raw == "" {
		return nil
	}

	var variants []string
	seen := make(map[string]bool)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		key := strings.ToLower(v)
		if seen[key] {
			return
		}
		seen[key] = true
		variants = append(variants, v)
	}

	add(raw)
	add(raw + " news")

	significant := significantTokens(raw)
	if len(significant) >= 2 {
		add(strings.Join(significant[:2], " "))
	}
	if fields := strings.Fields(raw); len(fields) > 0 {
		add(fields[0])
	}
	return variants
}

func significantTokens(phrase string) []string {
	var out []string
	for _, tok := range strings.Fields(phrase) {
		if len([]rune(tok)) <= 2 || stopwords[strings.ToLower(tok)] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// keywordTokens returns the lowercased tokens used for substring filtering.
// Tokens of length <2 are dropped; when nothing survives, filtering is
// skipped entirely.
func keywordTokens(keyword string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(keyword)) {
		if len([]rune(tok)) < 2 {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// filterByTokens keeps articles whose title or summary contains at least one
// keyword token, case-insensitively. With no usable tokens, all are kept.
func filterByTokens(articles []core.ReferenceArticle, tokens []string) []core.ReferenceArticle {
	if len(tokens) == 0 {
		return articles
	}
	var kept []core.ReferenceArticle
	for _, article := range articles {
		haystack := strings.ToLower(article.Title + " " + article.Summary)
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				kept = append(kept, article)
				break
			}
		}
	}
	return kept
}

func dedupe(articles []core.ReferenceArticle) []core.ReferenceArticle {
	seen := make(map[string]bool, len(articles))
	var out []core.ReferenceArticle
	for _, article := range articles {
		key := article.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, article)
	}
	return out
}

func clamp(articles []core.ReferenceArticle, limit int) []core.ReferenceArticle {
	if len(articles) <= limit {
		return articles
	}
	return articles[:limit]
}

func normalizeKeyword(keyword string) string {
	return strings.ToLower(strings.Join(strings.Fields(keyword), " "))
}

// syntheticReferences produces placeholder rows when every real source is
// unreachable. They carry the fallback source marker and never enter the
// cache; the gate rejects requests grounded only on these.
func syntheticReferences(keyword string, limit int) []core.ReferenceArticle {
	if limit > 3 {
		limit = 3
	}
	now := time.Now().UTC()
	out := make([]core.ReferenceArticle, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, core.ReferenceArticle{
			Title:       fmt.Sprintf("Coverage pending: %s (%d)", keyword, i+1),
			Summary:     fmt.Sprintf("No live coverage for %q could be retrieved.", keyword),
			URL:         fmt.Sprintf("https://fallback.invalid/%s/%d", normalizeKeyword(keyword), i+1),
			Source:      core.FallbackSource,
			PublishedAt: now,
		})
	}
	return out
}
