// Package discovery finds candidate recipe URLs for a query: search,
// quality-filter, validate, then diversify.
package discovery

import (
	"context"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/plateful/recipe-cli/internal/cache"
	"github.com/plateful/recipe-cli/internal/model"
	"github.com/plateful/recipe-cli/internal/quality"
	"github.com/plateful/recipe-cli/internal/resilience"
)

// SearchProvider is the uniform search contract. Implementations must
// treat empty results as a valid response, not an error.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int, deep bool) ([]model.SearchHit, error)
}

// Config controls discovery behavior. The thresholds are preserved as
// knobs because the values are heuristic.
type Config struct {
	// Overfetch multiplies the requested count on the search call to
	// leave room for filtering. Default 2.
	Overfetch int
	// DomainCap is the max accepted URLs per domain. Default 1.
	DomainCap int
	// SuccessFraction is the minimum fraction of requested URLs that
	// must survive before discovery settles. Default 0.5.
	SuccessFraction float64
	// MaxRetries bounds how many times discovery widens the search when
	// the yield is thin. Default 2.
	MaxRetries int
	// SampleFraction of validated URLs get the deeper body sniff.
	// 0 disables sampling entirely.
	SampleFraction float64
	// CacheTTL for discovered URL lists.
	CacheTTL time.Duration
}

// DefaultConfig returns discovery defaults.
func DefaultConfig() Config {
	return Config{
		Overfetch:       2,
		DomainCap:       1,
		SuccessFraction: 0.5,
		MaxRetries:      2,
		SampleFraction:  0.3,
		CacheTTL:        15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	if c.Overfetch <= 0 {
		c.Overfetch = 2
	}
	if c.DomainCap <= 0 {
		c.DomainCap = 1
	}
	if c.SuccessFraction <= 0 {
		c.SuccessFraction = 0.5
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// Discoverer runs the URL discovery stage.
type Discoverer struct {
	search  SearchProvider
	checker URLChecker
	breaker *resilience.Breaker
	cache   *cache.Cache
	filter  quality.FilterConfig
	cfg     Config

	randFunc func() float64
}

// New creates a Discoverer. cache may be nil to disable URL-list caching.
func New(search SearchProvider, checker URLChecker, breakers *resilience.Breakers, c *cache.Cache, filter quality.FilterConfig, cfg Config) *Discoverer {
	return &Discoverer{
		search:   search,
		checker:  checker,
		breaker:  breakers.Get(search.Name()),
		cache:    c,
		filter:   filter,
		cfg:      cfg.withDefaults(),
		randFunc: rand.Float64,
	}
}

// Discover returns up to want validated, diversified URLs for the query.
// When the yield stays below the success threshold it widens the search
// up to MaxRetries times, then accepts the partial result. A completely
// empty final yield returns ErrNoURLsFound.
func (d *Discoverer) Discover(ctx context.Context, query string, want int) ([]string, error) {
	if want <= 0 {
		want = 3
	}

	key := cache.Fingerprint("discover", query, strconv.Itoa(want))
	if d.cache != nil {
		if urls, ok := cache.GetAs[[]string](d.cache, key); ok {
			zap.L().Debug("discovery: cache hit", zap.String("query", query))
			return urls, nil
		}
	}

	log := zap.L().With(zap.String("query", query), zap.Int("want", want))

	filter := d.filter
	currentQuery := query
	deep := false
	minAccept := int(float64(want)*d.cfg.SuccessFraction + 0.5)
	if minAccept < 1 {
		minAccept = 1
	}

	var urls []string
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		hits, err := resilience.ExecuteVal(ctx, d.breaker, func(ctx context.Context) ([]model.SearchHit, error) {
			return d.search.Search(ctx, currentQuery, want*d.cfg.Overfetch, deep)
		})
		if err != nil {
			if attempt < d.cfg.MaxRetries {
				log.Warn("discovery: search failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
				continue
			}
			return nil, eris.Wrap(err, "discovery: search provider")
		}

		scored := quality.Filter(hits, filter)
		validated := d.validate(ctx, scored)
		urls = Diversify(validated, want, d.cfg.DomainCap)

		log.Info("discovery: pass complete",
			zap.Int("attempt", attempt+1),
			zap.Int("hits", len(hits)),
			zap.Int("filtered", len(scored)),
			zap.Int("validated", len(validated)),
			zap.Int("accepted", len(urls)),
		)

		if len(urls) >= minAccept {
			break
		}
		if attempt < d.cfg.MaxRetries {
			// Widen: relax the filter, broaden the query, go deeper.
			filter = filter.Relaxed()
			currentQuery = Broaden(query, attempt+1)
			deep = true
		}
	}

	if len(urls) == 0 {
		return nil, resilience.ErrNoURLsFound
	}

	if d.cache != nil {
		d.cache.SetTTL(key, urls, d.cfg.CacheTTL)
	}
	return urls, nil
}

// validate keeps URLs that pass the reachability check. A bounded random
// sample also gets the body sniff; pages that were sampled and show no
// recipe markers are dropped.
func (d *Discoverer) validate(ctx context.Context, scored []model.ScoredURL) []model.ScoredURL {
	if d.checker == nil {
		return scored
	}

	kept := make([]model.ScoredURL, 0, len(scored))
	for _, s := range scored {
		sample := d.cfg.SampleFraction > 0 && d.randFunc() < d.cfg.SampleFraction
		res, err := d.checker.Check(ctx, s.URL, sample)
		if err != nil {
			zap.L().Debug("discovery: url check failed", zap.String("url", s.URL), zap.Error(err))
			continue
		}
		if !res.Reachable || !strings.Contains(res.ContentType, "text/html") {
			continue
		}
		if res.SampledBody && !res.HasRecipeMarkers {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// Diversify enforces the domain cap and drops near-duplicate titles,
// keeping input (score) order. When the strict pass yields fewer than
// want URLs it backfills past the domain cap from the remainder.
func Diversify(scored []model.ScoredURL, want, domainCap int) []string {
	if domainCap <= 0 {
		domainCap = 1
	}

	perDomain := make(map[string]int)
	seenTitles := make(map[string]bool)
	var urls []string
	var overflow []string

	for _, s := range scored {
		title := normalizeTitle(s.Title)
		if seenTitles[title] {
			continue
		}
		if perDomain[s.Domain] >= domainCap {
			overflow = append(overflow, s.URL)
			continue
		}
		seenTitles[title] = true
		perDomain[s.Domain]++
		urls = append(urls, s.URL)
		if len(urls) >= want {
			return urls
		}
	}

	// Thin yield: backfill past the strict domain cap.
	for _, u := range overflow {
		if len(urls) >= want {
			break
		}
		urls = append(urls, u)
	}
	return urls
}

var nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeTitle reduces a title to a comparable token string so
// near-identical titles across sites dedupe.
func normalizeTitle(title string) string {
	return strings.TrimSpace(nonAlnumPattern.ReplaceAllString(strings.ToLower(title), " "))
}

// Broaden progressively widens a query for retry passes.
func Broaden(query string, attempt int) string {
	switch attempt {
	case 1:
		return query + " recipe"
	default:
		return query + " traditional recipe how to make"
	}
}
