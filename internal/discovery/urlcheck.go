package discovery

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// CheckResult is the outcome of a lightweight URL probe.
type CheckResult struct {
	Reachable   bool
	ContentType string
	// HasRecipeMarkers is only meaningful when the probe sampled the
	// body; it reports schema.org Recipe JSON-LD or ingredient and
	// instruction markers in the first few KB.
	HasRecipeMarkers bool
	SampledBody      bool
}

// URLChecker probes candidate URLs before extraction is spent on them.
type URLChecker interface {
	Check(ctx context.Context, url string, sampleBody bool) (CheckResult, error)
}

// maxSampleBytes bounds how much of a page the body sniff reads.
const maxSampleBytes = 16 * 1024

// HTTPChecker implements URLChecker with HEAD requests plus an optional
// bounded GET for the body sniff. Outbound probes share a rate limiter
// so validation never hammers a single host burst-style.
type HTTPChecker struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPChecker creates a checker with sane timeouts.
func NewHTTPChecker(rps float64) *HTTPChecker {
	if rps <= 0 {
		rps = 5
	}
	return &HTTPChecker{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 2),
	}
}

// Check HEADs the URL, accepting any 2xx/3xx with an HTML content type.
// When sampleBody is set it additionally GETs the first few KB and looks
// for recipe structure markers.
func (c *HTTPChecker) Check(ctx context.Context, url string, sampleBody bool) (CheckResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return CheckResult{}, eris.Wrap(err, "urlcheck: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return CheckResult{}, eris.Wrap(err, "urlcheck: create request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return CheckResult{}, eris.Wrap(err, "urlcheck: head request")
	}
	_ = resp.Body.Close()

	result := CheckResult{
		Reachable:   resp.StatusCode >= 200 && resp.StatusCode < 400,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if !result.Reachable || !strings.Contains(result.ContentType, "text/html") {
		return result, nil
	}

	if sampleBody {
		markers, sampleErr := c.sniffBody(ctx, url)
		if sampleErr == nil {
			result.SampledBody = true
			result.HasRecipeMarkers = markers
		}
	}

	return result, nil
}

func (c *HTTPChecker) sniffBody(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, eris.Wrap(err, "urlcheck: create sample request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, eris.Wrap(err, "urlcheck: sample request")
	}
	defer resp.Body.Close()

	sample, err := io.ReadAll(io.LimitReader(resp.Body, maxSampleBytes))
	if err != nil {
		return false, eris.Wrap(err, "urlcheck: read sample")
	}

	return HasRecipeMarkers(string(sample)), nil
}

// HasRecipeMarkers reports whether an HTML fragment looks like a recipe
// page: a schema.org Recipe JSON-LD block, or ingredient and instruction
// headings in the text.
func HasRecipeMarkers(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		var found bool
		doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.Contains(s.Text(), `"Recipe"`) {
				found = true
				return false
			}
			return true
		})
		if found {
			return true
		}
	}

	lower := strings.ToLower(html)
	return strings.Contains(lower, "ingredients") && strings.Contains(lower, "instructions")
}
