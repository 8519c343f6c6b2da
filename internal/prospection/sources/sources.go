// Package sources holds the nine external-source adapters of the prospection
// pipeline. Every adapter follows the same contract: typed query methods that
// return a normalized record or nil for not-found, a dedicated cache namespace
// routed through GetOrSet, a named rate-limit budget consumed before each
// call, a bounded per-call timeout, and up to three exponential-backoff
// retries on transient failures. Only transport and auth failures surface as
// errors; callers degrade those to empty results.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"prospection_backend/platform/apperr"
	"prospection_backend/platform/cache"
	"prospection_backend/platform/logger"
	"prospection_backend/platform/ratelimit"
)

// Source names, used for cache namespaces, rate-limit budgets, and the
// contributing-sources list on profiles.
const (
	SourceRecherche  = "recherche"
	SourceSirene     = "sirene"
	SourceBAN        = "ban"
	SourceBDNB       = "bdnb"
	SourceBDTopo     = "bdtopo"
	SourceRNB        = "rnb"
	SourceDPE        = "dpe"
	SourceGeorisques = "georisques"
	SourcePappers    = "pappers"
)

// DefaultBudgets are the per-source token buckets. The public gouv APIs
// tolerate ~7 req/s; the paid contact source is kept on a strict budget.
func DefaultBudgets() map[string]ratelimit.Budget {
	return map[string]ratelimit.Budget{
		SourceRecherche:  {Points: 7, Duration: time.Second},
		SourceSirene:     {Points: 30, Duration: time.Minute},
		SourceBAN:        {Points: 50, Duration: time.Second},
		SourceBDNB:       {Points: 10, Duration: time.Second},
		SourceBDTopo:     {Points: 5, Duration: time.Second},
		SourceRNB:        {Points: 10, Duration: time.Second},
		SourceDPE:        {Points: 10, Duration: time.Second},
		SourceGeorisques: {Points: 5, Duration: time.Second},
		SourcePappers:    {Points: 10, Duration: time.Minute},
	}
}

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Deps bundles the shared infrastructure injected into every adapter.
type Deps struct {
	Cache   cache.Store
	Limiter *ratelimit.Limiter
	Log     *logger.Logger
	Timeout time.Duration
}

func (d Deps) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return 12 * time.Second
}

// Key builds a cache key from the source namespace, method, and arguments.
func Key(source, method string, args ...string) string {
	parts := append([]string{source, method}, args...)
	return strings.Join(parts, ":")
}

// getJSON consumes the source's rate budget, performs a GET with a bounded
// timeout, retries transient and throttling failures with exponential
// backoff, and decodes the body into out. Not-found maps to KindNotFound so
// adapters can represent it as an absent value.
func (d Deps) getJSON(ctx context.Context, source, reqURL string, header http.Header, out any) error {
	if err := d.Limiter.Consume(ctx, source); err != nil {
		return apperr.Unavailable("rate limit interrupted", err).WithOp(source)
	}

	client := &http.Client{Timeout: d.timeout()}

	var lastErr error
	backoff := initialBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return apperr.Unavailable("request cancelled", ctx.Err()).WithOp(source)
			}
			backoff *= 2
		}

		err := d.doOnce(ctx, client, source, reqURL, header, out)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		d.Log.Debug("source retry", "source", source, "attempt", attempt, "error", err)
	}

	if apperr.Is(lastErr, apperr.KindQuotaExceeded) {
		return lastErr
	}
	return apperr.Unavailable("retries exhausted", lastErr).WithOp(source)
}

func (d Deps) doOnce(ctx context.Context, client *http.Client, source, reqURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apperr.Internal("create request: " + err.Error())
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Unavailable("http request failed", err).WithOp(source)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return apperr.NotFound("no match")
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperr.QuotaExceeded(source + " throttled")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperr.Unavailable(fmt.Sprintf("auth rejected: status %d", resp.StatusCode), nil).WithOp(source)
	case resp.StatusCode >= 500:
		return apperr.Unavailable(fmt.Sprintf("upstream error: status %d", resp.StatusCode), errTransient).WithOp(source)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Unavailable(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil).WithOp(source)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.New(apperr.KindUnavailable, "decode response: "+err.Error()).WithOp(source)
	}
	return nil
}

// errTransient tags retryable upstream failures.
var errTransient = errors.New("transient upstream error")

// retryable reports whether the failure is transient: throttling, 5xx, or
// network errors. Auth failures and not-found are final.
func retryable(err error) bool {
	switch apperr.GetKind(err) {
	case apperr.KindQuotaExceeded:
		return true
	case apperr.KindUnavailable:
		if appErr, ok := err.(*apperr.Error); ok {
			return appErr.Err != nil // network-level failure
		}
		return false
	default:
		return false
	}
}

// isNotFound reports whether the error represents a well-formed query with
// zero matches.
func isNotFound(err error) bool {
	return apperr.Is(err, apperr.KindNotFound)
}
