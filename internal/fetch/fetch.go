package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/cmp"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

const (
	// defaultTimeout bounds a single payload request.
	defaultTimeout = 30 * time.Second
	// defaultRetries is the retry count for failed transport attempts.
	// Rejections with a valid HTTP status are not retried.
	defaultRetries = 2
	// defaultRetryWait is the base backoff between retries.
	defaultRetryWait = 2 * time.Second
	// defaultUserAgent identifies the crawler to CMP delivery networks.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// maxFollowupDepth caps the payload chain length. The deepest known
	// chain is two hops, so anything longer indicates a parsing loop.
	maxFollowupDepth = 4
)

// ErrAllAlternativesFailed is returned when none of an adapter's
// retrieval alternatives produced a payload.
var ErrAllAlternativesFailed = errors.New("all retrieval alternatives failed")

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.SetTimeout(d) }
}

// WithRetries overrides the transport retry count.
func WithRetries(n int) Option {
	return func(f *Fetcher) { f.client.SetRetryCount(n) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// Evaluator runs a javascript expression in the rendered page and
// returns the JSON-encoded result.
type Evaluator interface {
	Eval(ctx context.Context, expr string) (string, error)
}

// Fetcher executes the retrieval plan of a CMP adapter. Alternatives are
// tried in order until one yields a payload chain, and index payloads
// are expanded through the adapter's followup hook.
type Fetcher struct {
	client *resty.Client
	logger *slog.Logger
}

// New creates a Fetcher with retry and backoff defaults suited to CMP
// delivery networks.
func New(opts ...Option) *Fetcher {
	client := resty.New().
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetries).
		SetRetryWaitTime(defaultRetryWait).
		SetHeader("User-Agent", defaultUserAgent).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// Retry only when the transport failed outright. A server
			// that answered, even with an error status, will keep
			// giving the same answer.
			return err != nil && resp.StatusCode() == 0
		})

	f := &Fetcher{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Retrieve runs the adapter's retrieval alternatives and followups,
// returning every payload that needs parsing. The evaluator is used for
// in-page alternatives and may be nil when the page is gone, in which
// case those alternatives are skipped.
func (f *Fetcher) Retrieve(ctx context.Context, adapter cmp.Adapter, id *model.Identifier, eval Evaluator) ([]cmp.Payload, error) {
	specs, err := adapter.BuildFetchRequests(id)
	if err != nil {
		return nil, classify.WithKind(classify.KindIdentifierExtraction, err)
	}

	var lastErr error
	for _, spec := range specs {
		payloads, err := f.retrieveChain(ctx, adapter, id, eval, spec, 0)
		if err != nil {
			f.logger.Debug("retrieval alternative failed",
				"cmp", adapter.CMP().String(), "variant", spec.Variant, "error", err)
			lastErr = err
			continue
		}
		return payloads, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, classify.WithKind(classify.KindRemoteFetch, ErrAllAlternativesFailed)
}

// retrieveChain fetches one spec and recursively expands its followups.
func (f *Fetcher) retrieveChain(ctx context.Context, adapter cmp.Adapter, id *model.Identifier, eval Evaluator, spec cmp.RequestSpec, depth int) ([]cmp.Payload, error) {
	if depth > maxFollowupDepth {
		return nil, fmt.Errorf("payload chain exceeds depth %d", maxFollowupDepth)
	}

	payload, err := f.fetchOne(ctx, eval, spec)
	if err != nil {
		return nil, err
	}

	followups, err := adapter.Followups(id, payload)
	if err != nil {
		return nil, classify.WithKind(classify.KindParse, err)
	}
	if len(followups) == 0 {
		return []cmp.Payload{payload}, nil
	}

	// Index payloads are replaced by what they point at. A single failed
	// followup fails the chain; partial declarations would silently
	// understate a site's disclosures.
	var payloads []cmp.Payload
	for _, next := range followups {
		chain, err := f.retrieveChain(ctx, adapter, id, eval, next, depth+1)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, chain...)
	}
	return payloads, nil
}

// fetchOne executes a single request spec.
func (f *Fetcher) fetchOne(ctx context.Context, eval Evaluator, spec cmp.RequestSpec) (cmp.Payload, error) {
	switch spec.Mode {
	case cmp.ModeEval:
		return f.evalOne(ctx, eval, spec)
	case cmp.ModeHTTP:
		return f.httpOne(ctx, spec)
	default:
		return cmp.Payload{}, fmt.Errorf("unknown fetch mode %d", spec.Mode)
	}
}

func (f *Fetcher) httpOne(ctx context.Context, spec cmp.RequestSpec) (cmp.Payload, error) {
	req := f.client.R().SetContext(ctx)
	if spec.Referer != "" {
		req.SetHeader("Referer", spec.Referer)
	}

	resp, err := req.Get(spec.URL)
	if err != nil {
		return cmp.Payload{}, classify.WithKind(classify.KindRemoteFetch,
			fmt.Errorf("request to %s failed: %w", spec.URL, err))
	}

	code := resp.StatusCode()
	switch {
	case code == 525:
		// Cloudflare SSL handshake failure between edge and origin.
		// The document usually exists; the CDN edge is misconfigured.
		return cmp.Payload{}, classify.WithKind(classify.KindRemoteFetch,
			fmt.Errorf("edge SSL handshake failed for %s (status 525)", spec.URL))
	case code < http.StatusOK || code >= http.StatusMultipleChoices:
		return cmp.Payload{}, classify.WithKind(classify.KindRemoteFetch,
			fmt.Errorf("unexpected status %d from %s", code, spec.URL))
	}

	body := resp.Body()
	if len(body) == 0 {
		return cmp.Payload{}, classify.WithKind(classify.KindRemoteFetch,
			fmt.Errorf("empty response body from %s", spec.URL))
	}

	f.logger.Debug("payload retrieved", "variant", spec.Variant, "url", spec.URL, "bytes", len(body))
	return cmp.Payload{Spec: spec, Body: body}, nil
}

// evalOne reads consent data out of the rendered page. Evaluation is
// never retried; a missing in-page API object stays missing.
func (f *Fetcher) evalOne(ctx context.Context, eval Evaluator, spec cmp.RequestSpec) (cmp.Payload, error) {
	if eval == nil {
		return cmp.Payload{}, classify.WithKind(classify.KindRemoteFetch,
			errors.New("no page available for in-page evaluation"))
	}
	out, err := eval.Eval(ctx, spec.Expr)
	if err != nil {
		return cmp.Payload{}, classify.WithKind(classify.KindRemoteFetch,
			fmt.Errorf("in-page evaluation failed: %w", err))
	}
	if out == "" || out == "null" || out == "undefined" {
		return cmp.Payload{}, classify.WithKind(classify.KindRemoteFetch,
			errors.New("in-page evaluation returned no data"))
	}
	return cmp.Payload{Spec: spec, Body: []byte(out)}, nil
}
