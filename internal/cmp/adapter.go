package cmp

import (
	"context"
	"errors"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// ErrNotDetected is returned by the resolver when no adapter fingerprint
// matched the page. Absence of a known platform is an expected outcome,
// not a fault; callers report it and move on.
var ErrNotDetected = errors.New("no supported consent platform detected")

// ErrNoIdentifier is returned when a platform fingerprint matched but no
// usable identifier could be extracted from the page.
var ErrNoIdentifier = errors.New("consent platform detected but no identifier found")

// uuidPattern matches the account identifiers all three supported
// platforms use.
var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// uuidOnlyPattern anchors uuidPattern for whole-attribute matching.
var uuidOnlyPattern = regexp.MustCompile(`^` + uuidPattern.String() + `$`)

// RenderedPage is the page capability adapters consume. It is a pure
// read: nothing an adapter does may mutate the page.
type RenderedPage interface {
	// URL returns the URL the page was navigated to.
	URL() string

	// HTML returns the rendered page source.
	HTML() (string, error)

	// Document returns the rendered source parsed for selector queries.
	Document() (*goquery.Document, error)

	// Eval evaluates a read-only script expression and returns the
	// result serialized as JSON.
	Eval(ctx context.Context, expr string) (string, error)
}

// Mode selects how a RequestSpec is executed.
type Mode int

const (
	// ModeHTTP retrieves the payload with a plain network fetch.
	ModeHTTP Mode = iota

	// ModeEval retrieves the payload by evaluating a script expression
	// already present in the rendered page. No network round trip, and
	// never retried: the page state will not change between attempts.
	ModeEval
)

// RequestSpec describes one payload retrieval. Specs are derived
// deterministically from the extracted identifier by the matched adapter.
type RequestSpec struct {
	// Variant tags the adapter-specific retrieval variant the spec
	// belongs to, so the adapter can route followup and parse logic.
	Variant string

	// Mode selects HTTP fetch or in-page evaluation.
	Mode Mode

	// URL is the retrieval endpoint (ModeHTTP only).
	URL string

	// Referer is sent as the Referer header when non-empty. Cookiebot's
	// CDN refuses requests without the referer it expects.
	Referer string

	// Expr is the script expression to evaluate (ModeEval only).
	Expr string
}

// Payload is one retrieved raw payload together with the spec that
// produced it.
type Payload struct {
	Spec RequestSpec
	Body []byte
}

// Adapter is the per-platform contract: fingerprint detection, retrieval
// request construction, and payload parsing.
type Adapter interface {
	// CMP returns the platform this adapter handles.
	CMP() model.CMP

	// Detect inspects the rendered page for the platform fingerprint and
	// extracts the identifier. The second return value is false when the
	// fingerprint is absent; that is not an error. An error is returned
	// only when the fingerprint matched but no usable identifier could
	// be extracted.
	Detect(ctx context.Context, page RenderedPage) (*model.Identifier, bool, error)

	// BuildFetchRequests derives the retrieval alternatives from the
	// identifier, in preference order. The fetcher runs them in order
	// until one yields payloads.
	BuildFetchRequests(id *model.Identifier) ([]RequestSpec, error)

	// Followups inspects a retrieved payload and returns further
	// requests when the payload is an index rather than consent data
	// (OneTrust ruleset lists, Termly policy documents). A nil slice
	// means the payload is final and ready for ParsePayload.
	Followups(id *model.Identifier, payload Payload) ([]RequestSpec, error)

	// ParsePayload converts a final payload into raw cookie records.
	// A structurally invalid payload is an error; a valid payload that
	// declares zero cookies is an empty result, not an error.
	ParsePayload(payload Payload) ([]model.RawCookie, error)
}
