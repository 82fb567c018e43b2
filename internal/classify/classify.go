package classify

import (
	"errors"
	"time"
)

// Stage identifies the pipeline stage a failure occurred in.
type Stage string

// Pipeline stages, in execution order. StageLoad covers browser navigation
// failures that happen before any adapter runs.
const (
	StageLoad      Stage = "load"
	StageDetect    Stage = "detect"
	StageExtract   Stage = "extract"
	StageFetch     Stage = "fetch"
	StageParse     Stage = "parse"
	StageNormalize Stage = "normalize"
	StagePersist   Stage = "persist"
)

// Kind is the classified error kind.
type Kind int

const (
	// KindUnclassified is the fallback for conditions the classifier
	// does not recognize.
	KindUnclassified Kind = iota

	// KindCMPNotDetected means no adapter fingerprint matched the page.
	// This is an expected outcome for most of the web, not a fault.
	KindCMPNotDetected

	// KindIdentifierExtraction means a platform was detected but no
	// usable identifier could be extracted from the page.
	KindIdentifierExtraction

	// KindRemoteFetch means the consent data could not be retrieved:
	// network failure after retries, a non-2xx response, an empty body,
	// or a failed in-page evaluation.
	KindRemoteFetch

	// KindParse means a payload was retrieved but is structurally
	// invalid for the platform's native format.
	KindParse

	// KindNormalize means an individual raw record was missing required
	// fields and was dropped.
	KindNormalize

	// KindPersistence means the record sink rejected a write.
	KindPersistence
)

// String returns the kind name used in reports and logs.
func (k Kind) String() string {
	switch k {
	case KindCMPNotDetected:
		return "cmp_not_detected"
	case KindIdentifierExtraction:
		return "identifier_extraction_failure"
	case KindRemoteFetch:
		return "remote_fetch_failure"
	case KindParse:
		return "parse_failure"
	case KindNormalize:
		return "normalize_failure"
	case KindPersistence:
		return "persistence_failure"
	default:
		return "unclassified"
	}
}

// Kinds lists all kinds in report order.
func Kinds() []Kind {
	return []Kind{
		KindCMPNotDetected,
		KindIdentifierExtraction,
		KindRemoteFetch,
		KindParse,
		KindNormalize,
		KindPersistence,
		KindUnclassified,
	}
}

// Event is one classified failure. Events never abort the run; they are
// accumulated and summarized at the end.
type Event struct {
	// Stage is where the failure occurred.
	Stage Stage

	// Kind is the classified error kind.
	Kind Kind

	// Target is the resolved URL of the target being processed.
	Target string

	// Message carries the underlying error detail.
	Message string

	// Time is when the event was recorded.
	Time time.Time
}

// kindError carries an explicit kind through error wrapping. Stage
// packages use WithKind to pin the classification where the default
// per-stage mapping would be wrong (e.g. a region-block response during
// the fetch stage is a remote fetch failure, not a parse failure).
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// WithKind wraps err so that Classify resolves it to the given kind
// regardless of stage. A nil err returns nil.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: err}
}

// stageDefaults maps each stage to the kind its failures normally carry.
var stageDefaults = map[Stage]Kind{
	StageLoad:      KindRemoteFetch,
	StageDetect:    KindCMPNotDetected,
	StageExtract:   KindIdentifierExtraction,
	StageFetch:     KindRemoteFetch,
	StageParse:     KindParse,
	StageNormalize: KindNormalize,
	StagePersist:   KindPersistence,
}

// Classify maps a stage and error into an Event. An explicit kind set via
// WithKind wins; otherwise the stage default applies; anything else is
// Unclassified. Classify never returns an error and tolerates nil err
// (producing an Unclassified event with an empty message).
func Classify(stage Stage, target string, err error) Event {
	ev := Event{
		Stage:  stage,
		Kind:   KindUnclassified,
		Target: target,
		Time:   time.Now(),
	}
	if err != nil {
		ev.Message = err.Error()
	}

	var ke *kindError
	if errors.As(err, &ke) {
		ev.Kind = ke.kind
		return ev
	}
	if kind, ok := stageDefaults[stage]; ok && err != nil {
		ev.Kind = kind
	}
	return ev
}
