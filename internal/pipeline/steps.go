package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/browser"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/cmp"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/database"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/fetch"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/normalize"
)

// LoadStep renders the target page in the browser session. The rendered
// page stays attached to the state so later steps can query the DOM and
// run in-page evaluations; the runner releases it when the target ends.
type LoadStep struct {
	provider *browser.Provider
	logger   *slog.Logger
}

// NewLoadStep creates a page load step backed by the given browser
// session.
func NewLoadStep(provider *browser.Provider, logger *slog.Logger) *LoadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadStep{provider: provider, logger: logger}
}

// Name returns the step name.
func (s *LoadStep) Name() string { return "load_page" }

// Stage returns the classification stage for failures of this step.
func (s *LoadStep) Stage() classify.Stage { return classify.StageLoad }

// Do navigates to the target and waits for the page to render.
func (s *LoadStep) Do(ctx context.Context, state *State) error {
	page, err := s.provider.Load(ctx, state.Report.Target.URL)
	if err != nil {
		return err
	}
	state.Page = page
	return nil
}

// DetectStep runs CMP fingerprint detection against the rendered page
// and extracts the platform identifier.
type DetectStep struct {
	resolver *cmp.Resolver
	logger   *slog.Logger
}

// NewDetectStep creates a detection step over the given resolver.
func NewDetectStep(resolver *cmp.Resolver, logger *slog.Logger) *DetectStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectStep{resolver: resolver, logger: logger}
}

// Name returns the step name.
func (s *DetectStep) Name() string { return "detect_cmp" }

// Stage returns the classification stage for failures of this step.
func (s *DetectStep) Stage() classify.Stage { return classify.StageDetect }

// Do resolves the platform. A fingerprint without a usable identifier
// is an extraction failure, not a missed detection.
func (s *DetectStep) Do(ctx context.Context, state *State) error {
	adapter, id, err := s.resolver.Resolve(ctx, state.Page)
	if err != nil {
		if errors.Is(err, cmp.ErrNoIdentifier) {
			return classify.WithKind(classify.KindIdentifierExtraction, err)
		}
		return err
	}
	state.Adapter = adapter
	state.Report.CMP = adapter.CMP()
	state.Report.Identifier = id
	return nil
}

// FetchStep retrieves the consent declaration payloads from the CMP's
// delivery network or from the page itself.
type FetchStep struct {
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

// NewFetchStep creates a payload retrieval step.
func NewFetchStep(fetcher *fetch.Fetcher, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{fetcher: fetcher, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string { return "fetch_payload" }

// Stage returns the classification stage for failures of this step.
func (s *FetchStep) Stage() classify.Stage { return classify.StageFetch }

// Do executes the adapter's retrieval plan.
func (s *FetchStep) Do(ctx context.Context, state *State) error {
	payloads, err := s.fetcher.Retrieve(ctx, state.Adapter, state.Report.Identifier, state.Page)
	if err != nil {
		return err
	}
	state.Payloads = payloads
	return nil
}

// ParseStep decodes the retrieved payloads into CMP-native raw records.
type ParseStep struct {
	logger *slog.Logger
}

// NewParseStep creates a payload parsing step.
func NewParseStep(logger *slog.Logger) *ParseStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStep{logger: logger}
}

// Name returns the step name.
func (s *ParseStep) Name() string { return "parse_payload" }

// Stage returns the classification stage for failures of this step.
func (s *ParseStep) Stage() classify.Stage { return classify.StageParse }

// Do parses every payload of the target. A structurally invalid payload
// fails the target; a well-formed payload declaring zero cookies is a
// valid empty result and only flagged in the report.
func (s *ParseStep) Do(_ context.Context, state *State) error {
	for _, payload := range state.Payloads {
		raws, err := state.Adapter.ParsePayload(payload)
		if err != nil {
			return err
		}
		state.Report.RawCookies = append(state.Report.RawCookies, raws...)
	}
	if len(state.Report.RawCookies) == 0 {
		s.logger.Info("platform declared zero cookies", "target", state.Report.Target.URL)
		state.Report.NoCookies = true
	}
	return nil
}

// NormalizeStep maps raw records into the canonical taxonomy.
type NormalizeStep struct {
	normalizer *normalize.Normalizer
}

// NewNormalizeStep creates a normalization step.
func NewNormalizeStep(normalizer *normalize.Normalizer) *NormalizeStep {
	return &NormalizeStep{normalizer: normalizer}
}

// Name returns the step name.
func (s *NormalizeStep) Name() string { return "normalize" }

// Stage returns the classification stage for failures of this step.
func (s *NormalizeStep) Stage() classify.Stage { return classify.StageNormalize }

// Do normalizes the target's raw records. Individual dropped records are
// reported inside the normalizer and never fail the batch.
func (s *NormalizeStep) Do(_ context.Context, state *State) error {
	state.Records = s.normalizer.Normalize(
		state.Report.CMP, state.Report.Target.URL, state.Report.RawCookies)
	state.Report.Records = state.Records
	return nil
}

// PersistStep appends the canonical records to the database.
type PersistStep struct {
	db        *database.ConsentDB
	collector *classify.Collector
	logger    *slog.Logger
}

// NewPersistStep creates a persistence step. The collector receives one
// event per rejected record.
func NewPersistStep(db *database.ConsentDB, collector *classify.Collector, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{db: db, collector: collector, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string { return "persist" }

// Stage returns the classification stage for failures of this step.
func (s *PersistStep) Stage() classify.Stage { return classify.StagePersist }

// Do inserts the records one at a time. A rejected record is reported
// and skipped; earlier inserts stand and are never rolled back. The step
// itself does not fail: rejection events carry the failure detail.
func (s *PersistStep) Do(ctx context.Context, state *State) error {
	for i := range state.Records {
		if _, err := s.db.InsertRecord(ctx, &state.Records[i]); err != nil {
			s.logger.Error("record rejected by sink",
				"target", state.Report.Target.URL,
				"cookie", state.Records[i].Name,
				"error", err,
			)
			if s.collector != nil {
				s.collector.Record(classify.Classify(
					classify.StagePersist, state.Report.Target.URL, err))
			}
			continue
		}
		state.Report.RecordsPersisted++
	}
	return nil
}
