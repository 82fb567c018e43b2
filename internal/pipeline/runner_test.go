package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// fakeSessionPage implements Page and records whether it was released.
type fakeSessionPage struct {
	url    string
	closed bool
}

func (p *fakeSessionPage) URL() string          { return p.url }
func (p *fakeSessionPage) HTML() (string, error) { return "<html></html>", nil }

func (p *fakeSessionPage) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader("<html></html>"))
}

func (p *fakeSessionPage) Eval(_ context.Context, _ string) (string, error) {
	return "null", nil
}

func (p *fakeSessionPage) Close() error {
	p.closed = true
	return nil
}

// mockSink implements ErrorSink for runner tests.
type mockSink struct {
	events []classify.Event
	err    error
}

func (s *mockSink) InsertErrorEvent(_ context.Context, event classify.Event) error {
	s.events = append(s.events, event)
	return s.err
}

func targetList(urls ...string) []model.Target {
	targets := make([]model.Target, 0, len(urls))
	for _, u := range urls {
		targets = append(targets, model.Target{Input: u, URL: u})
	}
	return targets
}

// TestRunnerRun tests the sequential run loop.
func TestRunnerRun(t *testing.T) {
	t.Parallel()

	t.Run("one failed target does not abort the run", func(t *testing.T) {
		t.Parallel()

		// The first target has no consent platform; the second succeeds.
		step := &mockStep{
			name:  "detect_cmp",
			stage: classify.StageDetect,
			doFunc: func(_ context.Context, state *State) error {
				if state.Report.Target.URL == "http://a.example" {
					return errors.New("nothing found")
				}
				return nil
			},
		}
		p := New()
		p.AddSteps(step)

		collector := classify.NewCollector()
		runner := NewRunner(p, collector)

		reports, err := runner.Run(context.Background(), targetList("http://a.example", "http://b.example"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != 2 {
			t.Fatalf("expected 2 reports, got %d", len(reports))
		}
		if step.callCount != 2 {
			t.Errorf("expected the step to run for both targets, got %d", step.callCount)
		}

		if collector.Len() != 1 {
			t.Fatalf("expected 1 event, got %d", collector.Len())
		}
		ev := collector.Events()[0]
		if ev.Target != "http://a.example" || ev.Kind != classify.KindCMPNotDetected {
			t.Errorf("unexpected event %+v", ev)
		}
	})

	t.Run("page released after a mid-target failure", func(t *testing.T) {
		t.Parallel()

		var pages []*fakeSessionPage
		loadStep := &mockStep{
			name:  "load_page",
			stage: classify.StageLoad,
			doFunc: func(_ context.Context, state *State) error {
				// The previous target's page must be gone before the next
				// target starts loading.
				for _, p := range pages {
					if !p.closed {
						t.Errorf("page for %s still open when %s started loading",
							p.url, state.Report.Target.URL)
					}
				}
				page := &fakeSessionPage{url: state.Report.Target.URL}
				pages = append(pages, page)
				state.Page = page
				return nil
			},
		}
		fetchStep := &mockStep{
			name:  "fetch_payload",
			stage: classify.StageFetch,
			doFunc: func(_ context.Context, state *State) error {
				if state.Report.Target.URL == "http://a.example" {
					return errors.New("connection reset")
				}
				return nil
			},
		}
		p := New()
		p.AddSteps(loadStep, fetchStep)

		runner := NewRunner(p, classify.NewCollector())
		reports, err := runner.Run(context.Background(), targetList("http://a.example", "http://b.example"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != 2 {
			t.Fatalf("expected 2 reports, got %d", len(reports))
		}
		if len(pages) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(pages))
		}
		for _, page := range pages {
			if !page.closed {
				t.Errorf("page for %s never released", page.url)
			}
		}
	})

	t.Run("events forwarded to the error sink", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{
			name:  "fetch_payload",
			stage: classify.StageFetch,
			doFunc: func(_ context.Context, _ *State) error {
				return errors.New("status 403")
			},
		})

		collector := classify.NewCollector()
		sink := &mockSink{}
		runner := NewRunner(p, collector, WithErrorSink(sink))

		if _, err := runner.Run(context.Background(), targetList("http://a.example")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sink.events) != 1 {
			t.Fatalf("expected 1 sink event, got %d", len(sink.events))
		}
		if sink.events[0].Kind != classify.KindRemoteFetch {
			t.Errorf("unexpected sink event %+v", sink.events[0])
		}
	})

	t.Run("sink failure is swallowed", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{
			name:  "fetch_payload",
			stage: classify.StageFetch,
			doFunc: func(_ context.Context, _ *State) error {
				return errors.New("status 403")
			},
		})

		collector := classify.NewCollector()
		sink := &mockSink{err: errors.New("sink closed")}
		runner := NewRunner(p, collector, WithErrorSink(sink))

		reports, err := runner.Run(context.Background(), targetList("http://a.example"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != 1 {
			t.Errorf("expected 1 report, got %d", len(reports))
		}
		if collector.Len() != 1 {
			t.Errorf("expected the collector to still record, got %d", collector.Len())
		}
	})

	t.Run("cancellation returns partial reports", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		p := New()
		p.AddSteps(&mockStep{
			name:  "load_page",
			stage: classify.StageLoad,
			doFunc: func(_ context.Context, _ *State) error {
				cancel() // stop before the next target starts
				return nil
			},
		})

		runner := NewRunner(p, classify.NewCollector())
		reports, err := runner.Run(ctx, targetList("http://a.example", "http://b.example"))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(reports) != 1 {
			t.Errorf("expected 1 completed report, got %d", len(reports))
		}
	})

	t.Run("empty target list", func(t *testing.T) {
		t.Parallel()

		runner := NewRunner(New(), classify.NewCollector())
		reports, err := runner.Run(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != 0 {
			t.Errorf("expected no reports, got %d", len(reports))
		}
	})
}
