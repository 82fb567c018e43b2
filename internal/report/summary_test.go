package report

import (
	"errors"
	"testing"
	"time"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/classify"
	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// testReport builds a CrawlReport with the given outcome.
func testReport(t *testing.T, url string, cmp model.CMP, categories ...model.Category) *model.CrawlReport {
	t.Helper()

	target, err := model.NewTarget(url, false)
	if err != nil {
		t.Fatalf("NewTarget() error = %v", err)
	}

	r := model.NewCrawlReport(target)
	r.CMP = cmp
	for _, cat := range categories {
		r.Records = append(r.Records, model.ConsentRecord{
			Name:     "cookie",
			Domain:   "example.com",
			Path:     "/",
			Category: cat,
		})
	}
	r.RecordsPersisted = len(r.Records)
	return r
}

// TestNewRunSummary tests summary aggregation from reports and collector.
func TestNewRunSummary(t *testing.T) {
	t.Parallel()

	t.Run("counts successes and categories", func(t *testing.T) {
		t.Parallel()

		reports := []*model.CrawlReport{
			testReport(t, "https://a.example", model.CMPCookiebot,
				model.CategoryNecessary, model.CategoryAdvertising),
			testReport(t, "https://b.example", model.CMPOneTrust,
				model.CategoryNecessary),
		}
		started := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
		finished := started.Add(42 * time.Second)

		s := NewRunSummary(reports, classify.NewCollector(), started, finished)

		if s.TotalTargets != 2 {
			t.Errorf("TotalTargets = %d, want 2", s.TotalTargets)
		}
		if s.SuccessfulTargets != 2 {
			t.Errorf("SuccessfulTargets = %d, want 2", s.SuccessfulTargets)
		}
		if s.RecordsPersisted != 3 {
			t.Errorf("RecordsPersisted = %d, want 3", s.RecordsPersisted)
		}
		if s.CategoryCounts[model.CategoryNecessary.String()] != 2 {
			t.Errorf("necessary count = %d, want 2", s.CategoryCounts[model.CategoryNecessary.String()])
		}
		if s.CategoryCounts[model.CategoryAdvertising.String()] != 1 {
			t.Errorf("advertising count = %d, want 1", s.CategoryCounts[model.CategoryAdvertising.String()])
		}
		if s.Elapsed() != 42*time.Second {
			t.Errorf("Elapsed() = %v, want 42s", s.Elapsed())
		}
		if s.TotalErrors() != 0 {
			t.Errorf("TotalErrors() = %d, want 0", s.TotalErrors())
		}
	})

	t.Run("platform counts skip undetected targets", func(t *testing.T) {
		t.Parallel()

		reports := []*model.CrawlReport{
			testReport(t, "https://a.example", model.CMPCookiebot),
			testReport(t, "https://b.example", model.CMPCookiebot),
			testReport(t, "https://c.example", model.CMPNone),
		}

		s := NewRunSummary(reports, classify.NewCollector(), time.Now(), time.Now())

		if s.CMPCounts[model.CMPCookiebot.String()] != 2 {
			t.Errorf("cookiebot count = %d, want 2", s.CMPCounts[model.CMPCookiebot.String()])
		}
		if _, ok := s.CMPCounts[model.CMPNone.String()]; ok {
			t.Error("CMPCounts contains the none platform, want it skipped")
		}
	})

	t.Run("failed targets lower the success count", func(t *testing.T) {
		t.Parallel()

		reports := []*model.CrawlReport{
			testReport(t, "https://ok.example", model.CMPCookiebot, model.CategoryNecessary),
			testReport(t, "https://bad.example", model.CMPNone),
		}

		collector := classify.NewCollector()
		collector.Record(classify.Classify(classify.StageDetect, "https://bad.example",
			errors.New("no platform fingerprint matched")))

		s := NewRunSummary(reports, collector, time.Now(), time.Now())

		if s.SuccessfulTargets != 1 {
			t.Errorf("SuccessfulTargets = %d, want 1", s.SuccessfulTargets)
		}
		if len(s.FailedURLs) != 1 || s.FailedURLs[0] != "https://bad.example" {
			t.Errorf("FailedURLs = %v, want the failed target", s.FailedURLs)
		}
		if len(s.ErrorCounts) != 1 {
			t.Fatalf("len(ErrorCounts) = %d, want 1", len(s.ErrorCounts))
		}
		if s.ErrorCounts[0].Kind != classify.KindCMPNotDetected.String() {
			t.Errorf("ErrorCounts[0].Kind = %q, want %q",
				s.ErrorCounts[0].Kind, classify.KindCMPNotDetected.String())
		}
		if s.ErrorCounts[0].Count != 1 {
			t.Errorf("ErrorCounts[0].Count = %d, want 1", s.ErrorCounts[0].Count)
		}
		if s.TotalErrors() != 1 {
			t.Errorf("TotalErrors() = %d, want 1", s.TotalErrors())
		}
	})

	t.Run("error kinds reported in taxonomy order", func(t *testing.T) {
		t.Parallel()

		collector := classify.NewCollector()
		collector.Record(classify.Classify(classify.StageParse, "https://a.example",
			errors.New("bad payload")))
		collector.Record(classify.Classify(classify.StageDetect, "https://b.example",
			errors.New("nothing found")))

		s := NewRunSummary(nil, collector, time.Now(), time.Now())

		if len(s.ErrorCounts) != 2 {
			t.Fatalf("len(ErrorCounts) = %d, want 2", len(s.ErrorCounts))
		}
		if s.ErrorCounts[0].Kind != classify.KindCMPNotDetected.String() {
			t.Errorf("ErrorCounts[0] = %q, want detection failures first", s.ErrorCounts[0].Kind)
		}
		if s.ErrorCounts[1].Kind != classify.KindParse.String() {
			t.Errorf("ErrorCounts[1] = %q, want parse failures second", s.ErrorCounts[1].Kind)
		}
	})

	t.Run("empty run", func(t *testing.T) {
		t.Parallel()

		s := NewRunSummary(nil, classify.NewCollector(), time.Now(), time.Now())

		if s.TotalTargets != 0 || s.SuccessfulTargets != 0 || s.RecordsPersisted != 0 {
			t.Errorf("summary = %+v, want all counts zero", s)
		}
		if len(s.ErrorCounts) != 0 {
			t.Errorf("ErrorCounts = %v, want empty", s.ErrorCounts)
		}
	})
}
