package classify

import (
	"errors"
	"testing"
)

// TestCollector tests event accumulation and aggregation.
func TestCollector(t *testing.T) {
	t.Parallel()

	t.Run("empty collector", func(t *testing.T) {
		t.Parallel()

		c := NewCollector()
		if c.Len() != 0 {
			t.Errorf("expected 0 events, got %d", c.Len())
		}
		if len(c.FailedTargets()) != 0 {
			t.Error("expected no failed targets")
		}
	})

	t.Run("records preserve order", func(t *testing.T) {
		t.Parallel()

		c := NewCollector()
		c.Record(Classify(StageDetect, "http://a.example", errors.New("one")))
		c.Record(Classify(StageFetch, "http://b.example", errors.New("two")))

		events := c.Events()
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].Message != "one" || events[1].Message != "two" {
			t.Error("expected recording order preserved")
		}
	})

	t.Run("counts by kind", func(t *testing.T) {
		t.Parallel()

		c := NewCollector()
		c.Record(Classify(StageFetch, "http://a.example", errors.New("x")))
		c.Record(Classify(StageFetch, "http://b.example", errors.New("y")))
		c.Record(Classify(StageParse, "http://c.example", errors.New("z")))

		counts := c.CountsByKind()
		if counts[KindRemoteFetch] != 2 {
			t.Errorf("expected 2 remote fetch events, got %d", counts[KindRemoteFetch])
		}
		if counts[KindParse] != 1 {
			t.Errorf("expected 1 parse event, got %d", counts[KindParse])
		}
	})

	t.Run("failed targets deduplicated in first-failure order", func(t *testing.T) {
		t.Parallel()

		c := NewCollector()
		c.Record(Classify(StageFetch, "http://a.example", errors.New("x")))
		c.Record(Classify(StageParse, "http://a.example", errors.New("y")))
		c.Record(Classify(StageFetch, "http://b.example", errors.New("z")))

		targets := c.FailedTargets()
		if len(targets) != 2 {
			t.Fatalf("expected 2 targets, got %d", len(targets))
		}
		if targets[0] != "http://a.example" || targets[1] != "http://b.example" {
			t.Errorf("unexpected target order: %v", targets)
		}
	})

	t.Run("events without target are not listed as failed targets", func(t *testing.T) {
		t.Parallel()

		c := NewCollector()
		c.Record(Classify(StagePersist, "", errors.New("sink closed")))
		if len(c.FailedTargets()) != 0 {
			t.Error("expected empty-target event to be skipped")
		}
	})
}
