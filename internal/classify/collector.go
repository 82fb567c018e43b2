package classify

// Collector accumulates classified events for one run.
//
// The run loop is strictly sequential, so the collector needs no locking.
// It is append-only from the pipeline's perspective: stages record events
// and never read them back; only the final report consumes the totals.
type Collector struct {
	events []Event
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record appends an event to the run.
func (c *Collector) Record(ev Event) {
	c.events = append(c.events, ev)
}

// Events returns all recorded events in recording order.
func (c *Collector) Events() []Event {
	return c.events
}

// Len returns the number of recorded events.
func (c *Collector) Len() int {
	return len(c.events)
}

// CountsByKind returns the number of events per kind.
func (c *Collector) CountsByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, ev := range c.events {
		counts[ev.Kind]++
	}
	return counts
}

// EventsByKind groups events per kind, preserving recording order.
func (c *Collector) EventsByKind() map[Kind][]Event {
	grouped := make(map[Kind][]Event)
	for _, ev := range c.events {
		grouped[ev.Kind] = append(grouped[ev.Kind], ev)
	}
	return grouped
}

// FailedTargets returns the distinct targets that produced at least one
// event, in first-failure order.
func (c *Collector) FailedTargets() []string {
	seen := make(map[string]bool)
	var targets []string
	for _, ev := range c.events {
		if ev.Target == "" || seen[ev.Target] {
			continue
		}
		seen[ev.Target] = true
		targets = append(targets, ev.Target)
	}
	return targets
}
