// Package classify implements the crawl error taxonomy: a stateless
// classification of stage failures into a fixed set of error kinds, and a
// per-run collector that counts events and groups them by kind and target.
//
// Every pipeline stage routes its failures through this package instead of
// aborting the run. Classification never fails: inputs the classifier does
// not recognize degrade to KindUnclassified.
package classify
