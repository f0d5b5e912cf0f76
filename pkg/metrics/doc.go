// Package metrics exposes crawl progress as Prometheus metrics.
//
// Components depend on the Recorder interface; Nop is used when metrics are
// disabled and *Metrics when the crawl is started with a metrics address.
package metrics
