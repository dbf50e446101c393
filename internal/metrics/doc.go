// Package metrics provides Prometheus instrumentation for gohls.
//
// All metrics are registered with the default registry through promauto and are
// prefixed with "gohls_". The serve command exposes them on /metrics:
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// Segment metrics are updated by the download coordinator after every decision;
// run metrics are updated by the run manager.
package metrics
