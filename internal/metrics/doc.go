// Package metrics records crawl activity as Prometheus metrics.
//
// A Recorder owns its own registry so that several crawls in one process,
// and tests, do not collide on the global default registry. The command line
// tool writes the registry in the node_exporter textfile format when
// --metrics-file is set.
package metrics
