package metrics

import "github.com/prometheus/client_golang/prometheus"

// namespace prefixes every metric name exported by this package, e.g.
// echotome_crypto_operations_total.
const namespace = "echotome"

// Registry is the process-wide Prometheus registry. Every metric in this
// package is registered against it via promauto.With(Registry) rather than
// the global default registry, so it holds exactly the engine's own
// metrics and nothing pulled in by an imported dependency. This package
// defines no HTTP handler or server for it.
var Registry = prometheus.NewRegistry()
