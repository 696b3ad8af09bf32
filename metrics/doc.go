// Package metrics exposes Prometheus counters and histograms for the
// synchronization layer.
//
// Components depend on the Recorder interface and receive NoopRecorder when
// metrics are not configured:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	router.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
//
// Recorded series (namespace "finserve"):
//
//	reconcile_total{resource,outcome}          one per finished reconciliation
//	reconcile_duration_seconds{resource}
//	cache_errors_total{op}                     op is read or write
//	remote_calls_total{op,resource,result}
//	remote_call_duration_seconds{op,resource}
//	http_requests_total{method,route,status}
//	http_request_duration_seconds{method,route}
//	open_bindings                              bindings not yet closed
package metrics
