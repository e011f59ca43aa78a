// Package metrics records build observability data.
//
// Components receive a Recorder through injection and default to NoopRecorder,
// so nothing needs a nil check:
//
//	b := build.New(site, deps)          // NoopRecorder
//	b.Recorder = metrics.NewPrometheusRecorder(reg)
//
// The Prometheus implementation is exposed over HTTP by HTTPHandler, which the
// serve command mounts on /metrics.
package metrics
