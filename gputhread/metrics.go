package gputhread

import "github.com/prometheus/client_golang/prometheus"

// metrics exposes the GPU usage/frame-time numbers
// UpdatePerformanceCountersOnThread computes in the original as Prometheus
// gauges, since the emulation core this package serves has no other metrics
// surface of its own. Registration is optional: a nil Registerer leaves the
// gauges live (so the worker loop can still set them) but unexported, which
// keeps concurrency tests from fighting over prometheus's global registry.
type metrics struct {
	gpuUsagePercent   prometheus.Gauge
	gpuAvgFrameTimeMS prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		gpuUsagePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "duckstation",
			Subsystem: "gpu",
			Name:      "usage_percent",
			Help:      "Approximate percentage of frame time spent executing GPU commands.",
		}),
		gpuAvgFrameTimeMS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "duckstation",
			Subsystem: "gpu",
			Name:      "average_frame_time_milliseconds",
			Help:      "Average GPU time per presented frame over the last reporting window.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.gpuUsagePercent, m.gpuAvgFrameTimeMS)
	}
	return m
}
