package syncer

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pkgbuild_sync"

// writeMetrics stores the run result in Prometheus text format at path,
// for collection by the node exporter textfile collector.
func writeMetrics(path string, outcome *Outcome, elapsed time.Duration, runErr error) error {
	var (
		registry = prometheus.NewRegistry()

		lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last sync run.",
		})
		duration = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last sync run.",
		})
		success = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_success",
			Help:      "Whether the last sync run finished without error.",
		})
		updated = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_updated",
			Help:      "Whether the last sync run rewrote the manifests.",
		})
		runtimeMajor = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "runtime_major",
			Help:      "Runtime major version recorded after the last successful run.",
		})
		releaseInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "release_info",
			Help:      "Release recorded after the last successful run.",
		}, []string{"tag", "pkgver"})
	)

	registry.MustRegister(lastRun, duration, success, updated)

	lastRun.SetToCurrentTime()
	duration.Set(elapsed.Seconds())

	if runErr == nil && outcome != nil {
		success.Set(1)

		if outcome.Written {
			updated.Set(1)
		}

		if major, err := strconv.Atoi(outcome.RuntimeMajor); err == nil {
			registry.MustRegister(runtimeMajor)
			runtimeMajor.Set(float64(major))
		}

		registry.MustRegister(releaseInfo)
		releaseInfo.WithLabelValues(outcome.Tag, outcome.PackageVersion).Set(1)
	}

	return prometheus.WriteToTextfile(path, registry)
}
