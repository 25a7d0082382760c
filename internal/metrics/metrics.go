// Package metrics exposes Prometheus instrumentation for job execution.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poshbackup_job_duration_seconds",
			Help:    "Wall-clock time to run a single backup job end to end",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
		},
		[]string{"job", "status"},
	)

	SevenZipAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poshbackup_sevenzip_attempts_total",
			Help: "Total 7-Zip invocation attempts, including retries",
		},
		[]string{"job", "outcome"},
	)

	SevenZipExitCode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poshbackup_sevenzip_last_exit_code",
			Help: "Exit code of the most recent 7-Zip invocation for a job",
		},
		[]string{"job"},
	)

	VssShadowsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poshbackup_vss_shadows_active",
			Help: "Number of VSS shadow copies currently registered to this process",
		},
		[]string{},
	)

	TargetTransferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poshbackup_target_transfer_duration_seconds",
			Help:    "Time to transfer a completed archive to one remote target",
			Buckets: []float64{0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"target", "type", "status"},
	)

	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poshbackup_jobs_total",
			Help: "Total jobs run, by final status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		JobDuration,
		SevenZipAttempts,
		SevenZipExitCode,
		VssShadowsActive,
		TargetTransferDuration,
		JobsTotal,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint. PoSh-Backup is a
// CLI, not a long-running service, but --MetricsAddr can start this handler
// for the duration of a set run so an external scraper can observe progress.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer starts a standalone HTTP server serving /metrics on addr.
// The caller is responsible for shutting it down after the run completes.
func StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
