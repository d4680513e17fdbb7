package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarksTotal counts ledger writes by origin channel.
	MarksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campustrack_marks_total",
		Help: "Attendance marks recorded, by origin.",
	}, []string{"source"})

	// BatchRowsApplied counts CSV batch rows that produced a ledger write.
	BatchRowsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_batch_rows_applied_total",
		Help: "Hardware CSV rows successfully applied.",
	})

	// BatchRowsSkipped counts CSV batch rows dropped for unresolvable
	// student references or bad values.
	BatchRowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_batch_rows_skipped_total",
		Help: "Hardware CSV rows skipped.",
	})

	// AuthFailures counts rejected bearer tokens.
	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campustrack_auth_failures_total",
		Help: "Requests rejected at the auth middleware.",
	})
)
