package middleware

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application counters
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsFailed     uint64
	AssessmentsTotal   uint64
	AssessmentsFailed  uint64
	StopWorkEvents     uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// IncrementAssessments increments the pipeline-run counter
func IncrementAssessments() {
	atomic.AddUint64(&globalMetrics.AssessmentsTotal, 1)
}

// IncrementAssessmentsFailed increments the failed pipeline-run counter
func IncrementAssessmentsFailed() {
	atomic.AddUint64(&globalMetrics.AssessmentsFailed, 1)
}

// IncrementStopWork counts assessments that required stopping work
func IncrementStopWork() {
	atomic.AddUint64(&globalMetrics.StopWorkEvents, 1)
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"assessments_total":    atomic.LoadUint64(&globalMetrics.AssessmentsTotal),
		"assessments_failed":   atomic.LoadUint64(&globalMetrics.AssessmentsFailed),
		"stop_work_events":     atomic.LoadUint64(&globalMetrics.StopWorkEvents),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes": m.Alloc,
			"sys_bytes":   m.Sys,
			"num_gc":      m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request counters
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
		atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
		defer atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 500 {
			atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
		}
	})
}
