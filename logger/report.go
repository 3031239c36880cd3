package logger

import (
	"sync"
	"sync/atomic"
)

// Run counters, reset at process start. The pipeline logs them once at
// the end of the run so a CI job log carries a one-line summary.
var (
	quotaUsed    int64
	rowsWritten  int64
	warnsTotal   int64
	errorsTotal  int64
	components   sync.Map // map[string]*componentStat
)

type componentStat struct {
	warns  int64
	errors int64
}

func recordWarn(component string) {
	atomic.AddInt64(&warnsTotal, 1)
	v, _ := components.LoadOrStore(component, &componentStat{})
	atomic.AddInt64(&v.(*componentStat).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&errorsTotal, 1)
	v, _ := components.LoadOrStore(component, &componentStat{})
	atomic.AddInt64(&v.(*componentStat).errors, 1)
}

// AddQuotaUsed accumulates API quota consumed by requests this run.
func AddQuotaUsed(n int64) {
	atomic.AddInt64(&quotaUsed, n)
}

// AddRowsWritten accumulates rows persisted to the database this run.
func AddRowsWritten(n int64) {
	atomic.AddInt64(&rowsWritten, n)
}

// LogRunSummary emits the accumulated run counters.
func LogRunSummary(log *Log) {
	perComponent := map[string]map[string]int64{}
	components.Range(func(k, v any) bool {
		cs := v.(*componentStat)
		perComponent[k.(string)] = map[string]int64{
			"warns":  atomic.LoadInt64(&cs.warns),
			"errors": atomic.LoadInt64(&cs.errors),
		}
		return true
	})

	log.WithComponent("report").WithFields(Fields{
		"quota_used":   atomic.LoadInt64(&quotaUsed),
		"rows_written": atomic.LoadInt64(&rowsWritten),
		"warns":        atomic.LoadInt64(&warnsTotal),
		"errors":       atomic.LoadInt64(&errorsTotal),
		"components":   perComponent,
	}).Info("run summary")
}
