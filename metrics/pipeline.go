package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TaskExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_task_executions_total",
		Help: "scheduled task executions",
	}, []string{"task"})
	TaskErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_task_errors_total",
		Help: "scheduled task executions that returned an error",
	}, []string{"task"})
	FlushRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_flush_records_total",
		Help: "records written to the document store",
	}, []string{"category"})
	FlushDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_flush_dropped_records_total",
		Help: "drained records that never reached the document store",
	}, []string{"category"})
	BufferPushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditflow_buffer_push_total",
		Help: "payloads pushed onto event buffers",
	}, []string{"key"})
	TenantsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auditflow_tenants_expired_total",
		Help: "tenants disabled by the expiry sweep",
	})
)

// InitPipeline registers the pipeline collectors. Counters are always usable;
// they are only exported once registered.
func InitPipeline() error {
	return Register(
		TaskExecutions,
		TaskErrors,
		FlushRecords,
		FlushDropped,
		BufferPushes,
		TenantsExpired,
	)
}
