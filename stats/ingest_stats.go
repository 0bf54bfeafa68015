package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IngestStats holds the prometheus counters of the ingest pipeline.
// A nil *IngestStats is valid and counts nothing, so components can
// be built without metrics in tests.
type IngestStats struct {
	BagsProcessed *prometheus.CounterVec
	FilesUploaded *prometheus.CounterVec
	BytesUploaded prometheus.Counter
	RemoteCalls   *prometheus.CounterVec
	ResumedSteps  *prometheus.CounterVec
}

// NewIngestStats creates the counters and registers them with
// registerer. Pass prometheus.DefaultRegisterer to expose them on
// /metrics, or a fresh prometheus.NewRegistry() in tests.
func NewIngestStats(registerer prometheus.Registerer) (*IngestStats, error) {
	ingestStats := &IngestStats{
		BagsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dd_ingest_bags_processed_total",
				Help: "Bags processed, by outcome",
			},
			[]string{"outcome"},
		),
		FilesUploaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dd_ingest_files_uploaded_total",
				Help: "Files uploaded to Dataverse, by kind of upload",
			},
			[]string{"kind"},
		),
		BytesUploaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dd_ingest_bytes_uploaded_total",
				Help: "Bytes of payload uploaded to Dataverse",
			},
		),
		RemoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dd_ingest_dataverse_calls_total",
				Help: "Calls to the Dataverse API, by operation and result",
			},
			[]string{"operation", "result"},
		),
		ResumedSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dd_ingest_steps_skipped_total",
				Help: "Steps skipped because the task log marks them completed",
			},
			[]string{"step"},
		),
	}
	collectors := []prometheus.Collector{
		ingestStats.BagsProcessed,
		ingestStats.FilesUploaded,
		ingestStats.BytesUploaded,
		ingestStats.RemoteCalls,
		ingestStats.ResumedSteps,
	}
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return ingestStats, nil
}

func (ingestStats *IngestStats) BagProcessed(outcome string) {
	if ingestStats == nil {
		return
	}
	ingestStats.BagsProcessed.WithLabelValues(outcome).Inc()
}

func (ingestStats *IngestStats) FilesAdded(kind string, count int, bytes int64) {
	if ingestStats == nil {
		return
	}
	ingestStats.FilesUploaded.WithLabelValues(kind).Add(float64(count))
	ingestStats.BytesUploaded.Add(float64(bytes))
}

func (ingestStats *IngestStats) RemoteCall(operation string, err error) {
	if ingestStats == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	ingestStats.RemoteCalls.WithLabelValues(operation, result).Inc()
}

func (ingestStats *IngestStats) StepSkipped(step string) {
	if ingestStats == nil {
		return
	}
	ingestStats.ResumedSteps.WithLabelValues(step).Inc()
}
