package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	transcriptionsTotal     atomic.Uint64
	insightRunsTotal        atomic.Uint64
	insightFallbacksTotal   atomic.Uint64
	indexCleanupFailedTotal atomic.Uint64

	transcribeDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	insightsDuration   = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncTranscription increments the completed-transcription counter.
func IncTranscription() {
	transcriptionsTotal.Add(1)
}

// IncInsightRun increments the insight-run counter.
func IncInsightRun() {
	insightRunsTotal.Add(1)
}

// IncInsightFallback increments the counter of insight runs that used the
// deterministic fallback instead of a generative response.
func IncInsightFallback() {
	insightFallbacksTotal.Add(1)
}

// IncIndexCleanupFailed counts best-effort chunk deletions that were swallowed.
func IncIndexCleanupFailed() {
	indexCleanupFailedTotal.Add(1)
}

// ObserveTranscribeDurationMs records a transcription duration in milliseconds.
func ObserveTranscribeDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	transcribeDuration.Observe(value)
}

// ObserveInsightsDurationMs records an insight-run duration in milliseconds.
func ObserveInsightsDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	insightsDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "transcriptions_total", "Total transcriptions completed", transcriptionsTotal.Load())
	writeCounter(&buf, "insight_runs_total", "Total insight runs completed", insightRunsTotal.Load())
	writeCounter(&buf, "insight_fallbacks_total", "Total insight runs served by the deterministic fallback", insightFallbacksTotal.Load())
	writeCounter(&buf, "index_cleanup_failed_total", "Total swallowed chunk-index cleanup failures", indexCleanupFailedTotal.Load())
	writeHistogram(&buf, "transcribe_duration_ms", "Transcription duration in milliseconds", transcribeDuration.Snapshot())
	writeHistogram(&buf, "insights_duration_ms", "Insight-run duration in milliseconds", insightsDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
