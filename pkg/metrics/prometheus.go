package metrics

import (
	"fmt"
	"io"
)

// PrometheusExporter exports metrics in Prometheus text format. Adapted
// from the teacher's exporter, trimmed to the counters and gauge this
// engine actually has; the teacher's resource tracker, timing histograms
// and percentile gauges have no collector to read from here and are
// dropped along with it.
type PrometheusExporter struct {
	collector *MetricsCollector
	namespace string // Metric namespace prefix (e.g., "siltchest")
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(collector *MetricsCollector) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		namespace: "siltchest",
	}
}

// SetNamespace sets the metric namespace prefix.
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes all metrics in Prometheus text format to the writer.
// Format: https://prometheus.io/docs/instrumenting/exposition_formats/
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	snap := pe.collector.GetMetrics()

	if err := pe.writeGauge(w, "uptime_seconds", "Engine uptime in seconds", snap.UptimeSeconds); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "gets_total", "Total number of Get operations", snap.GetsExecuted); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "gets_failed_total", "Total number of failed Get operations", snap.GetsFailed); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "sets_total", "Total number of Set operations", snap.SetsExecuted); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "sets_failed_total", "Total number of failed Set operations", snap.SetsFailed); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "deletes_total", "Total number of Delete operations", snap.DeletesExecuted); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "deletes_failed_total", "Total number of failed Delete operations", snap.DeletesFailed); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "flushes_total", "Total number of memtable flushes", snap.Flushes); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "merges_total", "Total number of run merges", snap.Merges); err != nil {
		return err
	}

	if err := pe.writeCounter(w, "bloom_negatives_total", "Total Get calls the bloom filter resolved as absent", snap.BloomNegatives); err != nil {
		return err
	}

	return nil
}

// writeCounter writes a counter metric.
func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n",
		metricName, help, metricName, metricName, value)
	return err
}

// writeGauge writes a gauge metric.
func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n",
		metricName, help, metricName, metricName, value)
	return err
}
