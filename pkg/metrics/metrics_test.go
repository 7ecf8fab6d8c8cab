package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestFiscalMetricsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFiscalMetrics(reg)

	m.SetNCFRemaining("B01", 42)
	if got := testutil.ToFloat64(m.ncfRemaining.WithLabelValues("B01")); got != 42 {
		t.Fatalf("expected 42 remaining, got %f", got)
	}

	m.IncInvoiceIssued("B01")
	m.IncInvoiceIssued("B01")
	if got := testutil.ToFloat64(m.invoices.WithLabelValues("B01")); got != 2 {
		t.Fatalf("expected 2 invoices, got %f", got)
	}
}

func TestJobMetricsNilSafe(t *testing.T) {
	var m *JobMetrics
	m.ObserveDuration("sweep", time.Second)
	m.IncSuccess("sweep")
	m.IncFailure("sweep")

	empty := NewJobMetrics(nil)
	empty.IncSuccess("sweep")
}

func TestNormalizeLabel(t *testing.T) {
	if normalizeLabel("  ") != "unknown" {
		t.Fatal("expected blank label to normalize to unknown")
	}
	if normalizeLabel(" B01 ") != "B01" {
		t.Fatal("expected trimmed label")
	}
}
