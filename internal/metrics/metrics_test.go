package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total, true
		}
	}
	return 0, false
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordIngestSuccess_IncrementsCounter は取り込み成功カウンタが増加することを検証する。
func TestRecordIngestSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordIngestSuccess()
	c.RecordIngestSuccess()

	val, found := counterValue(t, reg, "feedic_ingest_success_total")
	if !found {
		t.Fatal("feedic_ingest_success_total metric not found")
	}
	if val != 2 {
		t.Errorf("ingest_success_total = %v, want 2", val)
	}
}

// TestRecordIngestFailure_LabelledByReason は失敗カウンタが段階別に記録されることを検証する。
func TestRecordIngestFailure_LabelledByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordIngestFailure("fetch")
	c.RecordIngestFailure("fetch")
	c.RecordIngestFailure("subscription_write")

	val, found := counterValue(t, reg, "feedic_ingest_fail_total")
	if !found {
		t.Fatal("feedic_ingest_fail_total metric not found")
	}
	if val != 3 {
		t.Errorf("ingest_fail_total = %v, want 3", val)
	}
}

// TestRecordArticlesMaterialized_AddsCount は記事数カウンタが加算されることを検証する。
func TestRecordArticlesMaterialized_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordArticlesMaterialized(5)
	c.RecordArticlesMaterialized(3)

	val, found := counterValue(t, reg, "feedic_articles_materialized_total")
	if !found {
		t.Fatal("feedic_articles_materialized_total metric not found")
	}
	if val != 8 {
		t.Errorf("articles_materialized_total = %v, want 8", val)
	}
}

// TestRecordHTTPStatus_CountsByCode はステータスコード別にカウントされることを検証する。
func TestRecordHTTPStatus_CountsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != "feedic_http_status_total" {
			continue
		}
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("expected 2 label values, got %d", len(mf.GetMetric()))
		}
		return
	}
	t.Error("feedic_http_status_total metric not found")
}

// TestRecordFetchLatency_ObservesHistogram はレイテンシヒストグラムに観測値が入ることを検証する。
func TestRecordFetchLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFetchLatency(120 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != "feedic_fetch_latency_seconds" {
			continue
		}
		if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
			t.Errorf("histogram sample count = %d, want 1", count)
		}
		return
	}
	t.Error("feedic_fetch_latency_seconds metric not found")
}

// TestHandler_ServesPrometheusFormat は/metricsハンドラーがスクレイプ可能な出力を返すことを検証する。
func TestHandler_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordIngestSuccess()

	server := httptest.NewServer(Handler(reg))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "feedic_ingest_success_total 1") {
		t.Errorf("scrape output missing ingest counter:\n%s", body)
	}
}
