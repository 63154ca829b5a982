package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は指定名のメトリクスファミリーを返す。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue はメトリクスから指定ラベルの値を返す。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はステータスコード別にカウントされることを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	mf := findMetricFamily(t, reg, "catalog_http_status_total")
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		counts[labelValue(m, "status_code")] = m.GetCounter().GetValue()
	}
	if counts["200"] != 2 {
		t.Errorf("status 200 count = %v, want 2", counts["200"])
	}
	if counts["404"] != 1 {
		t.Errorf("status 404 count = %v, want 1", counts["404"])
	}
}

// TestRecordRequestLatency_ObservesHistogram はヒストグラムに記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(150 * time.Millisecond)

	mf := findMetricFamily(t, reg, "catalog_http_request_duration_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() < 0.1 || h.GetSampleSum() > 0.2 {
		t.Errorf("sample sum = %v, want ~0.15", h.GetSampleSum())
	}
}

// TestObserveStoreOperation_LabelsResult は成功と失敗が別ラベルで記録されることを検証する。
func TestObserveStoreOperation_LabelsResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveStoreOperation("update", 10*time.Millisecond, nil)
	c.ObserveStoreOperation("update", 10*time.Millisecond, errors.New("disk full"))
	c.ObserveStoreOperation("load", time.Millisecond, nil)

	mf := findMetricFamily(t, reg, "catalog_store_operations_total")
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		counts[labelValue(m, "op")+"/"+labelValue(m, "result")] = m.GetCounter().GetValue()
	}
	for key, want := range map[string]float64{"update/ok": 1, "update/error": 1, "load/ok": 1} {
		if counts[key] != want {
			t.Errorf("%s = %v, want %v", key, counts[key], want)
		}
	}
}

// TestRecordUploads_SplitsStoredAndDropped は保存と破棄が別々にカウントされることを検証する。
func TestRecordUploads_SplitsStoredAndDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUploads(3, 0)
	c.RecordUploads(1, 2)

	mf := findMetricFamily(t, reg, "catalog_uploads_total")
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		counts[labelValue(m, "result")] = m.GetCounter().GetValue()
	}
	if counts["stored"] != 4 || counts["dropped"] != 2 {
		t.Errorf("counts = %v, want stored=4 dropped=2", counts)
	}
}

// TestRecordCollectionSizes_SetsGauges はゲージが最新値で上書きされることを検証する。
func TestRecordCollectionSizes_SetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCollectionSizes(10, 2, 5)
	c.RecordCollectionSizes(9, 2, 6)

	mf := findMetricFamily(t, reg, "catalog_collection_size")
	values := map[string]float64{}
	for _, m := range mf.GetMetric() {
		values[labelValue(m, "collection")] = m.GetGauge().GetValue()
	}
	if values["products"] != 9 || values["categories"] != 2 || values["users"] != 6 {
		t.Errorf("values = %v", values)
	}
}

// TestRecordOrphansRemoved_IncrementsCounter はスイープ削除数が加算されることを検証する。
func TestRecordOrphansRemoved_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOrphansRemoved(3)
	c.RecordOrphansRemoved(0)

	mf := findMetricFamily(t, reg, "catalog_orphan_uploads_removed_total")
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 3 {
		t.Errorf("orphans removed = %v, want 3", v)
	}
}

// TestMultipleCollectors_IndependentRegistries は別レジストリのCollectorが干渉しないことを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	_ = NewCollector(reg2)

	c1.RecordOrphansRemoved(1)

	mf := findMetricFamily(t, reg2, "catalog_orphan_uploads_removed_total")
	if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 0 {
		t.Errorf("reg2 counter = %v, want 0", v)
	}
}
